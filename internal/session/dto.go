package session

import "github.com/google/uuid"

// LoginInput carries the credentials sent to the login endpoint.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// userSummary is the slice of the login payload the client keeps. Tokens in
// the body are ignored; credentials ride on the cookies the server sets.
type userSummary struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
}

type loginResponse struct {
	User *userSummary `json:"user"`
}
