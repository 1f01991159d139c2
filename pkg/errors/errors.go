package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation     Code = "VALIDATION_ERROR"
	CodeUnauthorized   Code = "UNAUTHORIZED"
	CodeForbidden      Code = "FORBIDDEN"
	CodeNotFound       Code = "NOT_FOUND"
	CodeConflict       Code = "CONFLICT"
	CodeRateLimit      Code = "RATE_LIMIT_EXCEEDED"
	CodeServer         Code = "SERVER_ERROR"
	CodeNetwork        Code = "NETWORK_ERROR"
	CodeSessionExpired Code = "SESSION_EXPIRED"
	CodeDecoding       Code = "DECODING_ERROR"
	CodeStorage        Code = "STORAGE_ERROR"
	CodeInternal       Code = "INTERNAL_ERROR"
)

type Metadata struct {
	Retryable     bool
	PublicMessage string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation: {
		Retryable:     false,
		PublicMessage: "validation failed",
	},
	CodeUnauthorized: {
		Retryable:     false,
		PublicMessage: "authentication required",
	},
	CodeForbidden: {
		Retryable:     false,
		PublicMessage: "access denied",
	},
	CodeNotFound: {
		Retryable:     false,
		PublicMessage: "resource not found",
	},
	CodeConflict: {
		Retryable:     false,
		PublicMessage: "conflict detected",
	},
	CodeRateLimit: {
		Retryable:     false,
		PublicMessage: "rate limit exceeded",
	},
	CodeServer: {
		Retryable:     true,
		PublicMessage: "storefront unavailable",
	},
	CodeNetwork: {
		Retryable:     true,
		PublicMessage: "network request failed",
	},
	CodeSessionExpired: {
		Retryable:     false,
		PublicMessage: "session expired, please sign in again",
	},
	CodeDecoding: {
		Retryable:     false,
		PublicMessage: "unexpected response from storefront",
	},
	CodeStorage: {
		Retryable:     false,
		PublicMessage: "local storage unavailable",
	},
	CodeInternal: {
		Retryable:     false,
		PublicMessage: "internal client error",
	},
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code       Code
	statusCode int
	message    string
	details    any
	cause      error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// FromStatus builds an error from an HTTP response status. Status 0 is
// reserved for requests that never produced a response. An empty message
// falls back to the code's public message.
func FromStatus(status int, message string) *Error {
	code := codeForStatus(status)
	if message == "" {
		message = MetadataFor(code).PublicMessage
	}
	return &Error{code: code, statusCode: status, message: message}
}

func codeForStatus(status int) Code {
	switch {
	case status == 0:
		return CodeNetwork
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		return CodeValidation
	case status == http.StatusUnauthorized:
		return CodeUnauthorized
	case status == http.StatusForbidden:
		return CodeForbidden
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status == http.StatusTooManyRequests:
		return CodeRateLimit
	case status >= http.StatusInternalServerError:
		return CodeServer
	default:
		return CodeInternal
	}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// StatusCode reports the HTTP status the error was built from. Zero means
// the request failed before any response arrived; errors that never touched
// the wire also report zero.
func (e *Error) StatusCode() int {
	if e == nil {
		return 0
	}
	return e.statusCode
}

func (e *Error) WithStatus(status int) *Error {
	if e == nil {
		return nil
	}
	e.statusCode = status
	return e
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
