package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

const (
	loginPath  = "/api/v1/auth/login"
	logoutPath = "/api/v1/auth/logout"

	// accessTokenCookie is the cookie name the storefront API uses for the
	// short-lived access token.
	accessTokenCookie = "access_token"
)

// Service manages the signed-in session: credentials ride on the cookie jar,
// the local record tracks who is signed in.
type Service interface {
	Login(ctx context.Context, input LoginInput) (*Record, error)
	// Logout tells the server best-effort and always clears local state.
	Logout(ctx context.Context) error
	Current(ctx context.Context) (*Record, error)
	IsAuthenticated(ctx context.Context) bool
	// TokenExpiry decodes the access-token cookie without verification and
	// reports its expiry. Display only; authorization stays with the server.
	TokenExpiry() (time.Time, bool)
}

type authClient interface {
	DoNoRefresh(ctx context.Context, method, path string, body, out any) error
}

type markerStore interface {
	Clear(ctx context.Context) error
}

type cookieJar interface {
	Get(name string) (string, bool)
	Clear(ctx context.Context) error
}

// ServiceParams bundles the dependencies required to build a session service.
type ServiceParams struct {
	Client authClient
	Store  Store
	Marker markerStore
	Jar    cookieJar
	Logger *logger.Logger
}

type service struct {
	client authClient
	store  Store
	marker markerStore
	jar    cookieJar
	logg   *logger.Logger
	now    func() time.Time
}

func NewService(params ServiceParams) (Service, error) {
	if params.Client == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if params.Store == nil {
		return nil, fmt.Errorf("session store is required")
	}
	if params.Marker == nil {
		return nil, fmt.Errorf("merge marker store is required")
	}
	if params.Jar == nil {
		return nil, fmt.Errorf("cookie jar is required")
	}
	if params.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{
		client: params.Client,
		store:  params.Store,
		marker: params.Marker,
		jar:    params.Jar,
		logg:   params.Logger,
		now:    time.Now,
	}, nil
}

// Login authenticates against the API and stores a fresh session record. The
// record's SessionID is minted here, never reused across logins, so the merge
// marker of any earlier session stops matching.
func (s *service) Login(ctx context.Context, input LoginInput) (*Record, error) {
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if err := validateInput(input); err != nil {
		return nil, err
	}

	var resp loginResponse
	if err := s.client.DoNoRefresh(ctx, http.MethodPost, loginPath, input, &resp); err != nil {
		return nil, err
	}

	record := &Record{
		SessionID:  uuid.NewString(),
		Email:      input.Email,
		LoggedInAt: s.now().UTC(),
	}
	if resp.User != nil {
		record.UserID = resp.User.ID.String()
		record.Email = resp.User.Email
		record.Name = strings.TrimSpace(resp.User.FirstName + " " + resp.User.LastName)
	}

	if err := s.store.Save(ctx, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Logout clears the session record, the merge marker, and the stored cookies
// even when the server call fails. Staying signed in locally after the user
// asked to leave is the one outcome this must not produce.
func (s *service) Logout(ctx context.Context) error {
	if err := s.client.DoNoRefresh(ctx, http.MethodPost, logoutPath, nil, nil); err != nil {
		s.logg.Warn(ctx, "server logout failed, clearing local session anyway")
	}

	var errs []error
	if err := s.store.Delete(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.marker.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.jar.Clear(ctx); err != nil {
		errs = append(errs, err)
	}
	return multierr.Combine(errs...)
}

func (s *service) Current(ctx context.Context) (*Record, error) {
	return s.store.Get(ctx)
}

func (s *service) IsAuthenticated(ctx context.Context) bool {
	_, err := s.store.Get(ctx)
	return err == nil
}

func (s *service) TokenExpiry() (time.Time, bool) {
	raw, ok := s.jar.Get(accessTokenCookie)
	if !ok {
		return time.Time{}, false
	}

	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}
