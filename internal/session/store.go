package session

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// recordKey is the single fixed key the session record lives under.
var recordKey = []byte("current")

// ErrNotAuthenticated reports that no session record is stored locally.
var ErrNotAuthenticated = errors.New("not authenticated")

// Record is the locally stored summary of the signed-in session. SessionID
// is minted by the client at login time; the merge marker is scoped to it,
// so a fresh login implicitly re-arms the merge.
type Record struct {
	SessionID  string    `json:"session_id"`
	UserID     string    `json:"user_id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	LoggedInAt time.Time `json:"logged_in_at"`
}

// Store persists the session record.
type Store interface {
	Save(ctx context.Context, record *Record) error
	// Get returns the stored record, ErrNotAuthenticated when absent.
	Get(ctx context.Context) (*Record, error)
	Delete(ctx context.Context) error
}

type boltStore struct {
	client *boltstore.Client
	logg   *logger.Logger
}

// NewStore builds the bbolt-backed session store.
func NewStore(client *boltstore.Client, logg *logger.Logger) (Store, error) {
	if client == nil {
		return nil, errors.New("state store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &boltStore{client: client, logg: logg}, nil
}

func (s *boltStore) Save(ctx context.Context, record *Record) error {
	if record == nil || record.SessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session record requires a session id")
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding session record")
	}
	if err := s.client.Put(ctx, boltstore.BucketSession, recordKey, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving session record")
	}
	return nil
}

// Get treats an unreadable stored record like an absent one: a session the
// client cannot decode is a session it cannot use.
func (s *boltStore) Get(ctx context.Context) (*Record, error) {
	raw, err := s.client.Get(ctx, boltstore.BucketSession, recordKey)
	if errors.Is(err, boltstore.ErrKeyNotFound) {
		return nil, ErrNotAuthenticated
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading session record")
	}

	var record Record
	if err := json.Unmarshal(raw, &record); err != nil || record.SessionID == "" {
		s.logg.Warn(ctx, "stored session record is unreadable, treating as signed out")
		return nil, ErrNotAuthenticated
	}
	return &record, nil
}

func (s *boltStore) Delete(ctx context.Context) error {
	if err := s.client.Delete(ctx, boltstore.BucketSession, recordKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "deleting session record")
	}
	return nil
}
