package merge

import (
	"context"
	"errors"

	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
)

// markerKey holds the session id the last completed merge belonged to.
var markerKey = []byte("merged_session")

// MarkerStore persists the merged marker. The marker value is a session id:
// comparing it to the live session scopes the at-most-once guarantee to the
// current login, and a fresh login invalidates stale markers for free.
type MarkerStore interface {
	// Current returns the marked session id, empty when no merge completed.
	Current(ctx context.Context) (string, error)
	// Set records that the given session's merge completed.
	Set(ctx context.Context, sessionID string) error
	// Clear removes the marker, e.g. on logout.
	Clear(ctx context.Context) error
}

type boltMarkerStore struct {
	client *boltstore.Client
}

// NewMarkerStore builds the bbolt-backed marker store.
func NewMarkerStore(client *boltstore.Client) (MarkerStore, error) {
	if client == nil {
		return nil, errors.New("state store required")
	}
	return &boltMarkerStore{client: client}, nil
}

func (s *boltMarkerStore) Current(ctx context.Context) (string, error) {
	raw, err := s.client.Get(ctx, boltstore.BucketMerge, markerKey)
	if errors.Is(err, boltstore.ErrKeyNotFound) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading merge marker")
	}
	return string(raw), nil
}

func (s *boltMarkerStore) Set(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "session id is required")
	}
	if err := s.client.Put(ctx, boltstore.BucketMerge, markerKey, []byte(sessionID)); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "writing merge marker")
	}
	return nil
}

func (s *boltMarkerStore) Clear(ctx context.Context) error {
	if err := s.client.Delete(ctx, boltstore.BucketMerge, markerKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing merge marker")
	}
	return nil
}
