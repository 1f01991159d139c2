package session

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

func newTestStore(t *testing.T) (Store, *boltstore.Client) {
	t.Helper()

	client, err := boltstore.Open(filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })

	store, err := NewStore(client, logger.New(logger.Options{ServiceName: "test", Output: io.Discard}))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return store, client
}

func TestStoreRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	record := &Record{
		SessionID:  "sess-1",
		UserID:     "user-1",
		Email:      "buyer@example.com",
		Name:       "Casey Alvarez",
		LoggedInAt: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	}
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Get(ctx)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.SessionID != record.SessionID || got.Email != record.Email || got.Name != record.Name {
		t.Fatalf("record mismatch: %+v", got)
	}
	if !got.LoggedInAt.Equal(record.LoggedInAt) {
		t.Fatalf("expected login time %v, got %v", record.LoggedInAt, got.LoggedInAt)
	}
}

func TestStoreGetWhenEmpty(t *testing.T) {
	store, _ := newTestStore(t)

	if _, err := store.Get(context.Background()); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated, got %v", err)
	}
}

func TestStoreSaveRequiresSessionID(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	for _, record := range []*Record{nil, {Email: "buyer@example.com"}} {
		err := store.Save(ctx, record)
		typed := pkgerrors.As(err)
		if typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("expected validation error for %+v, got %v", record, err)
		}
	}
}

func TestStoreDeleteRemovesRecord(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, &Record{SessionID: "sess-1"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated after delete, got %v", err)
	}

	// Deleting again is a no-op.
	if err := store.Delete(ctx); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestStoreGetTreatsGarbageAsSignedOut(t *testing.T) {
	store, client := newTestStore(t)
	ctx := context.Background()

	if err := client.Put(ctx, boltstore.BucketSession, recordKey, []byte("{not json")); err != nil {
		t.Fatalf("put garbage: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for garbage record, got %v", err)
	}

	// A decodable record without a session id is equally unusable.
	if err := client.Put(ctx, boltstore.BucketSession, recordKey, []byte(`{"email":"buyer@example.com"}`)); err != nil {
		t.Fatalf("put record: %v", err)
	}
	if _, err := store.Get(ctx); !errors.Is(err, ErrNotAuthenticated) {
		t.Fatalf("expected ErrNotAuthenticated for record without session id, got %v", err)
	}
}
