package localcart

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/boltstore"
	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
)

// cartKey is the single fixed key the whole cart blob lives under.
var cartKey = []byte("current")

// Store persists the anonymous cart blob.
type Store interface {
	Load(ctx context.Context) (*Cart, error)
	Save(ctx context.Context, cart *Cart) error
	Clear(ctx context.Context) error
}

type boltStore struct {
	client *boltstore.Client
	logg   *logger.Logger
}

// NewStore builds the bbolt-backed cart store.
func NewStore(client *boltstore.Client, logg *logger.Logger) (Store, error) {
	if client == nil {
		return nil, errors.New("state store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &boltStore{client: client, logg: logg}, nil
}

// Load returns the persisted cart. Missing, undecodable, or structurally
// invalid state all come back as a fresh empty cart; reads never fail on
// content.
func (s *boltStore) Load(ctx context.Context) (*Cart, error) {
	raw, err := s.client.Get(ctx, boltstore.BucketCart, cartKey)
	if errors.Is(err, boltstore.ErrKeyNotFound) {
		return newCart(time.Now().UTC()), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeStorage, err, "loading cart")
	}

	var cart Cart
	if err := json.Unmarshal(raw, &cart); err != nil {
		s.logg.Warn(ctx, "stored cart is unreadable, resetting to empty")
		return newCart(time.Now().UTC()), nil
	}
	if cart.Version != FormatVersion || cart.Items == nil {
		s.logg.Warn(ctx, "stored cart has an unexpected shape, resetting to empty")
		return newCart(time.Now().UTC()), nil
	}
	return &cart, nil
}

// Save rewrites the whole blob under the fixed key.
func (s *boltStore) Save(ctx context.Context, cart *Cart) error {
	raw, err := json.Marshal(cart)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encoding cart")
	}
	if err := s.client.Put(ctx, boltstore.BucketCart, cartKey, raw); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "saving cart")
	}
	return nil
}

// Clear deletes the persisted blob entirely.
func (s *boltStore) Clear(ctx context.Context) error {
	if err := s.client.Delete(ctx, boltstore.BucketCart, cartKey); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeStorage, err, "clearing cart")
	}
	return nil
}
