package localcart

import (
	"context"
	"errors"
	"sync"
	"time"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// Service owns the anonymous cart kept on this machine. Every mutation is a
// whole-blob rewrite; a service-level mutex makes each read-modify-write
// atomic within the process. Concurrent processes stay last-write-wins.
type Service interface {
	// Add puts quantity units of the product in the cart, merging into an
	// existing line for the same product.
	Add(ctx context.Context, product types.Product, quantity int) error
	// UpdateQuantity sets a line's quantity; zero or less removes the line.
	// Updating an absent product is a no-op.
	UpdateQuantity(ctx context.Context, productID int64, quantity int) error
	// Remove drops the line for the product. Removing an absent product is a
	// no-op.
	Remove(ctx context.Context, productID int64) error
	// Clear deletes the persisted cart entirely.
	Clear(ctx context.Context) error
	// Get returns the current cart for display.
	Get(ctx context.Context) (*Cart, error)
	// ItemCount sums quantities across all lines.
	ItemCount(ctx context.Context) (int, error)
	// SubtotalCents totals every line at its snapshot's effective unit price.
	SubtotalCents(ctx context.Context) (int64, error)
	// Contains reports whether the cart has a line for the product.
	Contains(ctx context.Context, productID int64) (bool, error)
	// Quantity reports the stored quantity for a product, zero when absent.
	Quantity(ctx context.Context, productID int64) (int, error)
	// ItemsForMerge projects the cart into merge payload lines, dropping
	// snapshots.
	ItemsForMerge(ctx context.Context) ([]types.MergeItem, error)
}

type service struct {
	mu    sync.Mutex
	store Store
	logg  *logger.Logger
	now   func() time.Time
}

// NewService builds the local cart service.
func NewService(store Store, logg *logger.Logger) (Service, error) {
	if store == nil {
		return nil, errors.New("cart store required")
	}
	if logg == nil {
		return nil, errors.New("logger required")
	}
	return &service{store: store, logg: logg, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *service) Add(ctx context.Context, product types.Product, quantity int) error {
	if product.ID <= 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	if quantity < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	if i := cart.indexOf(product.ID); i >= 0 {
		cart.Items[i].Quantity += quantity
		cart.Items[i].Product = product
	} else {
		cart.Items = append(cart.Items, Item{
			ProductID: product.ID,
			Quantity:  quantity,
			Product:   product,
			AddedAt:   now,
		})
	}
	cart.UpdatedAt = now
	return s.store.Save(ctx, cart)
}

func (s *service) UpdateQuantity(ctx context.Context, productID int64, quantity int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.store.Load(ctx)
	if err != nil {
		return err
	}

	i := cart.indexOf(productID)
	if i < 0 {
		return nil
	}

	if quantity <= 0 {
		cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
	} else {
		cart.Items[i].Quantity = quantity
	}
	cart.UpdatedAt = s.now()
	return s.store.Save(ctx, cart)
}

func (s *service) Remove(ctx context.Context, productID int64) error {
	return s.UpdateQuantity(ctx, productID, 0)
}

func (s *service) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Clear(ctx)
}

func (s *service) Get(ctx context.Context) (*Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store.Load(ctx)
}

func (s *service) ItemCount(ctx context.Context) (int, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cart.ItemCount(), nil
}

func (s *service) SubtotalCents(ctx context.Context) (int64, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	return cart.SubtotalCents(), nil
}

func (s *service) Contains(ctx context.Context, productID int64) (bool, error) {
	quantity, err := s.Quantity(ctx, productID)
	if err != nil {
		return false, err
	}
	return quantity > 0, nil
}

func (s *service) Quantity(ctx context.Context, productID int64) (int, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return 0, err
	}
	if i := cart.indexOf(productID); i >= 0 {
		return cart.Items[i].Quantity, nil
	}
	return 0, nil
}

func (s *service) ItemsForMerge(ctx context.Context) ([]types.MergeItem, error) {
	cart, err := s.Get(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]types.MergeItem, 0, len(cart.Items))
	for _, item := range cart.Items {
		items = append(items, types.MergeItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return items, nil
}
