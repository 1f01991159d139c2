package cart

import (
	"context"
	"fmt"
	"net/http"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

const basePath = "/api/v1/cart"

// apiClient is the slice of the HTTP client the cart service uses. The
// implementation owns credential refresh, so an expired access credential
// never surfaces here unless the post-refresh retry failed too.
type apiClient interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Service exposes the server-side cart. Every operation requires an
// authenticated session; credentials ride the shared cookie jar.
type Service interface {
	// Add puts quantity units of a product in the cart and returns the
	// updated cart. Stock and ownership checks belong to the server;
	// quantities are forwarded as-is.
	Add(ctx context.Context, productID int64, quantity int) (*Cart, error)
	// Fetch returns the current cart, nil when the user has none yet.
	Fetch(ctx context.Context) (*Cart, error)
	// Count returns the summed quantity across all lines.
	Count(ctx context.Context) (int, error)
	// UpdateItem sets a line's quantity by cart item id.
	UpdateItem(ctx context.Context, itemID string, quantity int) (*Cart, error)
	// RemoveItem deletes one line by cart item id.
	RemoveItem(ctx context.Context, itemID string) (*Cart, error)
	// Clear empties the whole cart.
	Clear(ctx context.Context) (*Cart, error)
	// Merge folds anonymous cart lines into the server cart and returns the
	// merged result.
	Merge(ctx context.Context, items []types.MergeItem) (*Cart, error)
}

type service struct {
	client apiClient
	logg   *logger.Logger
}

// NewService builds the cart client over the wrapped HTTP client.
func NewService(client apiClient, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("api client required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{client: client, logg: logg}, nil
}

func (s *service) Add(ctx context.Context, productID int64, quantity int) (*Cart, error) {
	var cart Cart
	body := addItemRequest{ProductID: productID, Quantity: quantity}
	if err := s.client.Do(ctx, http.MethodPost, basePath, body, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *service) Fetch(ctx context.Context) (*Cart, error) {
	var cart *Cart
	if err := s.client.Do(ctx, http.MethodGet, basePath, nil, &cart); err != nil {
		return nil, err
	}
	return cart, nil
}

func (s *service) Count(ctx context.Context) (int, error) {
	var resp countResponse
	if err := s.client.Do(ctx, http.MethodGet, basePath+"/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (s *service) UpdateItem(ctx context.Context, itemID string, quantity int) (*Cart, error) {
	if itemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	var cart Cart
	path := fmt.Sprintf("%s/%s", basePath, itemID)
	if err := s.client.Do(ctx, http.MethodPatch, path, updateItemRequest{Quantity: quantity}, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *service) RemoveItem(ctx context.Context, itemID string) (*Cart, error) {
	if itemID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cart item id is required")
	}
	var cart Cart
	path := fmt.Sprintf("%s/%s", basePath, itemID)
	if err := s.client.Do(ctx, http.MethodDelete, path, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *service) Clear(ctx context.Context) (*Cart, error) {
	var cart Cart
	if err := s.client.Do(ctx, http.MethodDelete, basePath, nil, &cart); err != nil {
		return nil, err
	}
	return &cart, nil
}

func (s *service) Merge(ctx context.Context, items []types.MergeItem) (*Cart, error) {
	var cart Cart
	if err := s.client.Do(ctx, http.MethodPost, basePath+"/merge", mergeRequest{Items: items}, &cart); err != nil {
		return nil, err
	}
	s.logg.Debug(s.logg.WithField(ctx, "items", len(items)), "cart merge request completed")
	return &cart, nil
}
