package catalog

import (
	"context"
	"fmt"
	"net/http"

	pkgerrors "github.com/angelmondragon/packfinderz-storefront/pkg/errors"
	"github.com/angelmondragon/packfinderz-storefront/pkg/logger"
	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

const basePath = "/api/v1/products"

const (
	// DefaultPerPage is the page size used when the caller does not pick one.
	DefaultPerPage = 25
	// MaxPerPage caps how many products one page may request.
	MaxPerPage = 100
)

// ListParams selects one page of the catalog.
type ListParams struct {
	Page    int
	PerPage int
}

func (p ListParams) normalized() ListParams {
	if p.Page <= 0 {
		p.Page = 1
	}
	if p.PerPage <= 0 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Page is one page of catalog snapshots.
type Page struct {
	Products []types.Product `json:"products"`
	Page     int             `json:"page"`
	PerPage  int             `json:"per_page"`
	Total    int             `json:"total"`
}

type apiClient interface {
	Do(ctx context.Context, method, path string, body, out any) error
}

// Service reads product snapshots from the storefront API.
type Service interface {
	List(ctx context.Context, params ListParams) (*Page, error)
	Get(ctx context.Context, productID int64) (*types.Product, error)
}

type service struct {
	client apiClient
	logg   *logger.Logger
}

// NewService constructs a catalog client over the shared API client.
func NewService(client apiClient, logg *logger.Logger) (Service, error) {
	if client == nil {
		return nil, fmt.Errorf("api client is required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger is required")
	}
	return &service{client: client, logg: logg}, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*Page, error) {
	params = params.normalized()

	var page Page
	path := fmt.Sprintf("%s?page=%d&per_page=%d", basePath, params.Page, params.PerPage)
	if err := s.client.Do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (s *service) Get(ctx context.Context, productID int64) (*types.Product, error) {
	if productID <= 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id must be positive")
	}

	var product types.Product
	if err := s.client.Do(ctx, http.MethodGet, fmt.Sprintf("%s/%d", basePath, productID), nil, &product); err != nil {
		return nil, err
	}
	return &product, nil
}
