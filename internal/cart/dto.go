package cart

import (
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// Cart is the authenticated cart exactly as the storefront returns it. The
// client never assembles one locally; it only decodes server state.
type Cart struct {
	ID            string    `json:"id"`
	Items         []Item    `json:"items"`
	SubtotalCents int64     `json:"subtotal_cents"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Item is one server cart line. Quantity is always at least 1: the server
// removes a line instead of storing a zero.
type Item struct {
	ID             string `json:"id"`
	ProductID      int64  `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents"`
	LineTotalCents int64  `json:"line_total_cents"`
}

// ItemCount sums quantities across lines, matching the count endpoint.
func (c *Cart) ItemCount() int {
	if c == nil {
		return 0
	}
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

type addItemRequest struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

type mergeRequest struct {
	Items []types.MergeItem `json:"items"`
}

type countResponse struct {
	Count int `json:"count"`
}
