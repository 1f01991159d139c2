package localcart

import (
	"time"

	"github.com/angelmondragon/packfinderz-storefront/pkg/types"
)

// FormatVersion guards the persisted cart blob. Blobs written with any other
// version are treated as unreadable and reset to an empty cart.
const FormatVersion = "1"

// Item is one line of the anonymous cart. The product snapshot is captured at
// add time so the cart renders without catalog round trips.
type Item struct {
	ProductID int64         `json:"product_id"`
	Quantity  int           `json:"quantity"`
	Product   types.Product `json:"product"`
	AddedAt   time.Time     `json:"added_at"`
}

// Cart is the whole persisted anonymous cart. One blob, one fixed key.
type Cart struct {
	Version   string    `json:"version"`
	Items     []Item    `json:"items"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newCart(now time.Time) *Cart {
	return &Cart{
		Version:   FormatVersion,
		Items:     []Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ItemCount sums quantities across lines, not the number of lines.
func (c *Cart) ItemCount() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// SubtotalCents prices every line at the snapshot's effective unit price.
func (c *Cart) SubtotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.Product.UnitPriceCents() * int64(item.Quantity)
	}
	return total
}

func (c *Cart) indexOf(productID int64) int {
	for i, item := range c.Items {
		if item.ProductID == productID {
			return i
		}
	}
	return -1
}
