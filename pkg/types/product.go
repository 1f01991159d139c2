package types

// Product is the catalog snapshot the storefront serves. Either price may be
// absent: promotions clear originals, unpriced drafts carry neither.
type Product struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	OriginalPriceCents   *int64 `json:"original_price_cents,omitempty"`
	DiscountedPriceCents *int64 `json:"discounted_price_cents,omitempty"`
	ImageURL             string `json:"image_url,omitempty"`
}

// UnitPriceCents resolves the effective unit price: the discounted price when
// present, else the original, else zero. Products missing both prices price
// their lines at zero rather than failing.
func (p Product) UnitPriceCents() int64 {
	if p.DiscountedPriceCents != nil {
		return *p.DiscountedPriceCents
	}
	if p.OriginalPriceCents != nil {
		return *p.OriginalPriceCents
	}
	return 0
}

// MergeItem is one line of the cart merge payload.
type MergeItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}
