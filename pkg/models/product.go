package models

// Product is the canonical listing record every store maps into.
// Prices keep their display formatting for the client; DiscountPercent
// is derived from the parsed numeric values during normalization and a
// Product is never mutated after construction.
type Product struct {
	Name            string  `json:"name"`
	OriginalPrice   string  `json:"original_price"`
	DiscountedPrice string  `json:"discounted_price"`
	DiscountPercent float64 `json:"discount_percent"`
	PurchaseURL     string  `json:"purchase_url"`
	ImageURL        string  `json:"image_url"`
	Store           string  `json:"store"`
	Category        string  `json:"category"`
}
