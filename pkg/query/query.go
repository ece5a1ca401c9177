package query

import (
	"strings"

	"dealscout/pkg/models"
)

// Params are the optional filters and the page window applied to the merged
// collection. Filters compose with AND; zero values are no-ops (MinDiscount
// is only applied when HasMinDiscount is set, so an explicit 0 still works).
type Params struct {
	Store          string
	Category       string
	MinDiscount    float64
	HasMinDiscount bool
	Page           int
	PageSize       int
}

// Filter selects the products matching every set filter. It never edits a
// product, only includes or excludes, and preserves input order.
func Filter(products []models.Product, p Params) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, product := range products {
		if p.Store != "" && !strings.EqualFold(product.Store, p.Store) {
			continue
		}
		if p.Category != "" && !strings.EqualFold(product.Category, p.Category) {
			continue
		}
		if p.HasMinDiscount && product.DiscountPercent < p.MinDiscount {
			continue
		}
		out = append(out, product)
	}
	return out
}

// Paginate returns the half-open page window [(page-1)*size, page*size).
// Out-of-range pages yield an empty slice, never an error.
func Paginate(products []models.Product, page, pageSize int) []models.Product {
	if page < 1 || pageSize < 1 {
		return []models.Product{}
	}
	start := (page - 1) * pageSize
	if start >= len(products) {
		return []models.Product{}
	}
	end := start + pageSize
	if end > len(products) {
		end = len(products)
	}
	return products[start:end]
}

// Apply runs Filter then Paginate in one step.
func Apply(products []models.Product, p Params) []models.Product {
	return Paginate(Filter(products, p), p.Page, p.PageSize)
}
