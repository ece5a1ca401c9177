package normalize

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"dealscout/pkg/category"
	"dealscout/pkg/models"
	"dealscout/pkg/scrapers"
)

// Skip explains why a raw listing was dropped instead of becoming a Product.
// The empty value means the listing was emitted.
type Skip string

const (
	SkipMissingName        Skip = "missing_name"
	SkipMissingURL         Skip = "missing_url"
	SkipBadOriginalPrice   Skip = "bad_original_price"
	SkipBadDiscountedPrice Skip = "bad_discounted_price"
	SkipNotDiscounted      Skip = "not_discounted"
	SkipNegativeDiscount   Skip = "negative_discount"
)

// Stats counts skipped listings per reason across one fetch.
type Stats map[Skip]int

// Profile holds one store's formatting conventions. Each store has its own
// currency tokens and decimal/thousands separators; there is no global
// convention.
type Profile struct {
	Store          string
	BaseURL        string
	CurrencyTokens []string
	DecimalSep     rune
	ThousandsSep   rune
	Rules          []category.Rule

	// KeepNonDiscounted emits zero-discount listings instead of skipping
	// them. Off by default: the service exists to find discounts.
	KeepNonDiscounted bool
}

// ParsePrice strips the profile's currency tokens and separators from a raw
// price text and parses the remainder as a float.
func (p *Profile) ParsePrice(raw string) (float64, error) {
	s := raw
	for _, tok := range p.CurrencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	if p.ThousandsSep != 0 {
		s = strings.ReplaceAll(s, string(p.ThousandsSep), "")
	}
	if p.DecimalSep != 0 && p.DecimalSep != '.' {
		s = strings.ReplaceAll(s, string(p.DecimalSep), ".")
	}
	s = strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if s == "" {
		return 0, fmt.Errorf("no numeric value in %q", raw)
	}
	val, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse price %q: %w", raw, err)
	}
	return val, nil
}

// Normalize builds one Product from a raw listing, or reports why it was
// skipped. Listings with a non-positive original price, a discounted price
// above the original, or a non-positive discount never become Products.
func (p *Profile) Normalize(raw scrapers.RawListing) (models.Product, Skip) {
	name := strings.TrimSpace(raw.Name)
	if name == "" {
		return models.Product{}, SkipMissingName
	}

	purchaseURL := p.resolveRef(raw.LinkRef)
	if purchaseURL == "" {
		return models.Product{}, SkipMissingURL
	}

	origText := strings.TrimSpace(raw.OriginalPrice)
	discText := strings.TrimSpace(raw.DiscountedPrice)
	// A single advertised price means no discount: it counts as both.
	if origText == "" {
		origText = discText
	}
	if discText == "" {
		discText = origText
	}

	orig, err := p.ParsePrice(origText)
	if err != nil || orig <= 0 {
		return models.Product{}, SkipBadOriginalPrice
	}
	disc, err := p.ParsePrice(discText)
	if err != nil || disc <= 0 {
		return models.Product{}, SkipBadDiscountedPrice
	}
	if disc > orig {
		return models.Product{}, SkipNegativeDiscount
	}

	percent := roundPercent((orig - disc) / orig * 100)
	if percent <= 0 && !p.KeepNonDiscounted {
		return models.Product{}, SkipNotDiscounted
	}

	return models.Product{
		Name:            name,
		OriginalPrice:   origText,
		DiscountedPrice: discText,
		DiscountPercent: percent,
		PurchaseURL:     purchaseURL,
		ImageURL:        p.resolveRef(raw.ImageRef),
		Store:           p.Store,
		Category:        category.Classify(name, p.Rules),
	}, ""
}

// Run normalizes a whole fetch, returning the emitted Products in input
// order together with skip counts for observability.
func (p *Profile) Run(raws []scrapers.RawListing) ([]models.Product, Stats) {
	products := make([]models.Product, 0, len(raws))
	stats := make(Stats)
	for _, raw := range raws {
		product, skip := p.Normalize(raw)
		if skip != "" {
			stats[skip]++
			continue
		}
		products = append(products, product)
	}
	return products, stats
}

// Total returns the number of skipped listings.
func (s Stats) Total() int {
	n := 0
	for _, c := range s {
		n += c
	}
	return n
}

// resolveRef turns a raw link or image reference into an absolute URL using
// the store's base domain. Returns "" when the reference is empty or cannot
// be resolved into an absolute URL.
func (p *Profile) resolveRef(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return ""
	}
	base, err := url.Parse(p.BaseURL)
	if err != nil {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	resolved := base.ResolveReference(u)
	if !resolved.IsAbs() {
		return ""
	}
	return resolved.String()
}

func roundPercent(v float64) float64 {
	return math.Round(v*100) / 100
}
