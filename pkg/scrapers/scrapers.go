package scrapers

import (
	"context"
	"fmt"
)

// RawListing is one semi-structured item as it comes off a listing page,
// before normalization. Price texts keep whatever formatting the store uses.
type RawListing struct {
	Name            string
	OriginalPrice   string
	DiscountedPrice string
	ImageRef        string
	LinkRef         string
}

// Fetcher retrieves the current raw listings for one store. A fetcher must
// bound its own waiting for dynamic content and must not fail for individual
// malformed items, only for fetch-level problems (unreachable page, expected
// container never appearing).
type Fetcher interface {
	Store() string
	Fetch(ctx context.Context) ([]RawListing, error)
}

// FetchError marks a source-level failure. The aggregator recovers it:
// the source contributes no products and the request continues.
type FetchError struct {
	Store string
	Err   error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Store, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}
