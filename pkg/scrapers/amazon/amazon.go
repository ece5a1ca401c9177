package amazon

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"

	"dealscout/pkg/scrapers"
)

const (
	Store             = "amazon"
	BaseURL           = "https://www.amazon.com"
	DefaultListingURL = "https://www.amazon.com/s?i=specialty-aps&bbn=16225019011&rh=n%3A7141123011%2Cn%3A16225019011%2Cn%3A1040658"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Fetcher scrapes amazon's server-rendered results page. No browser needed;
// a bounded-timeout HTTP fetch with selector extraction is enough.
type Fetcher struct {
	ListingURL string
	// AllowedDomains restricts the collector; empty disables the check
	// (used by tests against a local fixture server).
	AllowedDomains []string
	Timeout        time.Duration
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		ListingURL:     DefaultListingURL,
		AllowedDomains: []string{"www.amazon.com"},
		Timeout:        30 * time.Second,
	}
}

func (f *Fetcher) Store() string { return Store }

func (f *Fetcher) Fetch(ctx context.Context) ([]scrapers.RawListing, error) {
	if err := ctx.Err(); err != nil {
		return nil, &scrapers.FetchError{Store: Store, Err: err}
	}

	// A fresh collector per fetch: colly tracks visited URLs, and the
	// listing URL is the same on every pass.
	c := colly.NewCollector(colly.UserAgent(userAgent))
	if len(f.AllowedDomains) > 0 {
		c.AllowedDomains = f.AllowedDomains
	}
	c.SetRequestTimeout(f.Timeout)

	var raws []scrapers.RawListing

	c.OnHTML("div[data-asin]", func(e *colly.HTMLElement) {
		sel := e.DOM

		name := strings.TrimSpace(sel.Find("span.a-text-normal").First().Text())
		if name == "" {
			// Sponsored shims and spacer rows carry data-asin too;
			// anything without a title is dropped, not an error.
			return
		}

		href := attrOr(sel.Find("a.a-link-normal").First(), "href")
		image := attrOr(sel.Find("img").First(), "src")
		// The struck-through list price sits in an a-text-price block;
		// the visible offer price is the remaining a-price block.
		original := strings.TrimSpace(sel.Find(".a-price.a-text-price .a-offscreen").First().Text())
		discounted := strings.TrimSpace(sel.Find(".a-price:not(.a-text-price) .a-offscreen").First().Text())

		raws = append(raws, scrapers.RawListing{
			Name:            name,
			OriginalPrice:   original,
			DiscountedPrice: discounted,
			ImageRef:        image,
			LinkRef:         href,
		})
	})

	if err := c.Visit(f.ListingURL); err != nil {
		return nil, &scrapers.FetchError{Store: Store, Err: err}
	}

	return raws, nil
}

func attrOr(sel *goquery.Selection, name string) string {
	val, _ := sel.Attr(name)
	return val
}
