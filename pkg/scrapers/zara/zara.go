package zara

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"dealscout/pkg/scrapers"
)

const (
	Store             = "zara"
	BaseURL           = "https://www.zara.com"
	DefaultListingURL = "https://www.zara.com/us/en/man-all-products-l7465.html"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Fetcher loads zara's listing grid in a headless browser; the grid is
// rendered client-side, so a plain GET returns no products.
type Fetcher struct {
	ListingURL string
	// WaitTimeout bounds the whole page load including the wait for the
	// product grid to render. On expiry the fetch fails, it never hangs.
	WaitTimeout time.Duration
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		ListingURL:  DefaultListingURL,
		WaitTimeout: 45 * time.Second,
	}
}

func (f *Fetcher) Store() string { return Store }

type gridItem struct {
	Name     string `json:"name"`
	Href     string `json:"href"`
	Image    string `json:"image"`
	OldPrice string `json:"old_price"`
	Price    string `json:"price"`
}

const extractJS = `
	Array.from(document.querySelectorAll("div.product-grid-product")).map(item => {
		const link = item.querySelector("a.name");
		const img = item.querySelector("img");
		return {
			name: link ? link.innerText.trim() : "",
			href: link ? (link.getAttribute("href") || "") : "",
			image: img ? (img.getAttribute("src") || "") : "",
			old_price: item.querySelector("span.old-price")?.innerText || "",
			price: item.querySelector("span.price__amount-current")?.innerText || "",
		};
	})
`

func (f *Fetcher) Fetch(ctx context.Context) ([]scrapers.RawListing, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	scrapeCtx, cancelScrape := context.WithTimeout(tabCtx, f.WaitTimeout)
	defer cancelScrape()

	var items []gridItem
	err := chromedp.Run(scrapeCtx,
		chromedp.Navigate(f.ListingURL),
		chromedp.WaitReady(`div.product-grid-product`, chromedp.ByQuery),
		chromedp.Evaluate(extractJS, &items),
	)
	if err != nil {
		return nil, &scrapers.FetchError{Store: Store, Err: err}
	}

	raws := make([]scrapers.RawListing, 0, len(items))
	for _, item := range items {
		raws = append(raws, scrapers.RawListing{
			Name:            item.Name,
			OriginalPrice:   item.OldPrice,
			DiscountedPrice: item.Price,
			ImageRef:        item.Image,
			LinkRef:         item.Href,
		})
	}
	return raws, nil
}
