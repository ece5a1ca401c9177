package mango

import (
	"context"
	"time"

	"github.com/chromedp/chromedp"

	"dealscout/pkg/scrapers"
)

const (
	Store             = "mango"
	BaseURL           = "https://shop.mango.com"
	DefaultListingURL = "https://shop.mango.com/tr/tr/c/erkek/promosyon_106c5d6d"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"
)

// Fetcher scrapes mango's Turkish sale page, which renders its product list
// into a virtualized grid after page load.
type Fetcher struct {
	ListingURL  string
	WaitTimeout time.Duration
}

func NewFetcher() *Fetcher {
	return &Fetcher{
		ListingURL:  DefaultListingURL,
		WaitTimeout: 45 * time.Second,
	}
}

func (f *Fetcher) Store() string { return Store }

type virtualItem struct {
	Name     string `json:"name"`
	Href     string `json:"href"`
	Image    string `json:"image"`
	OldPrice string `json:"old_price"`
	Price    string `json:"price"`
}

// The single centered price is the pre-discount price; the last
// finalPrice node, when present, is the discounted one.
const extractJS = `
	Array.from(document.querySelectorAll(".virtual-item")).map(item => {
		const title = item.querySelector("[class^='ProductTitle_productTitle']");
		const link = item.querySelector("a");
		const img = item.querySelector("img");
		const finals = item.querySelectorAll("[class^='SinglePrice_finalPrice']");
		return {
			name: title ? title.innerText.trim() : "",
			href: link ? (link.getAttribute("href") || "") : "",
			image: img ? (img.getAttribute("src") || "") : "",
			old_price: item.querySelector("[class^='SinglePrice_center']")?.innerText || "",
			price: finals.length ? finals[finals.length - 1].innerText : "",
		};
	})
`

func (f *Fetcher) Fetch(ctx context.Context) ([]scrapers.RawListing, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.WindowSize(1920, 1080),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	defer cancelAlloc()

	tabCtx, cancelTab := chromedp.NewContext(allocCtx)
	defer cancelTab()

	scrapeCtx, cancelScrape := context.WithTimeout(tabCtx, f.WaitTimeout)
	defer cancelScrape()

	var items []virtualItem
	err := chromedp.Run(scrapeCtx,
		chromedp.Navigate(f.ListingURL),
		chromedp.WaitReady(`.virtual-list`, chromedp.ByQuery),
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
