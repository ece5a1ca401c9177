package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"dealscout/pkg/aggregator"
	"dealscout/pkg/api"
	"dealscout/pkg/cache"
	"dealscout/pkg/category"
	"dealscout/pkg/models"
	"dealscout/pkg/normalize"
	"dealscout/pkg/scrapers"
)

type fixtureFetcher struct {
	store    string
	listings []scrapers.RawListing
	err      error
}

func (f *fixtureFetcher) Store() string { return f.store }

func (f *fixtureFetcher) Fetch(context.Context) ([]scrapers.RawListing, error) {
	if f.err != nil {
		return nil, &scrapers.FetchError{Store: f.store, Err: f.err}
	}
	return f.listings, nil
}

func newTestServer(t *testing.T, fetchers ...*fixtureFetcher) *server {
	t.Helper()

	registry := scrapers.NewRegistry()
	profiles := make(map[string]*normalize.Profile)
	for _, f := range fetchers {
		if err := registry.Register(f); err != nil {
			t.Fatalf("register %s: %v", f.store, err)
		}
		profiles[f.store] = &normalize.Profile{
			Store:          f.store,
			BaseURL:        "https://" + f.store + ".example.com",
			CurrencyTokens: []string{"$"},
			DecimalSep:     '.',
			ThousandsSep:   ',',
			Rules:          category.English,
		}
	}

	backend, err := cache.NewSQLite(filepath.Join(t.TempDir(), "cache.db"), zap.NewNop())
	if err != nil {
		t.Fatalf("NewSQLite: %v", err)
	}
	t.Cleanup(func() { backend.Close() })

	products := cache.NewProducts(backend, time.Hour, zap.NewNop())
	agg := aggregator.New(registry, products, profiles, aggregator.Options{MaxConcurrent: 3}, zap.NewNop())
	return &server{agg: agg, log: zap.NewNop()}
}

func zaraFixture() *fixtureFetcher {
	return &fixtureFetcher{
		store: "zara",
		listings: []scrapers.RawListing{
			{
				Name:            "Quilted Jacket",
				OriginalPrice:   "$100.00",
				DiscountedPrice: "$75.00",
				LinkRef:         "/us/en/quilted-jacket.html",
				ImageRef:        "https://static.zara.example.com/jacket.jpg",
			},
			{
				Name:            "Oxford Shirt",
				OriginalPrice:   "$100.00",
				DiscountedPrice: "$40.00",
				LinkRef:         "/us/en/oxford-shirt.html",
			},
		},
	}
}

func TestProductHandlerBadParams(t *testing.T) {
	srv := newTestServer(t, zaraFixture())

	tests := []struct {
		name           string
		method         string
		target         string
		expectedStatus int
		expectedDetail string
	}{
		{
			name:           "Non-numeric min_discount",
			method:         http.MethodGet,
			target:         "/discounted-products?min_discount=abc",
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Invalid min_discount",
		},
		{
			name:           "min_discount out of range",
			method:         http.MethodGet,
			target:         "/discounted-products?min_discount=140",
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Must be within [0, 100]",
		},
		{
			name:           "Zero page",
			method:         http.MethodGet,
			target:         "/discounted-products?page=0",
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Invalid page",
		},
		{
			name:           "Non-numeric page_size",
			method:         http.MethodGet,
			target:         "/discounted-products?page_size=many",
			expectedStatus: http.StatusBadRequest,
			expectedDetail: "Invalid page_size",
		},
		{
			name:           "Wrong method",
			method:         http.MethodPost,
			target:         "/discounted-products",
			expectedStatus: http.StatusMethodNotAllowed,
			expectedDetail: "Use GET.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, tt.target, nil)
			rr := httptest.NewRecorder()

			srv.handleProducts(rr, req)

			if rr.Code != tt.expectedStatus {
				t.Errorf("status = %d, want %d", rr.Code, tt.expectedStatus)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/problem+json" {
				t.Errorf("content type = %q", ct)
			}

			var pd api.ProblemDetails
			if err := json.Unmarshal(rr.Body.Bytes(), &pd); err != nil {
				t.Fatalf("invalid JSON body: %v. Body: %s", err, rr.Body.String())
			}
			if pd.Status != tt.expectedStatus {
				t.Errorf("problem status = %d, want %d", pd.Status, tt.expectedStatus)
			}
			if !strings.Contains(pd.Detail, tt.expectedDetail) {
				t.Errorf("detail = %q, want substring %q", pd.Detail, tt.expectedDetail)
			}
		})
	}
}

func TestDiscountedProductsEndToEnd(t *testing.T) {
	srv := newTestServer(t, zaraFixture())

	req := httptest.NewRequest(http.MethodGet, "/discounted-products?store=zara&min_discount=50", nil)
	rr := httptest.NewRecorder()
	srv.handleProducts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var products []models.Product
	if err := json.Unmarshal(rr.Body.Bytes(), &products); err != nil {
		t.Fatalf("invalid JSON: %v. Body: %s", err, rr.Body.String())
	}
	if len(products) != 1 {
		t.Fatalf("expected exactly the 60%% product, got %d products", len(products))
	}

	p := products[0]
	if p.Name != "Oxford Shirt" {
		t.Errorf("name = %q", p.Name)
	}
	if p.DiscountPercent != 60 {
		t.Errorf("discount = %v, want 60", p.DiscountPercent)
	}
	if p.PurchaseURL != "https://zara.example.com/us/en/oxford-shirt.html" {
		t.Errorf("purchase URL = %q", p.PurchaseURL)
	}
	if p.ImageURL != "" {
		t.Errorf("missing image must serialize as empty string, got %q", p.ImageURL)
	}
	if p.Store != "zara" || p.Category != "shirt" {
		t.Errorf("store/category = %s/%s", p.Store, p.Category)
	}
}

func TestPartialSourceFailureStillSucceeds(t *testing.T) {
	amazonDown := &fixtureFetcher{store: "amazon", err: errors.New("expected container never appeared")}
	srv := newTestServer(t, zaraFixture(), amazonDown)

	req := httptest.NewRequest(http.MethodGet, "/discounted-products", nil)
	rr := httptest.NewRecorder()
	srv.handleProducts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 on partial failure", rr.Code)
	}

	var products []models.Product
	if err := json.Unmarshal(rr.Body.Bytes(), &products); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(products) != 2 {
		t.Fatalf("expected the healthy source's 2 products, got %d", len(products))
	}
	for _, p := range products {
		if p.Store != "zara" {
			t.Errorf("unexpected store %q in degraded result", p.Store)
		}
	}
}

func TestAllSourcesDownYieldsEmptyArray(t *testing.T) {
	down := &fixtureFetcher{store: "zara", err: errors.New("unreachable")}
	srv := newTestServer(t, down)

	req := httptest.NewRequest(http.MethodGet, "/discounted-products", nil)
	rr := httptest.NewRecorder()
	srv.handleProducts(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("body = %q, want empty JSON array", body)
	}
}

func TestSourcesHealthEndpoint(t *testing.T) {
	amazonDown := &fixtureFetcher{store: "amazon", err: errors.New("timeout")}
	srv := newTestServer(t, zaraFixture(), amazonDown)

	// Populate health by serving one request first.
	srv.handleProducts(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/discounted-products", nil))

	rr := httptest.NewRecorder()
	srv.handleSources(rr, httptest.NewRequest(http.MethodGet, "/sources", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}

	var health []aggregator.SourceStatus
	if err := json.Unmarshal(rr.Body.Bytes(), &health); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(health) != 2 {
		t.Fatalf("expected 2 source statuses, got %d", len(health))
	}
	if health[0].Store != "zara" || !health[0].OK {
		t.Errorf("zara status: %+v", health[0])
	}
	if health[1].Store != "amazon" || health[1].OK {
		t.Errorf("amazon status: %+v", health[1])
	}
}

func TestPaginationOverMergedResult(t *testing.T) {
	srv := newTestServer(t, zaraFixture())

	req := httptest.NewRequest(http.MethodGet, "/discounted-products?page=2&page_size=1", nil)
	rr := httptest.NewRecorder()
	srv.handleProducts(rr, req)

	var products []models.Product
	if err := json.Unmarshal(rr.Body.Bytes(), &products); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if len(products) != 1 || products[0].Name != "Oxford Shirt" {
		t.Errorf("page 2 of size 1: %+v", products)
	}

	req = httptest.NewRequest(http.MethodGet, "/discounted-products?page=9", nil)
	rr = httptest.NewRecorder()
	srv.handleProducts(rr, req)
	if body := strings.TrimSpace(rr.Body.String()); body != "[]" {
		t.Errorf("out-of-range page body = %q, want []", body)
	}
}
