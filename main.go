package main

import (
	"fmt"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	scalargo "github.com/bdpiprava/scalar-go"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"dealscout/pkg/aggregator"
	"dealscout/pkg/api"
	"dealscout/pkg/cache"
	"dealscout/pkg/category"
	"dealscout/pkg/config"
	"dealscout/pkg/logger"
	"dealscout/pkg/normalize"
	"dealscout/pkg/query"
	"dealscout/pkg/scrapers"
	"dealscout/pkg/scrapers/amazon"
	"dealscout/pkg/scrapers/mango"
	"dealscout/pkg/scrapers/zara"
)

type server struct {
	agg *aggregator.Aggregator
	log *zap.Logger
}

func main() {
	cfg := config.Load()

	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Output: cfg.LogOutput})
	defer log.Sync()

	backend, err := newBackend(cfg, log)
	if err != nil {
		log.Fatal("failed to initialize cache backend", zap.Error(err))
	}
	defer backend.Close()

	products := cache.NewProducts(backend, cfg.CacheTTL, log)
	log.Info("cache initialized",
		zap.String("backend", cfg.CacheBackend),
		zap.Duration("ttl", cfg.CacheTTL))

	registry, profiles := buildSources(cfg, log)
	if registry.Len() == 0 {
		log.Fatal("no sources registered, nothing to serve")
	}
	log.Info("sources registered", zap.Strings("stores", registry.Stores()))

	agg := aggregator.New(registry, products, profiles, aggregator.Options{
		Limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
		MaxConcurrent: cfg.MaxConcurrent,
	}, log)

	srv := &server{agg: agg, log: log}

	mux := http.NewServeMux()
	mux.HandleFunc("/discounted-products", srv.handleProducts)
	mux.HandleFunc("/sources", srv.handleSources)
	mux.HandleFunc("/", srv.handleDocs)

	if ip := GetOutboundIP(); ip != nil {
		fmt.Printf("Local Network URL: http://%s:%s\n", ip.String(), cfg.Port)
	}
	fmt.Printf("Access URL: http://localhost:%s\n", cfg.Port)
	fmt.Printf("API Docs: http://localhost:%s/\n", cfg.Port)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	log.Fatal("server stopped", zap.Error(httpServer.ListenAndServe()))
}

func newBackend(cfg *config.Config, log *zap.Logger) (cache.Backend, error) {
	switch cfg.CacheBackend {
	case "sqlite":
		return cache.NewSQLite(cfg.CacheDBPath, log)
	default:
		return cache.NewRedis(cache.RedisConfig{
			Host:     cfg.RedisHost,
			Port:     cfg.RedisPort,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, log)
	}
}

// buildSources registers every enabled store. A store with an invalid
// configured URL is left unregistered and logged; startup continues with
// the remaining stores.
func buildSources(cfg *config.Config, log *zap.Logger) (*scrapers.Registry, map[string]*normalize.Profile) {
	registry := scrapers.NewRegistry()
	profiles := make(map[string]*normalize.Profile)

	type source struct {
		defaultURL string
		build      func(url string) scrapers.Fetcher
		profile    *normalize.Profile
	}

	sources := []struct {
		name string
		source
	}{
		{"zara", source{
			defaultURL: zara.DefaultListingURL,
			build: func(url string) scrapers.Fetcher {
				f := zara.NewFetcher()
				f.ListingURL = url
				return f
			},
			profile: &normalize.Profile{
				Store:          zara.Store,
				BaseURL:        zara.BaseURL,
				CurrencyTokens: []string{"$"},
				DecimalSep:     '.',
				ThousandsSep:   ',',
				Rules:          category.English,
			},
		}},
		{"amazon", source{
			defaultURL: amazon.DefaultListingURL,
			build: func(url string) scrapers.Fetcher {
				f := amazon.NewFetcher()
				f.ListingURL = url
				return f
			},
			profile: &normalize.Profile{
				Store:          amazon.Store,
				BaseURL:        amazon.BaseURL,
				CurrencyTokens: []string{"$"},
				DecimalSep:     '.',
				ThousandsSep:   ',',
				Rules:          category.English,
			},
		}},
		{"mango", source{
			defaultURL: mango.DefaultListingURL,
			build: func(url string) scrapers.Fetcher {
				f := mango.NewFetcher()
				f.ListingURL = url
				return f
			},
			profile: &normalize.Profile{
				Store:          mango.Store,
				BaseURL:        mango.BaseURL,
				CurrencyTokens: []string{"TL", "₺"},
				DecimalSep:     ',',
				ThousandsSep:   '.',
				Rules:          category.Turkish,
			},
		}},
	}

	for _, s := range sources {
		if cfg.DisabledStores[s.name] {
			log.Info("source disabled", zap.String("store", s.name))
			continue
		}
		url, err := cfg.StoreURL(s.name, s.defaultURL)
		if err != nil {
			log.Warn("source not registered", zap.String("store", s.name), zap.Error(err))
			continue
		}
		s.profile.KeepNonDiscounted = cfg.IncludeNonDiscounted
		if err := registry.Register(s.build(url)); err != nil {
			log.Warn("source not registered", zap.String("store", s.name), zap.Error(err))
			continue
		}
		profiles[s.name] = s.profile
	}

	return registry, profiles
}

func (s *server) handleProducts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "Use GET.", r.URL.Path)
		return
	}

	params, errDetail := parseQuery(r)
	if errDetail != "" {
		api.WriteBadRequest(w, errDetail, r.URL.Path)
		return
	}
	if params.Store == "all" {
		params.Store = ""
	}

	// Scraping, cache, and normalization failures never surface here:
	// the client always gets a (possibly partial or empty) list.
	products := s.agg.Collect(r.Context(), params.Store)
	result := query.Apply(products, params)

	if err := api.WriteJSON(w, result); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *server) handleSources(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		api.WriteError(w, http.StatusMethodNotAllowed, "Method Not Allowed", "Use GET.", r.URL.Path)
		return
	}
	if err := api.WriteJSON(w, s.agg.Health()); err != nil {
		s.log.Error("failed to encode response", zap.Error(err))
	}
}

func (s *server) handleDocs(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		api.WriteNotFound(w, "Unknown path. See / for API docs.", r.URL.Path)
		return
	}

	html, err := scalargo.NewV2(
		scalargo.WithSpecDir("./"),
		scalargo.WithMetaDataOpts(
			scalargo.WithTitle("Discounted Products API"),
		),
	)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, html)
}

// parseQuery validates the filter and pagination parameters. The second
// return value is a non-empty problem detail on invalid input.
func parseQuery(r *http.Request) (query.Params, string) {
	q := r.URL.Query()

	params := query.Params{
		Store:    strings.ToLower(strings.TrimSpace(q.Get("store"))),
		Category: strings.ToLower(strings.TrimSpace(q.Get("category"))),
		Page:     1,
		PageSize: 10,
	}

	if v := q.Get("min_discount"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return params, fmt.Sprintf("Invalid min_discount: %q. Must be a number.", v)
		}
		if f < 0 || f > 100 {
			return params, fmt.Sprintf("Invalid min_discount: %v. Must be within [0, 100].", f)
		}
		params.MinDiscount = f
		params.HasMinDiscount = true
	}

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return params, fmt.Sprintf("Invalid page: %q. Must be an integer >= 1.", v)
		}
		params.Page = n
	}

	if v := q.Get("page_size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return params, fmt.Sprintf("Invalid page_size: %q. Must be an integer >= 1.", v)
		}
		if n > 100 {
			n = 100
		}
		params.PageSize = n
	}

	return params, ""
}

func GetOutboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		addrs, _ := net.InterfaceAddrs()
		for _, addr := range addrs {
			if ipnet, ok := addr.(*net.IPNet); ok && !ipnet.IP.IsLoopback() {
				if ipnet.IP.To4() != nil {
					return ipnet.IP
				}
			}
		}
		return nil
	}
	defer conn.Close()

	localAddr := conn.LocalAddr().(*net.UDPAddr)

	return localAddr.IP
}
