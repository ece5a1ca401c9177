package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// HTTP server
	Port string

	// Cache
	CacheBackend  string // "redis" or "sqlite"
	CacheTTL      time.Duration
	CacheDBPath   string // sqlite backend only
	RedisHost     string
	RedisPort     int
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel  string
	LogFormat string // json, console
	LogOutput string

	// Scraping
	RatePerSecond        float64
	RateBurst            int
	MaxConcurrent        int
	IncludeNonDiscounted bool

	// Per-store listing URL overrides, keyed by store name. A store with
	// an invalid override is not registered at startup.
	StoreURLs      map[string]string
	DisabledStores map[string]bool
}

// Default returns configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Port:           "8080",
		CacheBackend:   "redis",
		CacheTTL:       time.Hour,
		CacheDBPath:    "./cache.db",
		RedisHost:      "localhost",
		RedisPort:      6379,
		LogLevel:       "info",
		LogFormat:      "console",
		LogOutput:      "stdout",
		RatePerSecond:  1.0,
		RateBurst:      3,
		MaxConcurrent:  3,
		StoreURLs:      make(map[string]string),
		DisabledStores: make(map[string]bool),
	}
}

// Load reads .env (silently ignored if missing) then overrides defaults from
// environment variables.
func Load() *Config {
	_ = godotenv.Load()

	c := Default()

	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("CACHE_BACKEND"); v != "" {
		c.CacheBackend = strings.ToLower(v)
	}
	if v := os.Getenv("CACHE_TTL_MINUTES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.CacheTTL = time.Duration(n) * time.Minute
		}
	}
	if v := os.Getenv("CACHE_DB_PATH"); v != "" {
		c.CacheDBPath = v
	}
	if v := os.Getenv("REDIS_HOST"); v != "" {
		c.RedisHost = v
	}
	if v := os.Getenv("REDIS_PORT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisPort = n
		}
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.RedisPassword = v
	}
	if v := os.Getenv("REDIS_DB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.RedisDB = n
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("LOG_OUTPUT"); v != "" {
		c.LogOutput = v
	}
	if v := os.Getenv("SCRAPE_RATE_PER_SECOND"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			c.RatePerSecond = f
		}
	}
	if v := os.Getenv("SCRAPE_RATE_BURST"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.RateBurst = n
		}
	}
	if v := os.Getenv("SCRAPE_MAX_CONCURRENT"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			c.MaxConcurrent = n
		}
	}
	if v := os.Getenv("INCLUDE_NON_DISCOUNTED"); v == "true" {
		c.IncludeNonDiscounted = true
	}
	if v := os.Getenv("DISABLED_STORES"); v != "" {
		for _, name := range strings.Split(v, ",") {
			c.DisabledStores[strings.ToLower(strings.TrimSpace(name))] = true
		}
	}
	for _, store := range []string{"zara", "amazon", "mango"} {
		if v := os.Getenv(strings.ToUpper(store) + "_URL"); v != "" {
			c.StoreURLs[store] = v
		}
	}

	return c
}

// StoreURL validates and returns the configured listing URL for a store, or
// fallback when no override is set. An override that is not an absolute
// http(s) URL is a configuration error.
func (c *Config) StoreURL(store, fallback string) (string, error) {
	override, ok := c.StoreURLs[store]
	if !ok {
		return fallback, nil
	}
	u, err := url.Parse(override)
	if err != nil || !u.IsAbs() || (u.Scheme != "http" && u.Scheme != "https") {
		return "", fmt.Errorf("invalid listing URL for %s: %q", store, override)
	}
	return override, nil
}
