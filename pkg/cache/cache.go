package cache

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"dealscout/pkg/models"
)

// Backend is the minimal key-value contract the cache-aside layer needs:
// best-effort get/set with per-key expiry. A backend failure is never a
// request failure — reads degrade to misses, writes are fire-and-forget.
type Backend interface {
	Get(ctx context.Context, key string) (string, bool)
	Set(ctx context.Context, key, value string, ttl time.Duration)
	Close() error
}

const keyPrefix = "deals:"

// Products stores one serialized listing snapshot per store. Granularity is
// deliberately "all current listings for a store": filters run after cache
// retrieval, so one key serves every query shape.
type Products struct {
	backend Backend
	ttl     time.Duration
	log     *zap.Logger
}

func NewProducts(backend Backend, ttl time.Duration, log *zap.Logger) *Products {
	return &Products{backend: backend, ttl: ttl, log: log}
}

// Get returns the cached snapshot for a store, or false on a miss, an
// expired entry, or any backend problem.
func (c *Products) Get(ctx context.Context, store string) ([]models.Product, bool) {
	data, ok := c.backend.Get(ctx, keyPrefix+store)
	if !ok {
		return nil, false
	}
	var products []models.Product
	if err := json.Unmarshal([]byte(data), &products); err != nil {
		c.log.Warn("cache: discarding undecodable entry", zap.String("store", store), zap.Error(err))
		return nil, false
	}
	return products, true
}

// Set writes the snapshot for a store. Best-effort: serialization or backend
// failures are logged and swallowed.
func (c *Products) Set(ctx context.Context, store string, products []models.Product) {
	data, err := json.Marshal(products)
	if err != nil {
		c.log.Warn("cache: failed to marshal products", zap.String("store", store), zap.Error(err))
		return
	}
	c.backend.Set(ctx, keyPrefix+store, string(data), c.ttl)
}

// TTL reports the configured entry lifetime.
func (c *Products) TTL() time.Duration {
	return c.ttl
}
