package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is a Cache backed by ristretto.
type RistrettoCache struct {
	cache  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds configuration for the ristretto cache.
type RistrettoConfig struct {
	NumCounters int64 // keys tracked for frequency, ~10x max items
	MaxCost     int64 // maximum number of items
	BufferItems int64 // keys per Get buffer
	Logger      *zap.Logger
}

// NewRistrettoCache creates a ristretto-backed appraisal cache.
func NewRistrettoCache(cfg *RistrettoConfig) (Cache, error) {
	c, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{
		cache:  c,
		logger: cfg.Logger,
	}, nil
}

// Get retrieves a cached appraisal.
func (r *RistrettoCache) Get(key string) (float64, bool) {
	value, found := r.cache.Get(key)
	if !found {
		CacheMissesTotal.Inc()
		return 0, false
	}
	v, ok := value.(float64)
	if !ok {
		return 0, false
	}
	CacheHitsTotal.Inc()
	return v, true
}

// Set stores an appraisal with a TTL. Each entry has unit cost.
func (r *RistrettoCache) Set(key string, value float64, ttl time.Duration) bool {
	ok := r.cache.SetWithTTL(key, value, 1, ttl)
	if ok {
		CacheSetsTotal.Inc()
	}
	return ok
}

// Delete removes an entry.
func (r *RistrettoCache) Delete(key string) {
	r.cache.Del(key)
}

// Close releases cache resources.
func (r *RistrettoCache) Close() {
	r.cache.Close()
	r.logger.Info("appraisal-cache-closed")
}

// Wait blocks until pending writes are applied. Useful in tests.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}
