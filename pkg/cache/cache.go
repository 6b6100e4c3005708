package cache

import "time"

// Cache stores computed appraisals keyed by option ID. Agents re-appraise
// the same option on every outbid event and offer evaluation; the cache
// bounds that work.
type Cache interface {
	// Get retrieves a cached appraisal.
	Get(key string) (float64, bool)

	// Set stores an appraisal with a TTL. Returns false if dropped.
	Set(key string, value float64, ttl time.Duration) bool

	// Delete removes an entry.
	Delete(key string)

	// Close releases cache resources.
	Close()
}
