package cache

import (
	"time"
)

// Entry is a cached response body.
type Entry struct {
	// Data is the raw response body
	Data []byte `json:"data"`

	// Locator is the endpoint locator the body was fetched for
	Locator string `json:"locator"`

	// CachedAt is when the body was stored
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry becomes stale
	Expires time.Time `json:"expires"`
}

// IsExpired returns true if the entry has expired.
func (e *Entry) IsExpired() bool {
	return !time.Now().Before(e.Expires)
}

// TTL returns the time until expiration, or 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
