package cache

import "time"

// Cache is a goroutine-safe key-value store whose entries expire.
type Cache[K comparable, V any] interface {
	// Get returns the value and whether it was present and not expired.
	Get(key K) (V, bool)

	// Set stores value under key for the cache's default TTL.
	Set(key K, value V)

	// SetTTL stores value with an explicit TTL. ttl <= 0 never expires.
	SetTTL(key K, value V, ttl time.Duration)

	// Delete removes a key if present.
	Delete(key K)

	// DeleteFunc removes every key for which match returns true.
	DeleteFunc(match func(K) bool)

	// Len returns the number of live entries.
	Len() int

	// PurgeExpired drops expired entries.
	PurgeExpired()
}
