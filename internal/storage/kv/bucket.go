// Package kv provides small key-value buckets with optional expiry, backed by
// SQLite or memory.
package kv

import "time"

// Bucket is a namespace of string values.
type Bucket interface {
	// Name returns the bucket name.
	Name() string

	// Get returns the value and whether a live entry exists.
	Get(key string) (string, bool, error)

	// Put stores a value. A zero ttl keeps it until deleted.
	Put(key, value string, ttl time.Duration) error

	// Incr increments an integer counter and returns the new value. The ttl
	// is applied when the counter is created and kept on later increments.
	Incr(key string, ttl time.Duration) (int, error)

	// Delete removes a key and reports whether it existed.
	Delete(key string) (bool, error)

	// Clear removes every key in the bucket.
	Clear() error
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
