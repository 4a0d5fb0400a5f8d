package kv

import (
	"strconv"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time // Zero value means no expiry
}

func (e memoryEntry) live(now time.Time) bool {
	return e.expiresAt.IsZero() || now.Before(e.expiresAt)
}

// MemoryBucket is an in-memory bucket (not persisted).
type MemoryBucket struct {
	name    string
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryBucket creates a new in-memory bucket.
func NewMemoryBucket(name string) *MemoryBucket {
	return &MemoryBucket{
		name:    name,
		entries: make(map[string]memoryEntry),
	}
}

// Name returns the bucket name.
func (b *MemoryBucket) Name() string {
	return b.name
}

// Get returns a live value.
func (b *MemoryBucket) Get(key string) (string, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	if !ok {
		return "", false, nil
	}
	if !e.live(time.Now()) {
		delete(b.entries, key)
		return "", false, nil
	}
	return e.value, true, nil
}

// Put stores a value.
func (b *MemoryBucket) Put(key, value string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries[key] = memoryEntry{value: value, expiresAt: expiry(time.Now(), ttl)}
	return nil
}

// Incr increments a counter.
func (b *MemoryBucket) Incr(key string, ttl time.Duration) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	e, ok := b.entries[key]
	if !ok || !e.live(now) {
		e = memoryEntry{value: "0", expiresAt: expiry(now, ttl)}
	}

	n, err := strconv.Atoi(e.value)
	if err != nil {
		n = 0
	}
	n++
	e.value = strconv.Itoa(n)
	b.entries[key] = e
	return n, nil
}

// Delete removes a key.
func (b *MemoryBucket) Delete(key string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	e, ok := b.entries[key]
	delete(b.entries, key)
	return ok && e.live(time.Now()), nil
}

// Clear removes all keys.
func (b *MemoryBucket) Clear() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = make(map[string]memoryEntry)
	return nil
}

// CleanupExpired drops expired entries and returns how many were removed.
func (b *MemoryBucket) CleanupExpired() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	count := 0
	for key, e := range b.entries {
		if !e.live(now) {
			delete(b.entries, key)
			count++
		}
	}
	return count
}
