// Package zone maps the site's domain to its Cloudflare zone id.
package zone

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

const keyPrefix = "cfpurge:zone:"

// Key is the cache key a domain's record is stored under.
func Key(domain string) string {
	return keyPrefix + domain
}

// Record is the cached result of a successful zone lookup.
type Record struct {
	Domain    string    `json:"domain"`
	ZoneID    string    `json:"zone_id"`
	FetchedAt time.Time `json:"fetched_at"`
}

func (r Record) encode() (string, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("failed to encode zone record: %w", err)
	}
	return string(data), nil
}

func decodeRecord(value string) (Record, error) {
	var r Record
	if err := json.Unmarshal([]byte(value), &r); err != nil {
		return Record{}, fmt.Errorf("failed to decode zone record: %w", err)
	}
	return r, nil
}

// Cache is a string key/value store. Get reports ok=false for a missing key.
type Cache interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryCache is a process-local Cache. A zero ttl keeps entries until overwritten or deleted.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	now     func() time.Time
}

func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) (string, bool, error) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return "", false, nil
	}
	if !c.expired(entry) {
		return entry.value, true, nil
	}

	// The entry may have been replaced since the read lock was released.
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok = c.entries[key]
	if !ok {
		return "", false, nil
	}
	if c.expired(entry) {
		delete(c.entries, key)
		return "", false, nil
	}
	return entry.value, true, nil
}

func (c *MemoryCache) expired(entry memoryEntry) bool {
	return !entry.expiresAt.IsZero() && !c.now().Before(entry.expiresAt)
}

func (c *MemoryCache) Set(_ context.Context, key, value string) error {
	entry := memoryEntry{value: value}
	if c.ttl > 0 {
		entry.expiresAt = c.now().Add(c.ttl)
	}

	c.mu.Lock()
	c.entries[key] = entry
	c.mu.Unlock()
	return nil
}

func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
	return nil
}
