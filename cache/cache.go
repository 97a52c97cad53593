package cache

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// ErrMiss is returned by Get when the key is absent or expired
var ErrMiss = errors.New("cache miss")

// Cache stores encoded scrape results keyed by URL
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Key creates a unique key for the URL
func Key(url string) string {
	return "scrape:" + strconv.FormatUint(xxhash.Sum64String(url), 16)
}

// Cache entry with expiration
type entry struct {
	value     []byte
	timestamp time.Time
}

// MemoryCache is an in-process TTL cache bounded by entry count
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration
	maxSize int
}

// NewMemoryCache creates a new MemoryCache
func NewMemoryCache(ttl time.Duration, maxSize int) *MemoryCache {
	if maxSize <= 0 {
		maxSize = 1000
	}
	return &MemoryCache{
		entries: make(map[string]entry),
		ttl:     ttl,
		maxSize: maxSize,
	}
}

func (m *MemoryCache) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, found := m.entries[key]
	if !found || time.Since(e.timestamp) >= m.ttl {
		return nil, ErrMiss
	}
	return e.value, nil
}

func (m *MemoryCache) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = entry{value: value, timestamp: time.Now()}
	if len(m.entries) > m.maxSize {
		m.cleanupLocked()
	}
	return nil
}

func (m *MemoryCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

func (m *MemoryCache) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]entry)
	return nil
}

// Len returns the number of stored entries, expired ones included
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cleanup removes expired entries and enforces the size limit
func (m *MemoryCache) Cleanup() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cleanupLocked()
}

func (m *MemoryCache) cleanupLocked() {
	now := time.Now()
	for key, e := range m.entries {
		if now.Sub(e.timestamp) >= m.ttl {
			delete(m.entries, key)
		}
	}
	if len(m.entries) <= m.maxSize {
		return
	}

	// Still over the limit, remove oldest entries
	type aged struct {
		key       string
		timestamp time.Time
	}
	entries := make([]aged, 0, len(m.entries))
	for key, e := range m.entries {
		entries = append(entries, aged{key, e.timestamp})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].timestamp.Before(entries[j].timestamp)
	})
	for i := 0; i < len(entries)-m.maxSize; i++ {
		delete(m.entries, entries[i].key)
	}
}

// RunCleanup purges the cache every interval until ctx is done
func (m *MemoryCache) RunCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Cleanup()
		}
	}
}
