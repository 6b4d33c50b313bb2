// Package cache provides the namespaced TTL response cache that fronts the
// platform client's read operations.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fanwave/fanwave/internal/metrics"
)

// DefaultTTL applies when a Store is created with a non-positive TTL.
const DefaultTTL = 300 * time.Second

// Key derives the cache fingerprint for a namespaced request target.
// It is pure: identical (namespace, target) pairs always collide.
func Key(namespace, target string) string {
	sum := sha256.Sum256([]byte(namespace + ":" + target))
	return namespace + ":" + hex.EncodeToString(sum[:])
}

type entry struct {
	value     any
	expiresAt time.Time
}

// Store is a thread-safe in-memory TTL cache. Expired entries are dropped
// lazily on read and proactively by a background sweep that runs every 20%
// of the default TTL, so unread keys do not accumulate.
type Store struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	hits      atomic.Int64
	misses    atomic.Int64
	evictions atomic.Int64

	done      chan struct{}
	closeOnce sync.Once
}

// Stats is a point-in-time snapshot of cache counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int   `json:"entries"`
}

// New creates a Store with the given default TTL and starts its sweeper.
// Call Close to stop the sweeper when the store is no longer needed.
func New(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := &Store{
		entries: make(map[string]entry),
		ttl:     ttl,
		done:    make(chan struct{}),
	}
	go s.sweep(ttl / 5)
	return s
}

// Get returns the value stored under key if present and not expired.
// An expired entry is removed and reported as a miss.
func (s *Store) Get(key string) (any, bool) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		s.misses.Add(1)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	if time.Now().After(e.expiresAt) {
		s.mu.Lock()
		// Re-check under the write lock: another reader may have evicted,
		// or a writer may have replaced the entry with a fresh one.
		if cur, still := s.entries[key]; still && cur.expiresAt.Equal(e.expiresAt) {
			delete(s.entries, key)
			s.evictions.Add(1)
			metrics.CacheEvictions.Inc()
			metrics.CacheEntries.Dec()
		}
		s.mu.Unlock()
		s.misses.Add(1)
		metrics.CacheMisses.Inc()
		return nil, false
	}

	s.hits.Add(1)
	metrics.CacheHits.Inc()
	return e.value, true
}

// Set stores value under key with the store's default TTL.
func (s *Store) Set(key string, value any) {
	s.SetWithTTL(key, value, s.ttl)
}

// SetWithTTL stores value under key, overwriting any existing entry and
// resetting its expiry clock.
func (s *Store) SetWithTTL(key string, value any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.ttl
	}
	s.mu.Lock()
	if _, exists := s.entries[key]; !exists {
		metrics.CacheEntries.Inc()
	}
	s.entries[key] = entry{value: value, expiresAt: time.Now().Add(ttl)}
	s.mu.Unlock()
}

// Delete removes the entry stored under key, if any.
func (s *Store) Delete(key string) {
	s.mu.Lock()
	if _, exists := s.entries[key]; exists {
		delete(s.entries, key)
		metrics.CacheEntries.Dec()
	}
	s.mu.Unlock()
}

// Flush removes all entries. Counters are kept; they describe the lifetime
// of the store, not its current contents.
func (s *Store) Flush() {
	s.mu.Lock()
	metrics.CacheEntries.Sub(float64(len(s.entries)))
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Len returns the number of entries currently held, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Stats returns a snapshot of the hit/miss/eviction counters.
func (s *Store) Stats() Stats {
	return Stats{
		Hits:      s.hits.Load(),
		Misses:    s.misses.Load(),
		Evictions: s.evictions.Load(),
		Entries:   s.Len(),
	}
}

// HitRate returns the lifetime hit rate as a percentage.
func (s *Store) HitRate() float64 {
	hits, misses := s.hits.Load(), s.misses.Load()
	if hits+misses == 0 {
		return 0
	}
	return float64(hits) / float64(hits+misses) * 100
}

// Close stops the background sweeper. The store remains usable afterwards.
func (s *Store) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Store) sweep(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return
		case now := <-ticker.C:
			s.evictExpired(now)
		}
	}
}

func (s *Store) evictExpired(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
			s.evictions.Add(1)
			metrics.CacheEvictions.Inc()
			metrics.CacheEntries.Dec()
		}
	}
}
