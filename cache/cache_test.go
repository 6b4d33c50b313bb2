package cache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/fanwave/fanwave/cache"
)

func TestKeyIsDeterministic(t *testing.T) {
	first := cache.Key("posts", "/v1/community/c1/posts?page=1&size=20")
	second := cache.Key("posts", "/v1/community/c1/posts?page=1&size=20")
	require.Equal(t, first, second)
}

func TestKeySeparatesNamespacesAndTargets(t *testing.T) {
	require.NotEqual(t,
		cache.Key("posts", "/v1/community/c1/posts"),
		cache.Key("comments", "/v1/community/c1/posts"))
	require.NotEqual(t,
		cache.Key("posts", "/v1/community/c1/posts"),
		cache.Key("posts", "/v1/community/c2/posts"))
}

func TestSetGetRoundTrip(t *testing.T) {
	store := cache.New(time.Minute)
	defer store.Close()

	key := cache.Key("posts", "/v1/community/c1/posts")
	store.Set(key, "payload")

	got, ok := store.Get(key)
	require.True(t, ok)
	require.Equal(t, "payload", got)
}

func TestGetMissesAbsentKey(t *testing.T) {
	store := cache.New(time.Minute)
	defer store.Close()

	_, ok := store.Get("no-such-key")
	require.False(t, ok)
}

func TestExpiredEntryIsAbsent(t *testing.T) {
	store := cache.New(time.Minute)
	defer store.Close()

	store.SetWithTTL("k", "v", 20*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	_, ok := store.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, store.Len(), "expired entry should be removed on read")
}

func TestSetResetsExpiry(t *testing.T) {
	store := cache.New(time.Minute)
	defer store.Close()

	store.SetWithTTL("k", "old", 30*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	store.SetWithTTL("k", "new", 200*time.Millisecond)
	time.Sleep(50 * time.Millisecond)

	got, ok := store.Get("k")
	require.True(t, ok)
	require.Equal(t, "new", got)
}

func TestDeleteAndFlush(t *testing.T) {
	store := cache.New(time.Minute)
	defer store.Close()

	store.Set("a", 1)
	store.Set("b", 2)

	store.Delete("a")
	_, ok := store.Get("a")
	require.False(t, ok)

	store.Flush()
	require.Equal(t, 0, store.Len())
	_, ok = store.Get("b")
	require.False(t, ok)
}

func TestBackgroundSweepEvictsUnreadKeys(t *testing.T) {
	// Sweep interval is 20% of the default TTL, so a 50ms TTL sweeps
	// every 10ms.
	store := cache.New(50 * time.Millisecond)
	defer store.Close()

	store.Set("never-read", "v")
	require.Eventually(t, func() bool {
		return store.Len() == 0
	}, time.Second, 10*time.Millisecond, "sweep should evict the expired entry without a read")

	require.GreaterOrEqual(t, store.Stats().Evictions, int64(1))
}

func TestStatsCounters(t *testing.T) {
	store := cache.New(time.Minute)
	defer store.Close()

	store.Set("k", "v")
	_, _ = store.Get("k")
	_, _ = store.Get("k")
	_, _ = store.Get("missing")

	stats := store.Stats()
	require.Equal(t, int64(2), stats.Hits)
	require.Equal(t, int64(1), stats.Misses)
	require.Equal(t, 1, stats.Entries)
	require.InDelta(t, 66.6, store.HitRate(), 1.0)
}
