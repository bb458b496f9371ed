package rendercache

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
	"github.com/avillia/receipt-service/repositories/memory"
	"github.com/avillia/receipt-service/services"
)

// racingStore fails the first races puts with ErrCapacityRace
type racingStore struct {
	*memory.RenderCache
	mu       sync.Mutex
	races    int
	attempts int
	putErr   error
}

func (s *racingStore) Put(ctx context.Context, entry *models.RenderCacheEntry) error {
	s.mu.Lock()
	s.attempts++
	if s.putErr != nil {
		s.mu.Unlock()
		return s.putErr
	}
	if s.races > 0 {
		s.races--
		s.mu.Unlock()
		return fmt.Errorf("%w: simulated", repositories.ErrCapacityRace)
	}
	s.mu.Unlock()
	return s.RenderCache.Put(ctx, entry)
}

func TestCache_GetPutStats(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewRenderCache(10), 3, zap.NewNop())
	id := uuid.New()

	_, ok, err := c.Get(ctx, id, "fp")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, c.Put(ctx, id, "fp", "text"))

	text, ok, err := c.Get(ctx, id, "fp")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "text", text)

	stats := c.Stats()
	assert.Equal(t, 10, stats.Capacity)
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCache_NeverExceedsCapacity(t *testing.T) {
	ctx := context.Background()
	const capacity = 10
	c := New(memory.NewRenderCache(capacity), 3, zap.NewNop())

	ids := make([]uuid.UUID, 25)
	for i := range ids {
		ids[i] = uuid.New()
		require.NoError(t, c.Put(ctx, ids[i], "fp", fmt.Sprint(i)))

		n, err := c.Size(ctx)
		require.NoError(t, err)
		assert.LessOrEqual(t, n, capacity)
	}

	// The survivors are exactly the last capacity insertions
	for i, id := range ids {
		_, ok, err := c.Get(ctx, id, "fp")
		require.NoError(t, err)
		assert.Equal(t, i >= len(ids)-capacity, ok, "entry %d", i)
	}
}

func TestCache_EvictsOldestFingerprintOfSameReceipt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Second)
		return now
	}
	c := New(memory.NewRenderCache(10), 3, zap.NewNop(), WithClock(clock))
	id := uuid.New()

	fingerprints := make([]string, 11)
	for i := range fingerprints {
		fingerprints[i] = Fingerprint([]string{"=", "-"}, 20+i)
		require.NoError(t, c.Put(ctx, id, fingerprints[i], fmt.Sprint(i)))
	}

	n, err := c.Size(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	_, ok, err := c.Get(ctx, id, fingerprints[0])
	require.NoError(t, err)
	assert.False(t, ok)
	for i, fp := range fingerprints[1:] {
		text, ok, err := c.Get(ctx, id, fp)
		require.NoError(t, err)
		assert.True(t, ok, "fingerprint %d", i+1)
		assert.Equal(t, fmt.Sprint(i+1), text)
	}
}

func TestCache_OverwriteIsSingleEntry(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewRenderCache(10), 3, zap.NewNop())
	id := uuid.New()

	require.NoError(t, c.Put(ctx, id, "fp", "first"))
	require.NoError(t, c.Put(ctx, id, "fp", "second"))

	n, _ := c.Size(ctx)
	assert.Equal(t, 1, n)
	text, _, _ := c.Get(ctx, id, "fp")
	assert.Equal(t, "second", text)
}

func TestCache_RetriesCapacityRace(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{RenderCache: memory.NewRenderCache(10), races: 2}
	c := New(store, 3, zap.NewNop())
	id := uuid.New()

	require.NoError(t, c.Put(ctx, id, "fp", "text"))
	assert.Equal(t, 3, store.attempts)

	_, ok, _ := c.Get(ctx, id, "fp")
	assert.True(t, ok)
}

func TestCache_RetriesExhausted(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{RenderCache: memory.NewRenderCache(10), races: 100}
	c := New(store, 3, zap.NewNop())

	err := c.Put(ctx, uuid.New(), "fp", "text")
	require.Error(t, err)
	assert.True(t, services.IsCacheCapacityRaceError(err))
	assert.ErrorIs(t, err, repositories.ErrCapacityRace)
	assert.Equal(t, 3, store.attempts)
}

func TestCache_StoreFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("receipt gone", func(t *testing.T) {
		store := &racingStore{RenderCache: memory.NewRenderCache(10), putErr: repositories.ErrNotFound}
		err := New(store, 3, zap.NewNop()).Put(ctx, uuid.New(), "fp", "text")
		assert.True(t, services.IsNotFoundError(err))
		assert.Equal(t, 1, store.attempts)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		store := &racingStore{RenderCache: memory.NewRenderCache(10), putErr: errors.New("boom")}
		err := New(store, 3, zap.NewNop()).Put(ctx, uuid.New(), "fp", "text")
		assert.True(t, services.IsInternalError(err))
		assert.False(t, services.IsCacheCapacityRaceError(err))
		assert.Equal(t, 1, store.attempts)
	})
}

func TestCache_UsesClock(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var seen time.Time
	store := &recordingStore{RenderCache: memory.NewRenderCache(10), seen: &seen}
	c := New(store, 1, zap.NewNop(), WithClock(func() time.Time { return at }))

	require.NoError(t, c.Put(ctx, uuid.New(), "fp", "text"))
	assert.Equal(t, at, seen)
}

type recordingStore struct {
	*memory.RenderCache
	seen *time.Time
}

func (s *recordingStore) Put(ctx context.Context, entry *models.RenderCacheEntry) error {
	*s.seen = entry.CreatedAt
	return s.RenderCache.Put(ctx, entry)
}

func TestCache_InvalidateReceipt(t *testing.T) {
	ctx := context.Background()
	c := New(memory.NewRenderCache(10), 3, zap.NewNop())
	id := uuid.New()

	require.NoError(t, c.Put(ctx, id, "a", "1"))
	require.NoError(t, c.Put(ctx, id, "b", "2"))
	require.NoError(t, c.InvalidateReceipt(ctx, id))

	n, _ := c.Size(ctx)
	assert.Zero(t, n)
}

func TestCache_ConcurrentPuts(t *testing.T) {
	ctx := context.Background()
	store := &racingStore{RenderCache: memory.NewRenderCache(5), races: 10}
	c := New(store, 20, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, c.Put(ctx, uuid.New(), fmt.Sprint(i), "t"))
		}(i)
	}
	wg.Wait()

	n, _ := c.Size(ctx)
	assert.Equal(t, 5, n)
}
