// Package rendercache memoizes rendered receipt texts in a bounded store
package rendercache

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
	"github.com/avillia/receipt-service/services"
)

const retryBackoff = 5 * time.Millisecond

// Cache wraps a RenderCacheRepository with race retries and hit statistics
type Cache struct {
	store      repositories.RenderCacheRepository
	maxRetries int
	clock      func() time.Time
	logger     *zap.Logger

	hits   atomic.Uint64
	misses atomic.Uint64
}

// Option configures a Cache
type Option func(*Cache)

// WithClock sets the time source used for createdAt
func WithClock(clock func() time.Time) Option {
	return func(c *Cache) { c.clock = clock }
}

// New creates a cache over store; a capacity race is attempted maxRetries times
func New(store repositories.RenderCacheRepository, maxRetries int, logger *zap.Logger, opts ...Option) *Cache {
	if maxRetries < 1 {
		maxRetries = 1
	}
	c := &Cache{
		store:      store,
		maxRetries: maxRetries,
		clock:      time.Now,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached text for a receipt and fingerprint
func (c *Cache) Get(ctx context.Context, receiptID uuid.UUID, fingerprint string) (string, bool, error) {
	text, ok, err := c.store.Get(ctx, receiptID, fingerprint)
	if err != nil {
		return "", false, services.ErrCacheFailed.Wrap(err)
	}
	if ok {
		c.hits.Add(1)
	} else {
		c.misses.Add(1)
	}
	return text, ok, nil
}

// Put stores a rendering. Capacity races are retried; once retries are
// exhausted the error matches services.ErrCacheCapacityRace.
func (c *Cache) Put(ctx context.Context, receiptID uuid.UUID, fingerprint, text string) error {
	var err error
	for attempt := 1; attempt <= c.maxRetries; attempt++ {
		entry := &models.RenderCacheEntry{
			ReceiptID:   receiptID,
			Fingerprint: fingerprint,
			Text:        text,
			CreatedAt:   c.clock().UTC(),
		}

		err = c.store.Put(ctx, entry)
		if err == nil {
			return nil
		}
		if errors.Is(err, repositories.ErrNotFound) {
			return services.ErrReceiptNotFound.Wrap(err)
		}
		if !errors.Is(err, repositories.ErrCapacityRace) {
			return services.ErrCacheFailed.Wrap(err)
		}

		c.logger.Debug("render cache capacity race, retrying",
			zap.String("receipt_id", receiptID.String()),
			zap.Int("attempt", attempt))

		if attempt == c.maxRetries {
			break
		}
		select {
		case <-ctx.Done():
			return services.ErrCacheFailed.Wrap(ctx.Err())
		case <-time.After(time.Duration(attempt) * retryBackoff):
		}
	}

	c.logger.Warn("render cache capacity race retries exhausted",
		zap.String("receipt_id", receiptID.String()),
		zap.Int("attempts", c.maxRetries))
	return services.ErrCacheCapacityRace.Wrap(err)
}

// InvalidateReceipt drops every rendering of a receipt
func (c *Cache) InvalidateReceipt(ctx context.Context, receiptID uuid.UUID) error {
	if err := c.store.DeleteForReceipt(ctx, receiptID); err != nil {
		return services.ErrCacheFailed.Wrap(err)
	}
	return nil
}

// Size returns the number of stored renderings
func (c *Cache) Size(ctx context.Context) (int, error) {
	n, err := c.store.Count(ctx)
	if err != nil {
		return 0, services.ErrCacheFailed.Wrap(err)
	}
	return n, nil
}

// Stats represents cache statistics since process start
type Stats struct {
	Capacity int     `json:"capacity"`
	Hits     uint64  `json:"hits"`
	Misses   uint64  `json:"misses"`
	HitRate  float64 `json:"hit_rate"`
}

// Stats returns cache statistics
func (c *Cache) Stats() Stats {
	hits, misses := c.hits.Load(), c.misses.Load()
	s := Stats{
		Capacity: c.store.Capacity(),
		Hits:     hits,
		Misses:   misses,
	}
	if total := hits + misses; total > 0 {
		s.HitRate = float64(hits) / float64(total)
	}
	return s
}
