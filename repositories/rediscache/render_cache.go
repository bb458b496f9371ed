package rediscache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
)

const memberSeparator = "|"

// RenderCache keeps texts in a hash and their age in a sorted set scored by
// the entry's creation time in microseconds. Order set members carry a
// zero-padded insertion counter before the entry member, so equal timestamps
// evict in insertion order; a second hash maps each entry to its order
// member. One set per receipt serves invalidation. Put runs under WATCH on
// the texts and the order set; a concurrent writer aborts the EXEC and Put
// returns repositories.ErrCapacityRace.
type RenderCache struct {
	client   redis.UniversalClient
	prefix   string
	capacity int
	logger   *zap.Logger
}

// NewRenderCache creates a Redis render cache under the given key prefix
func NewRenderCache(client redis.UniversalClient, prefix string, capacity int, logger *zap.Logger) *RenderCache {
	return &RenderCache{
		client:   client,
		prefix:   prefix,
		capacity: capacity,
		logger:   logger,
	}
}

var _ repositories.RenderCacheRepository = (*RenderCache)(nil)

func (c *RenderCache) textsKey() string { return c.prefix + ":texts" }
func (c *RenderCache) orderKey() string { return c.prefix + ":order" }
func (c *RenderCache) seqKey() string   { return c.prefix + ":seq" }
func (c *RenderCache) slotsKey() string { return c.prefix + ":slots" }

func (c *RenderCache) receiptKey(receiptID uuid.UUID) string {
	return c.prefix + ":receipt:" + receiptID.String()
}

func member(receiptID uuid.UUID, fingerprint string) string {
	return receiptID.String() + memberSeparator + fingerprint
}

// orderMember prefixes m with its insertion counter
func orderMember(seq int64, m string) string {
	return fmt.Sprintf("%020d%s%s", seq, memberSeparator, m)
}

// entryOf strips the insertion counter from an order set member
func entryOf(orderMember string) string {
	_, m, _ := strings.Cut(orderMember, memberSeparator)
	return m
}

func receiptOf(member string) (uuid.UUID, error) {
	id, _, _ := strings.Cut(member, memberSeparator)
	return uuid.Parse(id)
}

// Capacity returns the maximum number of entries
func (c *RenderCache) Capacity() int {
	return c.capacity
}

// Get returns the cached text
func (c *RenderCache) Get(ctx context.Context, receiptID uuid.UUID, fingerprint string) (string, bool, error) {
	text, err := c.client.HGet(ctx, c.textsKey(), member(receiptID, fingerprint)).Result()
	if err == redis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, fmt.Errorf("failed to read render cache: %w", err)
	}
	return text, true, nil
}

// Put stores an entry, evicting the oldest entries when the cache is full
func (c *RenderCache) Put(ctx context.Context, entry *models.RenderCacheEntry) error {
	m := member(entry.ReceiptID, entry.Fingerprint)
	texts, order, slots := c.textsKey(), c.orderKey(), c.slotsKey()

	txf := func(tx *redis.Tx) error {
		exists, err := tx.HExists(ctx, texts, m).Result()
		if err != nil {
			return err
		}
		if exists {
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.HSet(ctx, texts, m, entry.Text)
				return nil
			})
			return err
		}

		count, err := tx.ZCard(ctx, order).Result()
		if err != nil {
			return err
		}
		var victims []string
		if overflow := count - int64(c.capacity) + 1; overflow > 0 {
			victims, err = tx.ZRange(ctx, order, 0, overflow-1).Result()
			if err != nil {
				return err
			}
		}

		seq, err := tx.Incr(ctx, c.seqKey()).Result()
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			for _, victim := range victims {
				em := entryOf(victim)
				pipe.HDel(ctx, texts, em)
				pipe.HDel(ctx, slots, em)
				pipe.ZRem(ctx, order, victim)
				if id, err := receiptOf(em); err == nil {
					pipe.SRem(ctx, c.receiptKey(id), em)
				}
			}
			om := orderMember(seq, m)
			pipe.HSet(ctx, texts, m, entry.Text)
			pipe.HSet(ctx, slots, m, om)
			pipe.ZAdd(ctx, order, redis.Z{Score: float64(entry.CreatedAt.UnixMicro()), Member: om})
			pipe.SAdd(ctx, c.receiptKey(entry.ReceiptID), m)
			return nil
		})
		if err == nil && len(victims) > 0 {
			c.logger.Debug("render cache evicted",
				zap.Int("rows", len(victims)),
				zap.Int("capacity", c.capacity))
		}
		return err
	}

	err := c.client.Watch(ctx, txf, texts, order)
	if errors.Is(err, redis.TxFailedErr) {
		return fmt.Errorf("%w: %v", repositories.ErrCapacityRace, err)
	}
	if err != nil {
		return fmt.Errorf("failed to write render cache: %w", err)
	}
	return nil
}

// DeleteForReceipt drops every entry of a receipt
func (c *RenderCache) DeleteForReceipt(ctx context.Context, receiptID uuid.UUID) error {
	texts, order, slots, index := c.textsKey(), c.orderKey(), c.slotsKey(), c.receiptKey(receiptID)

	txf := func(tx *redis.Tx) error {
		members, err := tx.SMembers(ctx, index).Result()
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}
		orderMembers, err := tx.HMGet(ctx, slots, members...).Result()
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HDel(ctx, texts, members...)
			pipe.HDel(ctx, slots, members...)
			zMembers := make([]interface{}, 0, len(orderMembers))
			for _, om := range orderMembers {
				if om != nil {
					zMembers = append(zMembers, om)
				}
			}
			if len(zMembers) > 0 {
				pipe.ZRem(ctx, order, zMembers...)
			}
			pipe.Del(ctx, index)
			return nil
		})
		return err
	}

	if err := c.client.Watch(ctx, txf, index); err != nil {
		return fmt.Errorf("failed to invalidate render cache: %w", err)
	}
	return nil
}

// Count returns the number of entries
func (c *RenderCache) Count(ctx context.Context) (int, error) {
	n, err := c.client.HLen(ctx, c.textsKey()).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to count render cache: %w", err)
	}
	return int(n), nil
}
