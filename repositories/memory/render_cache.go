// Package memory provides process-local repository implementations
package memory

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avillia/receipt-service/models"
	"github.com/avillia/receipt-service/repositories"
)

type cacheKey struct {
	receiptID   uuid.UUID
	fingerprint string
}

// cacheEntry is a stored rendering and its position in the FIFO list
type cacheEntry struct {
	entry   models.RenderCacheEntry
	element *list.Element
}

// RenderCache is a bounded in-memory render cache with global FIFO eviction.
// Thread-safe implementation using sync.RWMutex; Put never races so it never
// returns repositories.ErrCapacityRace.
type RenderCache struct {
	mu       sync.RWMutex
	entries  map[cacheKey]*cacheEntry
	order    *list.List // ordered by (CreatedAt, ID); front is oldest
	capacity int
	nextID   int64
}

// NewRenderCache creates an in-memory render cache holding at most capacity entries
func NewRenderCache(capacity int) *RenderCache {
	return &RenderCache{
		entries:  make(map[cacheKey]*cacheEntry),
		order:    list.New(),
		capacity: capacity,
	}
}

var _ repositories.RenderCacheRepository = (*RenderCache)(nil)

// Capacity returns the maximum number of entries
func (c *RenderCache) Capacity() int {
	return c.capacity
}

// Get returns the cached text
func (c *RenderCache) Get(_ context.Context, receiptID uuid.UUID, fingerprint string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[cacheKey{receiptID, fingerprint}]
	if !ok {
		return "", false, nil
	}
	return e.entry.Text, true, nil
}

// Put stores an entry. An existing key keeps its age and position.
func (c *RenderCache) Put(_ context.Context, entry *models.RenderCacheEntry) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := cacheKey{entry.ReceiptID, entry.Fingerprint}
	if e, ok := c.entries[key]; ok {
		e.entry.Text = entry.Text
		return nil
	}

	for c.order.Len() >= c.capacity && c.order.Len() > 0 {
		c.evictOldest()
	}

	c.nextID++
	e := &cacheEntry{entry: *entry}
	e.entry.ID = c.nextID
	e.element = c.insertOrdered(key, e.entry.CreatedAt)
	c.entries[key] = e
	return nil
}

// insertOrdered places key after every entry created at or before createdAt.
// Stamps usually arrive in order, so the scan starts at the back.
func (c *RenderCache) insertOrdered(key cacheKey, createdAt time.Time) *list.Element {
	for el := c.order.Back(); el != nil; el = el.Prev() {
		if !c.entries[el.Value.(cacheKey)].entry.CreatedAt.After(createdAt) {
			return c.order.InsertAfter(key, el)
		}
	}
	return c.order.PushFront(key)
}

// DeleteForReceipt drops every entry of a receipt
func (c *RenderCache) DeleteForReceipt(_ context.Context, receiptID uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for key, e := range c.entries {
		if key.receiptID == receiptID {
			c.order.Remove(e.element)
			delete(c.entries, key)
		}
	}
	return nil
}

// Count returns the number of entries
func (c *RenderCache) Count(_ context.Context) (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order.Len(), nil
}

// Keys returns the fingerprints of the stored entries of a receipt, oldest first
func (c *RenderCache) Keys(receiptID uuid.UUID) []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var out []string
	for el := c.order.Front(); el != nil; el = el.Next() {
		key := el.Value.(cacheKey)
		if key.receiptID == receiptID {
			out = append(out, key.fingerprint)
		}
	}
	return out
}

// evictOldest removes the entry with the smallest CreatedAt (lock held)
func (c *RenderCache) evictOldest() {
	front := c.order.Front()
	if front == nil {
		return
	}
	c.order.Remove(front)
	delete(c.entries, front.Value.(cacheKey))
}
