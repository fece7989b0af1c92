/*
Copyright © 2024 Acronis International GmbH.

Released under MIT license.
*/

package lookupcache

import (
	"bytes"
	"container/list"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/roadnet/roadkit/batch"
)

// ErrInvalidConfiguration is returned by New when the cache cannot be built from the given parameters.
var ErrInvalidConfiguration = errors.New("invalid configuration")

type cacheEntry struct {
	key       batch.Record
	value     json.RawMessage
	expiresAt time.Time
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && e.expiresAt.Before(now)
}

// Cache is an LRU cache of lookup results.
type Cache struct {
	maxEntries int
	ttl        time.Duration

	mu      sync.Mutex
	lruList *list.List
	entries map[batch.Record]*list.Element

	metrics MetricsCollector
}

// Opts represents options for the cache.
type Opts struct {
	// TTL is the lifetime of an entry. Zero means entries never expire.
	// Expired entries are dropped when accessed or by RunPeriodicCleanup.
	TTL time.Duration

	// MetricsCollector collects cache usage statistics. Metrics are disabled if nil.
	MetricsCollector MetricsCollector
}

// New creates a new Cache that holds up to maxEntries results.
func New(maxEntries int) (*Cache, error) {
	return NewWithOpts(maxEntries, Opts{})
}

// NewWithOpts creates a new Cache with the given options.
func NewWithOpts(maxEntries int, opts Opts) (*Cache, error) {
	if maxEntries <= 0 {
		return nil, fmt.Errorf("%w: max entries must be positive, got %d", ErrInvalidConfiguration, maxEntries)
	}
	if opts.TTL < 0 {
		return nil, fmt.Errorf("%w: TTL must not be negative", ErrInvalidConfiguration)
	}
	if opts.MetricsCollector == nil {
		opts.MetricsCollector = disabledMetricsCollector
	}
	return &Cache{
		maxEntries: maxEntries,
		ttl:        opts.TTL,
		lruList:    list.New(),
		entries:    make(map[batch.Record]*list.Element),
		metrics:    opts.MetricsCollector,
	}, nil
}

// NewFromConfig creates a new Cache from the loaded configuration.
func NewFromConfig(cfg *Config, metrics MetricsCollector) (*Cache, error) {
	return NewWithOpts(cfg.MaxEntries, Opts{TTL: cfg.TTL, MetricsCollector: metrics})
}

// Get returns the cached result for rec.
func (c *Cache) Get(rec batch.Record) (json.RawMessage, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[rec]
	if !ok {
		c.metrics.IncMisses()
		return nil, false
	}
	entry := elem.Value.(*cacheEntry)
	if entry.expired(time.Now()) {
		c.removeElement(elem)
		c.metrics.SetAmount(len(c.entries))
		c.metrics.IncMisses()
		return nil, false
	}
	c.lruList.MoveToFront(elem)
	c.metrics.IncHits()
	return entry.value, true
}

// Add stores the result for rec. Null results are ignored and false is returned.
// The least recently used entry is evicted if the cache is full.
func (c *Cache) Add(rec batch.Record, value json.RawMessage) bool {
	if isNull(value) {
		return false
	}
	var expiresAt time.Time
	if c.ttl > 0 {
		expiresAt = time.Now().Add(c.ttl)
	}
	entry := &cacheEntry{key: rec, value: append(json.RawMessage(nil), value...), expiresAt: expiresAt}

	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.entries[rec]; ok {
		elem.Value = entry
		c.lruList.MoveToFront(elem)
		return true
	}
	c.entries[rec] = c.lruList.PushFront(entry)
	if len(c.entries) > c.maxEntries {
		c.removeElement(c.lruList.Back())
		c.metrics.AddEvictions(1)
	}
	c.metrics.SetAmount(len(c.entries))
	return true
}

// Remove drops the result for rec.
func (c *Cache) Remove(rec batch.Record) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.entries[rec]
	if !ok {
		return false
	}
	c.removeElement(elem)
	c.metrics.SetAmount(len(c.entries))
	return true
}

// Purge drops all entries. Dropped entries are not counted as evictions.
func (c *Cache) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[batch.Record]*list.Element)
	c.lruList.Init()
	c.metrics.SetAmount(0)
}

// Len returns the number of entries in the cache, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// RunPeriodicCleanup drops expired entries every interval until ctx is done.
// It's supposed to be run in a separate goroutine.
func (c *Cache) RunPeriodicCleanup(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			c.removeExpired(now)
		}
	}
}

func (c *Cache) removeExpired(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, elem := range c.entries {
		if elem.Value.(*cacheEntry).expired(now) {
			c.removeElement(elem)
		}
	}
	c.metrics.SetAmount(len(c.entries))
}

func (c *Cache) removeElement(elem *list.Element) {
	c.lruList.Remove(elem)
	delete(c.entries, elem.Value.(*cacheEntry).key)
}

func isNull(value json.RawMessage) bool {
	trimmed := bytes.TrimSpace(value)
	return len(trimmed) == 0 || string(trimmed) == "null"
}
