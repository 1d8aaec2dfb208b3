package cache

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// SlotCache holds at most one snapshot, the most recent successful fetch.
// There is no expiry: a snapshot is only ever replaced by a newer one.
type SlotCache struct {
	mu      sync.RWMutex
	current *Snapshot

	store   SnapshotStore
	timeout time.Duration
	pending sync.WaitGroup

	hits    atomic.Int64
	misses  atomic.Int64
	swaps   atomic.Int64
	persist atomic.Int64
}

// SlotCacheOption configures a SlotCache
type SlotCacheOption func(*SlotCache)

// WithStore attaches a persistence store written after every Store
func WithStore(store SnapshotStore) SlotCacheOption {
	return func(c *SlotCache) {
		c.store = store
	}
}

// WithStoreTimeout bounds each persistence call
func WithStoreTimeout(timeout time.Duration) SlotCacheOption {
	return func(c *SlotCache) {
		c.timeout = timeout
	}
}

func NewSlotCache(opts ...SlotCacheOption) *SlotCache {
	c := &SlotCache{
		timeout: Defaults.Timeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns the current snapshot. Readers never block each other.
func (c *SlotCache) Load() (*Snapshot, bool) {
	c.mu.RLock()
	snapshot := c.current
	c.mu.RUnlock()

	if snapshot == nil {
		c.misses.Add(1)
		return nil, false
	}

	c.hits.Add(1)
	return snapshot, true
}

// Store installs snapshot for every later Load. Concurrent writers race and the last one wins.
func (c *SlotCache) Store(snapshot *Snapshot) {
	if snapshot == nil {
		return
	}

	c.mu.Lock()
	c.current = snapshot
	c.mu.Unlock()
	c.swaps.Add(1)

	slog.Debug("Installed key set snapshot", "keys", snapshot.Len(), "fetchedAt", snapshot.FetchedAt())

	if c.store != nil {
		c.pending.Add(1)
		go c.save(snapshot)
	}
}

// save writes the snapshot to the store, failures only cost the next cold start a fetch
func (c *SlotCache) save(snapshot *Snapshot) {
	defer c.pending.Done()

	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()

	if err := c.store.Save(ctx, snapshot); err != nil {
		slog.Warn("Failed to persist key set snapshot", "error", err.Error())
		return
	}
	c.persist.Add(1)
}

// Warm seeds an empty slot from the store. A missing persisted snapshot is not an error.
func (c *SlotCache) Warm(ctx context.Context) error {
	if c.store == nil {
		return nil
	}

	c.mu.RLock()
	seeded := c.current != nil
	c.mu.RUnlock()
	if seeded {
		return nil
	}

	snapshot, err := c.store.Load(ctx)
	if err != nil {
		if errors.Is(err, ErrSnapshotNotFound) {
			slog.Debug("No persisted key set snapshot")
			return nil
		}
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	// A request may have fetched while the store was read
	if c.current != nil {
		return nil
	}
	c.current = snapshot

	slog.Info("Warmed key set cache from store", "keys", snapshot.Len(), "fetchedAt", snapshot.FetchedAt())
	return nil
}

// Wait blocks until pending persistence writes have finished
func (c *SlotCache) Wait() {
	c.pending.Wait()
}

// GetStats returns statistics about the cache
func (c *SlotCache) GetStats() map[string]interface{} {
	c.mu.RLock()
	current := c.current
	c.mu.RUnlock()

	stats := map[string]interface{}{
		"keys":      current.Len(),
		"hits":      c.hits.Load(),
		"misses":    c.misses.Load(),
		"swaps":     c.swaps.Load(),
		"persisted": c.persist.Load(),
	}
	if current != nil {
		stats["fetchedAt"] = current.FetchedAt()
	}
	return stats
}
