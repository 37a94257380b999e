package services

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"cryptodash/internal/infrastructure"
	"cryptodash/pkg/contracts/domain"
)

// Snapshot is an immutable parsed table. Callers must not modify Records.
type Snapshot struct {
	Key      string
	Source   string
	Records  []domain.PriceRecord
	LoadedAt time.Time
}

// loadFunc reads and parses one source.
type loadFunc func(ctx context.Context) (*Snapshot, error)

// DatasetCache memoizes parsed tables by source identity. Concurrent loads of
// the same key share one read.
type DatasetCache struct {
	mu      sync.RWMutex
	entries map[string]*Snapshot
	group   singleflight.Group
	metrics *infrastructure.BusinessMetrics
	logger  *slog.Logger
}

// NewDatasetCache creates an empty cache.
func NewDatasetCache(metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *DatasetCache {
	if metrics == nil {
		metrics = infrastructure.NoopBusinessMetrics()
	}
	return &DatasetCache{
		entries: make(map[string]*Snapshot),
		metrics: metrics,
		logger:  infrastructure.WithComponent(logger, "dataset_cache"),
	}
}

// Get returns the snapshot stored under key, calling load on a miss. Failed
// loads are not cached.
func (c *DatasetCache) Get(ctx context.Context, key string, load loadFunc) (*Snapshot, error) {
	c.mu.RLock()
	snap, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.metrics.DatasetCacheHits.Add(ctx, 1)
		return snap, nil
	}

	v, err, shared := c.group.Do(key, func() (interface{}, error) {
		c.metrics.DatasetCacheMisses.Add(ctx, 1)
		snap, err := load(ctx)
		if err != nil {
			return nil, err
		}
		snap.Key = key
		c.mu.Lock()
		c.entries[key] = snap
		c.mu.Unlock()
		c.metrics.DatasetRecordsLoaded.Record(ctx, int64(len(snap.Records)))
		c.logger.InfoContext(ctx, "dataset loaded",
			slog.String("key", key),
			slog.String("source", snap.Source),
			slog.Int("records", len(snap.Records)))
		return snap, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		c.logger.DebugContext(ctx, "dataset load shared", slog.String("key", key))
	}
	return v.(*Snapshot), nil
}

// GetVersion is Get for sources whose key carries a version. Once the entry
// for key is loaded, every other entry under slot is dropped so only the
// current version of a source stays cached.
func (c *DatasetCache) GetVersion(ctx context.Context, slot, key string, load loadFunc) (*Snapshot, error) {
	return c.Get(ctx, key, func(ctx context.Context) (*Snapshot, error) {
		snap, err := load(ctx)
		if err != nil {
			return nil, err
		}
		if n := c.dropStale(slot, key); n > 0 {
			c.logger.InfoContext(ctx, "stale dataset versions dropped",
				slog.String("slot", slot),
				slog.Int("dropped", n))
		}
		return snap, nil
	})
}

// dropStale removes the entries under slot other than keep.
func (c *DatasetCache) dropStale(slot, keep string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.entries {
		if key != keep && strings.HasPrefix(key, slot) {
			delete(c.entries, key)
			c.group.Forget(key)
			n++
		}
	}
	return n
}

// Invalidate drops one entry. It reports whether the entry existed.
func (c *DatasetCache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	c.group.Forget(key)
	return ok
}

// InvalidatePrefix drops every entry whose key starts with prefix and returns
// how many were removed.
func (c *DatasetCache) InvalidatePrefix(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key := range c.entries {
		if strings.HasPrefix(key, prefix) {
			delete(c.entries, key)
			c.group.Forget(key)
			n++
		}
	}
	return n
}

// Len returns the number of cached snapshots.
func (c *DatasetCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
