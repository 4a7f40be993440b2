package insights

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
	"github.com/lmoreira/funneltrack-backend/pkg/logger"
)

type snapshotStore interface {
	UpsertSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) error
}

type cacheKey struct {
	projectID uuid.UUID
	rangeKey  string
	cacheDay  string
}

// Cache decides snapshot freshness and debounces snapshot writes. A burst
// of recomputations for the same key coalesces into one upsert after a
// quiet period instead of racing the store.
type Cache struct {
	ttl      time.Duration
	debounce time.Duration
	clk      clock.ReportingClock
	store    snapshotStore
	logg     *logger.Logger

	mu      sync.Mutex
	pending map[cacheKey]*pendingWrite
}

type pendingWrite struct {
	timer    *time.Timer
	snapshot *models.MetricsSnapshot
}

// NewCache builds the snapshot cache.
func NewCache(store snapshotStore, clk clock.ReportingClock, ttl, debounce time.Duration, logg *logger.Logger) *Cache {
	return &Cache{
		ttl:      ttl,
		debounce: debounce,
		clk:      clk,
		store:    store,
		logg:     logg,
		pending:  map[cacheKey]*pendingWrite{},
	}
}

// Fresh reports whether the snapshot may be served. Stale is identical to
// absent from the reader's point of view.
func (c *Cache) Fresh(snapshot *models.MetricsSnapshot) bool {
	if snapshot == nil {
		return false
	}
	return c.clk.Now().Sub(snapshot.UpdatedAt) <= c.ttl
}

// Write schedules the snapshot for persistence. Writes for the same key
// inside the quiet period replace each other; only the last value lands.
func (c *Cache) Write(ctx context.Context, snapshot *models.MetricsSnapshot) {
	key := cacheKey{
		projectID: snapshot.ProjectID,
		rangeKey:  snapshot.DateRangeKey,
		cacheDay:  snapshot.CacheDay.Format("2006-01-02"),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.pending[key]; ok {
		entry.snapshot = snapshot
		entry.timer.Reset(c.debounce)
		return
	}

	entry := &pendingWrite{snapshot: snapshot}
	entry.timer = time.AfterFunc(c.debounce, func() {
		c.flush(key)
	})
	c.pending[key] = entry
}

// flush runs on the debounce timer goroutine, detached from the caller's
// request context.
func (c *Cache) flush(key cacheKey) {
	c.mu.Lock()
	entry, ok := c.pending[key]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.pending, key)
	c.mu.Unlock()

	ctx := context.Background()
	if err := c.store.UpsertSnapshot(ctx, entry.snapshot); err != nil && c.logg != nil {
		c.logg.Error(ctx, "snapshot write failed", err)
	}
}

// FlushAll persists every pending write immediately. Called on shutdown so
// debounced values are not lost.
func (c *Cache) FlushAll() {
	c.mu.Lock()
	keys := make([]cacheKey, 0, len(c.pending))
	for key, entry := range c.pending {
		entry.timer.Stop()
		keys = append(keys, key)
	}
	c.mu.Unlock()

	for _, key := range keys {
		c.flush(key)
	}
}
