package insights

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/db/models"
)

type fakeSnapshotStore struct {
	mu     sync.Mutex
	writes []*models.MetricsSnapshot
}

func (f *fakeSnapshotStore) UpsertSnapshot(ctx context.Context, snapshot *models.MetricsSnapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.writes = append(f.writes, snapshot)
	return nil
}

func (f *fakeSnapshotStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.writes)
}

func (f *fakeSnapshotStore) last() *models.MetricsSnapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.writes) == 0 {
		return nil
	}
	return f.writes[len(f.writes)-1]
}

func snapshotFor(projectID uuid.UUID, payload string) *models.MetricsSnapshot {
	return &models.MetricsSnapshot{
		ProjectID:    projectID,
		DateRangeKey: "last_30_days",
		CacheDay:     time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
		Metrics:      []byte(payload),
	}
}

func TestFreshnessTTLBoundary(t *testing.T) {
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	cache := NewCache(&fakeSnapshotStore{}, clock.Fixed(now), 5*time.Minute, time.Millisecond, nil)

	within := snapshotFor(uuid.New(), `{}`)
	within.UpdatedAt = now.Add(-5 * time.Minute)
	if !cache.Fresh(within) {
		t.Fatalf("snapshot exactly at TTL should still be fresh")
	}

	beyond := snapshotFor(uuid.New(), `{}`)
	beyond.UpdatedAt = now.Add(-5*time.Minute - time.Second)
	if cache.Fresh(beyond) {
		t.Fatalf("snapshot past TTL must not be served")
	}

	if cache.Fresh(nil) {
		t.Fatalf("absent snapshot is never fresh")
	}
}

func TestWriteDebounceCoalescesBursts(t *testing.T) {
	store := &fakeSnapshotStore{}
	cache := NewCache(store, clock.Fixed(time.Now()), 5*time.Minute, 30*time.Millisecond, nil)

	projectID := uuid.New()
	for i := 0; i < 5; i++ {
		cache.Write(context.Background(), snapshotFor(projectID, `{"seq":`+string(rune('0'+i))+`}`))
		time.Sleep(5 * time.Millisecond)
	}

	// the quiet period has not elapsed between writes, so nothing landed yet
	if store.count() != 0 {
		t.Fatalf("expected no writes during the burst, got %d", store.count())
	}

	deadline := time.Now().Add(time.Second)
	for store.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}

	if store.count() != 1 {
		t.Fatalf("burst should coalesce into one write, got %d", store.count())
	}
	if got := string(store.last().Metrics); got != `{"seq":4}` {
		t.Fatalf("last value should win, got %s", got)
	}
}

func TestWriteSeparateKeysDoNotCoalesce(t *testing.T) {
	store := &fakeSnapshotStore{}
	cache := NewCache(store, clock.Fixed(time.Now()), 5*time.Minute, 10*time.Millisecond, nil)

	cache.Write(context.Background(), snapshotFor(uuid.New(), `{}`))
	cache.Write(context.Background(), snapshotFor(uuid.New(), `{}`))

	deadline := time.Now().Add(time.Second)
	for store.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if store.count() != 2 {
		t.Fatalf("distinct keys must write independently, got %d", store.count())
	}
}

func TestFlushAllPersistsPendingWrites(t *testing.T) {
	store := &fakeSnapshotStore{}
	cache := NewCache(store, clock.Fixed(time.Now()), 5*time.Minute, time.Hour, nil)

	cache.Write(context.Background(), snapshotFor(uuid.New(), `{}`))
	cache.FlushAll()

	if store.count() != 1 {
		t.Fatalf("flush should persist pending writes, got %d", store.count())
	}
}
