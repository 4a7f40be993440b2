package sync

import (
	"context"
	"time"

	"github.com/google/uuid"

	pkgerrors "github.com/lmoreira/funneltrack-backend/pkg/errors"
)

// runMarker is the redis surface used to flag an in-flight project sync.
type runMarker interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	Del(ctx context.Context, keys ...string) error
	SyncRunKey(projectID string) string
}

// RunGuard marks a project sync as in flight so an overlapping trigger is
// rejected instead of repeating the same work. The marker carries a TTL and
// expires on its own if a run dies without releasing it.
type RunGuard struct {
	marker runMarker
	ttl    time.Duration
}

// NewRunGuard builds a run guard around the redis client.
func NewRunGuard(marker runMarker, ttl time.Duration) *RunGuard {
	return &RunGuard{marker: marker, ttl: ttl}
}

// Acquire flags the project as syncing and returns a release func that
// clears the marker. A nil guard admits everything, which keeps the guard
// optional for callers that serialize runs by other means.
func (g *RunGuard) Acquire(ctx context.Context, projectID uuid.UUID) (func(), error) {
	if g == nil || g.marker == nil {
		return func() {}, nil
	}
	key := g.marker.SyncRunKey(projectID.String())
	ok, err := g.marker.SetNX(ctx, key, "1", g.ttl)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marking sync run")
	}
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "a sync for this project is already running")
	}
	return func() { _ = g.marker.Del(context.Background(), key) }, nil
}
