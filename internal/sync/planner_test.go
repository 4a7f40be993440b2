package sync

import (
	"testing"
	"time"

	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
)

func plannerAt(t *testing.T, now time.Time) *Planner {
	t.Helper()
	return NewPlanner(config.SyncConfig{
		FirstSyncDays:         90,
		IncrementalMarginDays: 7,
	}, clock.Fixed(now))
}

func TestPlanFirstSyncReachesBackNinetyDays(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, loc)

	window := plannerAt(t, now).Plan(nil)

	wantFrom := time.Date(2025, 3, 17, 0, 0, 0, 0, loc)
	if !window.From.Equal(wantFrom) {
		t.Fatalf("unexpected from %v, want %v", window.From, wantFrom)
	}
	if !window.To.Equal(now) {
		t.Fatalf("unexpected to %v", window.To)
	}
}

func TestPlanIncrementalAppliesMargin(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, loc)
	last := time.Date(2025, 6, 14, 9, 0, 0, 0, loc)

	window := plannerAt(t, now).Plan(&last)

	wantFrom := time.Date(2025, 6, 7, 0, 0, 0, 0, loc)
	if !window.From.Equal(wantFrom) {
		t.Fatalf("unexpected from %v, want %v", window.From, wantFrom)
	}
}

func TestSalesWindowUpperBoundIsTomorrow(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	now := time.Date(2025, 6, 15, 23, 50, 0, 0, loc)
	planner := plannerAt(t, now)

	window := planner.Plan(nil)
	salesWindow := planner.SalesWindow(window)

	wantTo := time.Date(2025, 6, 16, 0, 0, 0, 0, loc)
	if !salesWindow.To.Equal(wantTo) {
		t.Fatalf("unexpected sales to %v, want %v", salesWindow.To, wantTo)
	}
	if !salesWindow.From.Equal(window.From) {
		t.Fatalf("sales window should keep the lower bound")
	}
}
