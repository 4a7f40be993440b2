package sync

import (
	"time"

	"github.com/lmoreira/funneltrack-backend/internal/platforms"
	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/config"
)

// Planner decides the reconciliation window for one run. First sync reaches
// back the full backfill horizon; incremental runs re-read a safety margin
// behind the watermark to pick up late refunds and restated ad days.
type Planner struct {
	firstSyncDays int
	marginDays    int
	clock         clock.ReportingClock
}

// NewPlanner builds a planner from sync config.
func NewPlanner(cfg config.SyncConfig, clk clock.ReportingClock) *Planner {
	return &Planner{
		firstSyncDays: cfg.FirstSyncDays,
		marginDays:    cfg.IncrementalMarginDays,
		clock:         clk,
	}
}

// Plan returns the window for a run given the project's watermark. All
// sources in the run share this one window.
func (p *Planner) Plan(lastSyncAt *time.Time) platforms.Window {
	now := p.clock.Now()
	if lastSyncAt == nil {
		return platforms.Window{
			From: clock.Truncate(now.AddDate(0, 0, -p.firstSyncDays)),
			To:   now,
		}
	}
	return platforms.Window{
		From: clock.Truncate(lastSyncAt.In(p.clock.Location()).AddDate(0, 0, -p.marginDays)),
		To:   now,
	}
}

// SalesWindow widens the upper bound to tomorrow. Checkout platforms treat
// the end date as exclusive of the day's tail, so asking up to "now" can
// drop sales made earlier today.
func (p *Planner) SalesWindow(window platforms.Window) platforms.Window {
	return platforms.Window{
		From: window.From,
		To:   p.clock.Today().AddDate(0, 0, 1),
	}
}
