package insights

import (
	"time"

	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
)

// DateRange is the half-open [From, To) interval a metrics read covers,
// resolved in the reporting timezone.
type DateRange struct {
	From time.Time
	To   time.Time
}

// ResolveRange turns a named range key into concrete bounds against the
// reporting clock. Relative ranges that include "today" end at tomorrow so
// same-day rows are never cut off.
func ResolveRange(key enums.DateRangeKey, clk clock.ReportingClock) DateRange {
	today := clk.Today()
	tomorrow := today.AddDate(0, 0, 1)

	switch key {
	case enums.DateRangeToday:
		return DateRange{From: today, To: tomorrow}
	case enums.DateRangeYesterday:
		return DateRange{From: today.AddDate(0, 0, -1), To: today}
	case enums.DateRangeLast7Days:
		return DateRange{From: today.AddDate(0, 0, -6), To: tomorrow}
	case enums.DateRangeLast30Days:
		return DateRange{From: today.AddDate(0, 0, -29), To: tomorrow}
	case enums.DateRangeThisMonth:
		first := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, clk.Location())
		return DateRange{From: first, To: tomorrow}
	case enums.DateRangeMaximum:
		return DateRange{From: time.Time{}, To: tomorrow}
	default:
		return DateRange{From: today.AddDate(0, 0, -29), To: tomorrow}
	}
}
