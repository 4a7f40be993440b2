package insights

import (
	"testing"
	"time"

	"github.com/lmoreira/funneltrack-backend/pkg/clock"
	"github.com/lmoreira/funneltrack-backend/pkg/enums"
)

func TestResolveRange(t *testing.T) {
	loc, err := time.LoadLocation("America/Sao_Paulo")
	if err != nil {
		t.Fatalf("load location: %v", err)
	}
	clk := clock.Fixed(time.Date(2025, 6, 15, 22, 45, 0, 0, loc))

	today := time.Date(2025, 6, 15, 0, 0, 0, 0, loc)
	tomorrow := time.Date(2025, 6, 16, 0, 0, 0, 0, loc)

	cases := []struct {
		key  enums.DateRangeKey
		from time.Time
		to   time.Time
	}{
		{enums.DateRangeToday, today, tomorrow},
		{enums.DateRangeYesterday, today.AddDate(0, 0, -1), today},
		{enums.DateRangeLast7Days, today.AddDate(0, 0, -6), tomorrow},
		{enums.DateRangeLast30Days, today.AddDate(0, 0, -29), tomorrow},
		{enums.DateRangeThisMonth, time.Date(2025, 6, 1, 0, 0, 0, 0, loc), tomorrow},
	}

	for _, tc := range cases {
		rng := ResolveRange(tc.key, clk)
		if !rng.From.Equal(tc.from) {
			t.Errorf("%s: unexpected from %v, want %v", tc.key, rng.From, tc.from)
		}
		if !rng.To.Equal(tc.to) {
			t.Errorf("%s: unexpected to %v, want %v", tc.key, rng.To, tc.to)
		}
	}
}

func TestResolveRangeMaximumHasNoLowerBound(t *testing.T) {
	clk := clock.Fixed(time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC))
	rng := ResolveRange(enums.DateRangeMaximum, clk)
	if !rng.From.IsZero() {
		t.Fatalf("maximum range should have no lower bound, got %v", rng.From)
	}
	if !rng.To.Equal(time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected to %v", rng.To)
	}
}
