package clock

import (
	"fmt"
	"time"
)

// ReportingClock is the single time seam for all window and calendar-day
// logic. Ad platforms report by calendar day in a fixed timezone, so "today"
// must be computed there, never via raw UTC offsets.
type ReportingClock interface {
	Now() time.Time
	Today() time.Time
	Location() *time.Location
}

type reportingClock struct {
	loc *time.Location
}

// New builds a ReportingClock pinned to the named IANA timezone. It fails
// fast when the zone cannot be loaded rather than falling back to UTC.
func New(timezone string) (ReportingClock, error) {
	if timezone == "" {
		return nil, fmt.Errorf("reporting timezone is required")
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("loading reporting timezone %q: %w", timezone, err)
	}
	return &reportingClock{loc: loc}, nil
}

func (c *reportingClock) Now() time.Time {
	return time.Now().In(c.loc)
}

func (c *reportingClock) Today() time.Time {
	return Truncate(c.Now())
}

func (c *reportingClock) Location() *time.Location {
	return c.loc
}

// Truncate drops the time-of-day component, keeping the location.
func Truncate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// Fixed returns a clock frozen at the provided instant. Test seam.
func Fixed(now time.Time) ReportingClock {
	return fixedClock{now: now}
}

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time           { return c.now }
func (c fixedClock) Today() time.Time         { return Truncate(c.now) }
func (c fixedClock) Location() *time.Location { return c.now.Location() }
