package enums

import "fmt"

// DateRangeKey names a dashboard-selectable reporting period.
type DateRangeKey string

const (
	DateRangeToday      DateRangeKey = "today"
	DateRangeYesterday  DateRangeKey = "yesterday"
	DateRangeLast7Days  DateRangeKey = "last_7_days"
	DateRangeLast30Days DateRangeKey = "last_30_days"
	DateRangeThisMonth  DateRangeKey = "this_month"
	DateRangeMaximum    DateRangeKey = "maximum"
)

var validDateRangeKeys = []DateRangeKey{
	DateRangeToday,
	DateRangeYesterday,
	DateRangeLast7Days,
	DateRangeLast30Days,
	DateRangeThisMonth,
	DateRangeMaximum,
}

// String implements fmt.Stringer.
func (d DateRangeKey) String() string {
	return string(d)
}

// IsValid reports whether the value is a known DateRangeKey.
func (d DateRangeKey) IsValid() bool {
	for _, candidate := range validDateRangeKeys {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDateRangeKey converts raw input into a DateRangeKey.
func ParseDateRangeKey(value string) (DateRangeKey, error) {
	for _, candidate := range validDateRangeKeys {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid date range key %q", value)
}
