package enums

import "fmt"

// AttributionMode selects how revenue is attributed when computing ROAS.
type AttributionMode string

const (
	// AttributionNet sums the producer's take after platform fees.
	AttributionNet AttributionMode = "net"
	// AttributionGross sums the attributable gross amount stored on each sale.
	AttributionGross AttributionMode = "gross"
	// AttributionTicket multiplies the paid-sale count by a fixed ticket price.
	AttributionTicket AttributionMode = "ticket"
)

var validAttributionModes = []AttributionMode{
	AttributionNet,
	AttributionGross,
	AttributionTicket,
}

// String implements fmt.Stringer.
func (a AttributionMode) String() string {
	return string(a)
}

// IsValid reports whether the value is a known AttributionMode.
func (a AttributionMode) IsValid() bool {
	for _, candidate := range validAttributionModes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseAttributionMode converts raw input into an AttributionMode.
func ParseAttributionMode(value string) (AttributionMode, error) {
	for _, candidate := range validAttributionModes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid attribution mode %q", value)
}
