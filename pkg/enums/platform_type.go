package enums

import "fmt"

// PlatformType identifies an external data source integrated into a project.
type PlatformType string

const (
	PlatformKiwify  PlatformType = "kiwify"
	PlatformHotmart PlatformType = "hotmart"
	PlatformMetaAds PlatformType = "meta_ads"
)

var validPlatformTypes = []PlatformType{
	PlatformKiwify,
	PlatformHotmart,
	PlatformMetaAds,
}

// String implements fmt.Stringer.
func (p PlatformType) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PlatformType.
func (p PlatformType) IsValid() bool {
	for _, candidate := range validPlatformTypes {
		if candidate == p {
			return true
		}
	}
	return false
}

// IsSalesPlatform reports whether the platform delivers sale transactions.
func (p PlatformType) IsSalesPlatform() bool {
	return p == PlatformKiwify || p == PlatformHotmart
}

// ParsePlatformType converts raw input into a PlatformType.
func ParsePlatformType(value string) (PlatformType, error) {
	for _, candidate := range validPlatformTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid platform type %q", value)
}
