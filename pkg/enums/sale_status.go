package enums

import "fmt"

// SaleStatus is the canonical lifecycle state of a reconciled sale.
type SaleStatus string

const (
	SaleStatusPaid     SaleStatus = "paid"
	SaleStatusRefunded SaleStatus = "refunded"
	SaleStatusPending  SaleStatus = "pending"
	SaleStatusCanceled SaleStatus = "canceled"
)

var validSaleStatuses = []SaleStatus{
	SaleStatusPaid,
	SaleStatusRefunded,
	SaleStatusPending,
	SaleStatusCanceled,
}

// String implements fmt.Stringer.
func (s SaleStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known SaleStatus.
func (s SaleStatus) IsValid() bool {
	for _, candidate := range validSaleStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseSaleStatus converts raw input into a SaleStatus.
func ParseSaleStatus(value string) (SaleStatus, error) {
	for _, candidate := range validSaleStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid sale status %q", value)
}
