package enums

import "fmt"

// DepositStatus maps to the deposit_status_enum enum in Postgres.
type DepositStatus string

const (
	DepositStatusPending   DepositStatus = "pending"
	DepositStatusConfirmed DepositStatus = "confirmed"
	DepositStatusRejected  DepositStatus = "rejected"
)

var validDepositStatuses = []DepositStatus{
	DepositStatusPending,
	DepositStatusConfirmed,
	DepositStatusRejected,
}

// IsValid reports whether the value matches the canonical deposit status enum.
func (s DepositStatus) IsValid() bool {
	for _, candidate := range validDepositStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseDepositStatus converts raw input into DepositStatus.
func ParseDepositStatus(value string) (DepositStatus, error) {
	for _, candidate := range validDepositStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid deposit status %q", value)
}
