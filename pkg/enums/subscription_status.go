package enums

import "fmt"

// SubscriptionStatus tracks the seller's billing relationship.
type SubscriptionStatus string

const (
	SubscriptionStatusPending  SubscriptionStatus = "pending"
	SubscriptionStatusActive   SubscriptionStatus = "active"
	SubscriptionStatusPastDue  SubscriptionStatus = "past_due"
	SubscriptionStatusPaused   SubscriptionStatus = "paused"
	SubscriptionStatusCanceled SubscriptionStatus = "canceled"
)

var validSubscriptionStatuses = []SubscriptionStatus{
	SubscriptionStatusPending,
	SubscriptionStatusActive,
	SubscriptionStatusPastDue,
	SubscriptionStatusPaused,
	SubscriptionStatusCanceled,
}

// String implements fmt.Stringer.
func (s SubscriptionStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is known.
func (s SubscriptionStatus) IsValid() bool {
	for _, candidate := range validSubscriptionStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// IsReusable reports whether a checkout retry may update this subscription in
// place instead of creating a second row.
func (s SubscriptionStatus) IsReusable() bool {
	switch s {
	case SubscriptionStatusPending, SubscriptionStatusPastDue, SubscriptionStatusPaused:
		return true
	default:
		return false
	}
}

// ParseSubscriptionStatus converts raw input into a SubscriptionStatus.
func ParseSubscriptionStatus(value string) (SubscriptionStatus, error) {
	for _, candidate := range validSubscriptionStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid subscription status %q", value)
}
