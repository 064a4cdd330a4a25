package enums

import "fmt"

// ListingStatus is the subset of listing state the billing core touches.
type ListingStatus string

const (
	ListingStatusDraft     ListingStatus = "draft"
	ListingStatusPublished ListingStatus = "published"
	ListingStatusPaused    ListingStatus = "paused"
	ListingStatusArchived  ListingStatus = "archived"
)

var validListingStatuses = []ListingStatus{
	ListingStatusDraft,
	ListingStatusPublished,
	ListingStatusPaused,
	ListingStatusArchived,
}

// String implements fmt.Stringer.
func (l ListingStatus) String() string {
	return string(l)
}

// IsValid reports whether the value is known.
func (l ListingStatus) IsValid() bool {
	for _, candidate := range validListingStatuses {
		if candidate == l {
			return true
		}
	}
	return false
}

// ParseListingStatus converts raw input into a ListingStatus.
func ParseListingStatus(value string) (ListingStatus, error) {
	for _, candidate := range validListingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid listing status %q", value)
}
