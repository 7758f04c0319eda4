package enums

import "fmt"

// TrackingStatus tracks the physical fulfillment state of an order,
// distinct from its financial status.
type TrackingStatus string

const (
	TrackingStatusProcessing TrackingStatus = "processing"
	TrackingStatusShipped    TrackingStatus = "shipped"
	TrackingStatusDelivered  TrackingStatus = "delivered"
	TrackingStatusCompleted  TrackingStatus = "completed"
)

var validTrackingStatuses = []TrackingStatus{
	TrackingStatusProcessing,
	TrackingStatusShipped,
	TrackingStatusDelivered,
	TrackingStatusCompleted,
}

// trackingStatusRanks defines the total order over tracking statuses.
// Tracking never moves backward: transitions must be rank-non-decreasing.
var trackingStatusRanks = map[TrackingStatus]int{
	TrackingStatusProcessing: 0,
	TrackingStatusShipped:    1,
	TrackingStatusDelivered:  2,
	TrackingStatusCompleted:  3,
}

// String implements fmt.Stringer.
func (t TrackingStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TrackingStatus.
func (t TrackingStatus) IsValid() bool {
	_, ok := trackingStatusRanks[t]
	return ok
}

// Rank returns the position of the status in the fulfillment sequence.
// Unknown statuses rank below every valid one.
func (t TrackingStatus) Rank() int {
	if rank, ok := trackingStatusRanks[t]; ok {
		return rank
	}
	return -1
}

// SellerAssignable reports whether a seller may set this status on a
// fulfillment update. Completed is reserved for the buyer's delivery
// confirmation.
func (t TrackingStatus) SellerAssignable() bool {
	switch t {
	case TrackingStatusProcessing, TrackingStatusShipped, TrackingStatusDelivered:
		return true
	}
	return false
}

// CanAdvanceTo reports whether moving t -> next keeps the rank
// non-decreasing.
func (t TrackingStatus) CanAdvanceTo(next TrackingStatus) bool {
	if !next.IsValid() {
		return false
	}
	return next.Rank() >= t.Rank()
}

// ParseTrackingStatus converts raw input into a TrackingStatus.
func ParseTrackingStatus(value string) (TrackingStatus, error) {
	for _, candidate := range validTrackingStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking status %q", value)
}
