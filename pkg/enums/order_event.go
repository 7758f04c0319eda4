package enums

import "fmt"

// OrderEvent names a state transition worth notifying the order's parties
// about.
type OrderEvent string

const (
	OrderEventCreated       OrderEvent = "order_created"
	OrderEventPaid          OrderEvent = "order_paid"
	OrderEventPaymentFailed OrderEvent = "payment_failed"
	OrderEventShipped       OrderEvent = "order_shipped"
	OrderEventDelivered     OrderEvent = "order_delivered"
	OrderEventCompleted     OrderEvent = "order_completed"
	OrderEventCancelled     OrderEvent = "order_cancelled"
)

var validOrderEvents = []OrderEvent{
	OrderEventCreated,
	OrderEventPaid,
	OrderEventPaymentFailed,
	OrderEventShipped,
	OrderEventDelivered,
	OrderEventCompleted,
	OrderEventCancelled,
}

// String implements fmt.Stringer.
func (o OrderEvent) String() string {
	return string(o)
}

// IsValid reports whether the value is a known OrderEvent.
func (o OrderEvent) IsValid() bool {
	for _, candidate := range validOrderEvents {
		if candidate == o {
			return true
		}
	}
	return false
}

// ParseOrderEvent converts raw input into an OrderEvent.
func ParseOrderEvent(value string) (OrderEvent, error) {
	for _, candidate := range validOrderEvents {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order event %q", value)
}
