package enums

import "fmt"

// OutboxAggregateType maps to the aggregate_type enum in Postgres.
type OutboxAggregateType string

const (
	AggregateOrder        OutboxAggregateType = "order"
	AggregatePayment      OutboxAggregateType = "payment"
	AggregateNotification OutboxAggregateType = "notification"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateOrder,
	AggregatePayment,
	AggregateNotification,
}

// IsValid reports whether the value matches the canonical aggregate_type enum.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType maps to the event_type enum in Postgres.
type OutboxEventType string

const (
	EventOrderCreated   OutboxEventType = "order_created"
	EventOrderPaid      OutboxEventType = "order_paid"
	EventPaymentFailed  OutboxEventType = "payment_failed"
	EventOrderShipped   OutboxEventType = "order_shipped"
	EventOrderDelivered OutboxEventType = "order_delivered"
	EventOrderCompleted OutboxEventType = "order_completed"
	EventOrderCancelled OutboxEventType = "order_cancelled"
	EventOrderExpired   OutboxEventType = "order_expired"

	EventNotificationRequested OutboxEventType = "notification_requested"
)

var validOutboxEventTypes = []OutboxEventType{
	EventOrderCreated,
	EventOrderPaid,
	EventPaymentFailed,
	EventOrderShipped,
	EventOrderDelivered,
	EventOrderCompleted,
	EventOrderCancelled,
	EventOrderExpired,
	EventNotificationRequested,
}

// IsValid reports whether the value matches the canonical event_type enum.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}

// FromOrderEvent maps a domain order event onto its outbox event type.
func FromOrderEvent(event OrderEvent) (OutboxEventType, error) {
	mapped := OutboxEventType(event)
	if !mapped.IsValid() {
		return "", fmt.Errorf("order event %q has no outbox event type", event)
	}
	return mapped, nil
}
