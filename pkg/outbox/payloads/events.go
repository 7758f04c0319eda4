package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// OrderCreatedEvent signals one seller order produced by a checkout split.
type OrderCreatedEvent struct {
	OrderID    uuid.UUID  `json:"order_id"`
	BuyerID    uuid.UUID  `json:"buyer_id"`
	SellerID   *uuid.UUID `json:"seller_id,omitempty"`
	TotalCents int64      `json:"total_cents"`
	ItemCount  int        `json:"item_count"`
}

// OrderPaidEvent is emitted when a verified payment advances an order.
type OrderPaidEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	BuyerID     uuid.UUID  `json:"buyer_id"`
	SellerID    *uuid.UUID `json:"seller_id,omitempty"`
	PaymentID   uuid.UUID  `json:"payment_id"`
	AmountCents int64      `json:"amount_cents"`
	PaidAt      time.Time  `json:"paid_at"`
}

// PaymentFailedEvent reports an unsuccessful gateway verification.
type PaymentFailedEvent struct {
	PaymentID uuid.UUID `json:"payment_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	Reference string    `json:"reference"`
	Reason    string    `json:"reason,omitempty"`
}

// OrderTrackingEvent mirrors a seller fulfillment move (shipped or delivered).
type OrderTrackingEvent struct {
	OrderID     uuid.UUID            `json:"order_id"`
	BuyerID     uuid.UUID            `json:"buyer_id"`
	SellerID    *uuid.UUID           `json:"seller_id,omitempty"`
	Status      enums.OrderStatus    `json:"status"`
	TrackStatus enums.TrackingStatus `json:"track_status"`
}

// OrderCompletedEvent is emitted when the buyer confirms delivery and
// escrow is released.
type OrderCompletedEvent struct {
	OrderID          uuid.UUID  `json:"order_id"`
	BuyerID          uuid.UUID  `json:"buyer_id"`
	SellerID         *uuid.UUID `json:"seller_id,omitempty"`
	TotalCents       int64      `json:"total_cents"`
	EscrowReleasedAt time.Time  `json:"escrow_released_at"`
}

// OrderCancelledEvent is emitted for buyer, seller, and expiry cancellations.
type OrderCancelledEvent struct {
	OrderID     uuid.UUID  `json:"order_id"`
	BuyerID     uuid.UUID  `json:"buyer_id"`
	SellerID    *uuid.UUID `json:"seller_id,omitempty"`
	CancelledAt time.Time  `json:"cancelled_at"`
	Reason      string     `json:"reason,omitempty"`
}

// OrderExpiredEvent describes a pending order swept past its payment window.
type OrderExpiredEvent struct {
	OrderID   uuid.UUID `json:"order_id"`
	BuyerID   uuid.UUID `json:"buyer_id"`
	ExpiredAt time.Time `json:"expired_at"`
}

// NotificationRequestedEvent tells the delivery worker to send one
// recipient notification. LogID points at the order_email_logs row that
// tracks the send.
type NotificationRequestedEvent struct {
	LogID          uuid.UUID           `json:"log_id"`
	OrderID        uuid.UUID           `json:"order_id"`
	Event          enums.OrderEvent    `json:"event"`
	RecipientRole  enums.RecipientRole `json:"recipient_role"`
	RecipientEmail string              `json:"recipient_email"`
	RecipientName  string              `json:"recipient_name,omitempty"`
	RecipientID    uuid.UUID           `json:"recipient_id"`
	Subject        string              `json:"subject"`
}
