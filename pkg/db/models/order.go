package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// Order represents a single-seller order produced by splitting a cart
// at checkout. TotalCents is computed from the item snapshots at
// creation and never recalculated afterwards.
type Order struct {
	ID                uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID           uuid.UUID            `gorm:"column:buyer_id;type:uuid;not null;index"`
	SellerID          *uuid.UUID           `gorm:"column:seller_id;type:uuid;index"`
	ShippingAddressID *uuid.UUID           `gorm:"column:shipping_address_id;type:uuid"`
	CartID            *uuid.UUID           `gorm:"column:cart_id;type:uuid;index"`
	Status            enums.OrderStatus    `gorm:"column:status;type:text;not null;default:'pending'"`
	TrackStatus       enums.TrackingStatus `gorm:"column:track_status;type:text;not null;default:'processing'"`
	Currency          enums.Currency       `gorm:"column:currency;type:text;not null;default:'GHS'"`
	TotalCents        int64                `gorm:"column:total_cents;not null"`
	IsEscrowReleased  bool                 `gorm:"column:is_escrow_released;not null;default:false"`
	EscrowReleasedAt  *time.Time           `gorm:"column:escrow_released_at"`
	PaidAt            *time.Time           `gorm:"column:paid_at"`
	CancelledAt       *time.Time           `gorm:"column:cancelled_at"`
	Items             []OrderItem          `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	ShippingAddress   *ShippingAddress     `gorm:"foreignKey:ShippingAddressID"`
	CreatedAt         time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt         time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
