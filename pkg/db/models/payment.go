package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// Payment represents one gateway charge covering one or more orders.
// OrderIDs is the snapshot taken at initialization; the payment_orders
// join table carries the relational link.
type Payment struct {
	ID          uuid.UUID           `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID     uuid.UUID           `gorm:"column:buyer_id;type:uuid;not null;index"`
	Reference   string              `gorm:"column:reference;type:text;not null;uniqueIndex"`
	AmountCents int64               `gorm:"column:amount_cents;not null"`
	Currency    enums.Currency      `gorm:"column:currency;type:text;not null;default:'GHS'"`
	Status      enums.PaymentStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	OrderIDs    pq.StringArray      `gorm:"column:order_ids;type:text[];not null;default:ARRAY[]::text[]"`
	Orders      []Order             `gorm:"many2many:payment_orders"`
	GatewayRef  *string             `gorm:"column:gateway_ref"`
	PaidAt      *time.Time          `gorm:"column:paid_at"`
	CreatedAt   time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

// IsSettled reports whether the payment has already been marked
// success. Settlement happens exactly once.
func (p *Payment) IsSettled() bool {
	return p.Status == enums.PaymentStatusSuccess
}
