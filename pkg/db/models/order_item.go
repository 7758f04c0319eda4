package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderItem is an immutable line snapshot taken at checkout. PriceCents
// is the price the buyer committed to; later catalog edits do not
// touch it.
type OrderItem struct {
	ID          uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID     uuid.UUID `gorm:"column:order_id;type:uuid;not null;uniqueIndex:uq_order_product"`
	ProductID   uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_order_product"`
	ProductName string    `gorm:"column:product_name;type:text;not null"`
	Quantity    int       `gorm:"column:quantity;not null"`
	PriceCents  int64     `gorm:"column:price_cents;not null"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime"`
}

// SubtotalCents derives the line subtotal from the snapshot.
func (i *OrderItem) SubtotalCents() int64 {
	return i.PriceCents * int64(i.Quantity)
}
