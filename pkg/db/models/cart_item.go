package models

import (
	"time"

	"github.com/google/uuid"
)

// CartItem represents one product line inside a cart. A cart carries
// at most one line per product, enforced by a unique index on
// (cart_id, product_id).
type CartItem struct {
	ID               uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	CartID           uuid.UUID `gorm:"column:cart_id;type:uuid;not null;uniqueIndex:uq_cart_product"`
	ProductID        uuid.UUID `gorm:"column:product_id;type:uuid;not null;uniqueIndex:uq_cart_product"`
	Quantity         int       `gorm:"column:quantity;not null"`
	ChoicePriceCents int64     `gorm:"column:choice_price_cents;not null"`
	Product          *Product  `gorm:"foreignKey:ProductID"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// SubtotalCents derives the line subtotal.
func (i *CartItem) SubtotalCents() int64 {
	return i.ChoicePriceCents * int64(i.Quantity)
}
