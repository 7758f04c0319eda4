package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// Cart represents a buyer's basket. A buyer has at most one active
// cart, enforced by a partial unique index on (buyer_id) WHERE
// status = 'active'.
type Cart struct {
	ID        uuid.UUID        `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID   uuid.UUID        `gorm:"column:buyer_id;type:uuid;not null;index"`
	Status    enums.CartStatus `gorm:"column:status;type:text;not null;default:'active'"`
	Items     []CartItem       `gorm:"foreignKey:CartID;constraint:OnDelete:CASCADE"`
	CreatedAt time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// TotalItems sums line quantities.
func (c *Cart) TotalItems() int {
	total := 0
	for _, item := range c.Items {
		total += item.Quantity
	}
	return total
}

// TotalCents derives the cart subtotal from its lines. Totals are
// never stored on the cart row.
func (c *Cart) TotalCents() int64 {
	var total int64
	for _, item := range c.Items {
		total += item.ChoicePriceCents * int64(item.Quantity)
	}
	return total
}
