package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// Product represents a seller-owned catalog listing. StockQty is the
// contended row during checkout and must be read under a row lock
// before any decrement.
type Product struct {
	ID          uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	SellerID    uuid.UUID      `gorm:"column:seller_id;type:uuid;not null;index"`
	Name        string         `gorm:"column:name;type:text;not null"`
	Description *string        `gorm:"column:description"`
	PriceCents  int64          `gorm:"column:price_cents;not null"`
	Currency    enums.Currency `gorm:"column:currency;type:text;not null;default:'GHS'"`
	StockQty    int            `gorm:"column:stock_qty;not null;default:0"`
	IsActive    bool           `gorm:"column:is_active;not null;default:true"`
	Seller      *SellerProfile `gorm:"foreignKey:SellerID"`
	CreatedAt   time.Time      `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time      `gorm:"column:updated_at;autoUpdateTime"`
}
