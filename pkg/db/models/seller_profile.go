package models

import (
	"time"

	"github.com/google/uuid"
)

// SellerProfile represents a seller identity and storefront name.
type SellerProfile struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string    `gorm:"column:email;type:text;not null;uniqueIndex"`
	ShopName  string    `gorm:"column:shop_name;type:text;not null"`
	Phone     *string   `gorm:"column:phone"`
	IsActive  bool      `gorm:"column:is_active;not null;default:true"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
