package models

import (
	"time"

	"github.com/google/uuid"
)

// ShippingAddress is a buyer-owned delivery address. Orders reference
// it with ON DELETE SET NULL so completed orders survive address
// deletion.
type ShippingAddress struct {
	ID         uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	BuyerID    uuid.UUID `gorm:"column:buyer_id;type:uuid;not null;index"`
	Recipient  string    `gorm:"column:recipient;type:text;not null"`
	Phone      string    `gorm:"column:phone;type:text;not null"`
	Line1      string    `gorm:"column:line1;type:text;not null"`
	Line2      *string   `gorm:"column:line2"`
	City       string    `gorm:"column:city;type:text;not null"`
	Region     string    `gorm:"column:region;type:text;not null"`
	Country    string    `gorm:"column:country;type:text;not null;default:'GH'"`
	PostalCode *string   `gorm:"column:postal_code"`
	IsDefault  bool      `gorm:"column:is_default;not null;default:false"`
	CreatedAt  time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
