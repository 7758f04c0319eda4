package models

import (
	"time"

	"github.com/google/uuid"
)

// Profile represents a buyer identity.
type Profile struct {
	ID        uuid.UUID  `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email     string     `gorm:"column:email;type:text;not null;uniqueIndex"`
	FullName  string     `gorm:"column:full_name;type:text;not null"`
	Phone     *string    `gorm:"column:phone"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true"`
	LastSeen  *time.Time `gorm:"column:last_seen"`
	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
