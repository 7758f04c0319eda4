package models

import (
	"time"

	"github.com/google/uuid"
)

// PushSubscription is a browser push endpoint registered by a user.
// Rows are pruned when the provider reports the endpoint gone.
type PushSubscription struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	Endpoint  string    `gorm:"column:endpoint;type:text;not null;uniqueIndex"`
	P256DH    string    `gorm:"column:p256dh;type:text;not null"`
	Auth      string    `gorm:"column:auth;type:text;not null"`
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
}
