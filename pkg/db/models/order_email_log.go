package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// OrderEmailLog records one notification attempt for an order event.
// A partial unique index on (order_id, event, recipient_email) WHERE
// status = 'sent' caps successful sends at one per recipient per
// state change.
type OrderEmailLog struct {
	ID             uuid.UUID            `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID        uuid.UUID            `gorm:"column:order_id;type:uuid;not null;index"`
	Event          enums.OrderEvent     `gorm:"column:event;type:text;not null"`
	RecipientRole  enums.RecipientRole  `gorm:"column:recipient_role;type:text;not null"`
	RecipientEmail string               `gorm:"column:recipient_email;type:text;not null"`
	Subject        string               `gorm:"column:subject;type:text;not null"`
	Status         enums.EmailLogStatus `gorm:"column:status;type:text;not null;default:'pending'"`
	Attempts       int                  `gorm:"column:attempts;not null;default:0"`
	LastError      *string              `gorm:"column:last_error"`
	SentAt         *time.Time           `gorm:"column:sent_at"`
	CreatedAt      time.Time            `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt      time.Time            `gorm:"column:updated_at;autoUpdateTime"`
}
