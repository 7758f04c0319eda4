package dispatch

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
)

// Repository defines persistence operations for notification logs.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, log *models.OrderEmailLog) (*models.OrderEmailLog, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.OrderEmailLog, error)
	ExistsSent(ctx context.Context, orderID uuid.UUID, event enums.OrderEvent, recipientEmail string) (bool, error)
	MarkSent(ctx context.Context, id uuid.UUID, attempts int) error
	MarkFailed(ctx context.Context, id uuid.UUID, attempts int, sendErr error) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a notification log repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, log *models.OrderEmailLog) (*models.OrderEmailLog, error) {
	if err := r.db.WithContext(ctx).Create(log).Error; err != nil {
		return nil, err
	}
	return log, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderEmailLog, error) {
	var log models.OrderEmailLog
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&log).Error
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *repository) ExistsSent(ctx context.Context, orderID uuid.UUID, event enums.OrderEvent, recipientEmail string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.OrderEmailLog{}).
		Where("order_id = ? AND event = ? AND recipient_email = ? AND status = ?",
			orderID, event, recipientEmail, enums.EmailLogStatusSent).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) MarkSent(ctx context.Context, id uuid.UUID, attempts int) error {
	now := time.Now()
	return r.db.WithContext(ctx).
		Model(&models.OrderEmailLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     enums.EmailLogStatusSent,
			"attempts":   attempts,
			"sent_at":    now,
			"last_error": nil,
		}).Error
}

func (r *repository) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, sendErr error) error {
	message := ""
	if sendErr != nil {
		message = sendErr.Error()
	}
	return r.db.WithContext(ctx).
		Model(&models.OrderEmailLog{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":     enums.EmailLogStatusFailed,
			"attempts":   attempts,
			"last_error": message,
		}).Error
}
