package users

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
)

// Repository defines reads over buyer and seller identities.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error)
	FindSellerProfile(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error)
	ListPushSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error)
	DeletePushSubscription(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a users repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindProfile(ctx context.Context, id uuid.UUID) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) FindSellerProfile(ctx context.Context, id uuid.UUID) (*models.SellerProfile, error) {
	var profile models.SellerProfile
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&profile).Error
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *repository) ListPushSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	var rows []models.PushSubscription
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Find(&rows).Error
	return rows, err
}

func (r *repository) DeletePushSubscription(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.PushSubscription{}).Error
}
