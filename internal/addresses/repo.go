package addresses

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
)

// Repository defines persistence operations for shipping addresses.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, address *models.ShippingAddress) (*models.ShippingAddress, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error)
	ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.ShippingAddress, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	Delete(ctx context.Context, id uuid.UUID) error
	ClearDefault(ctx context.Context, buyerID uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an addresses repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, address *models.ShippingAddress) (*models.ShippingAddress, error) {
	if err := r.db.WithContext(ctx).Create(address).Error; err != nil {
		return nil, err
	}
	return address, nil
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error) {
	var address models.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&address).Error
	if err != nil {
		return nil, err
	}
	return &address, nil
}

func (r *repository) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.ShippingAddress, error) {
	var rows []models.ShippingAddress
	err := r.db.WithContext(ctx).
		Where("buyer_id = ?", buyerID).
		Order("is_default DESC, created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	return r.db.WithContext(ctx).
		Model(&models.ShippingAddress{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ?", id).
		Delete(&models.ShippingAddress{}).Error
}

func (r *repository) ClearDefault(ctx context.Context, buyerID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ShippingAddress{}).
		Where("buyer_id = ? AND is_default = ?", buyerID, true).
		Update("is_default", false).Error
}
