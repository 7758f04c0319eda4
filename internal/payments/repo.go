package payments

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/winimarket/winimarket-backend/pkg/db"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
)

// Repository defines persistence operations for payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) (*models.Payment, error)
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	FindByReferenceForUpdate(ctx context.Context, reference string) (*models.Payment, error)
	Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the payment and its payment_orders join rows. The
// orders themselves already exist, so the association upsert is
// omitted to avoid touching their columns.
func (r *repository) Create(ctx context.Context, payment *models.Payment) (*models.Payment, error) {
	if err := r.db.WithContext(ctx).Omit("Orders.*").Create(payment).Error; err != nil {
		return nil, err
	}
	return payment, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByReferenceForUpdate(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).
		Where("reference = ?", reference).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("id = ?", id).
		Updates(fields).Error
}
