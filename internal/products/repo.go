package products

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/winimarket/winimarket-backend/pkg/db"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
)

// Repository defines persistence operations for the product catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error)
	ListActive(ctx context.Context, limit int) ([]models.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a products repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindForUpdate loads the product under a row lock. Callers must hold a
// transaction; stock checks and decrements read through this.
func (r *repository) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := dbpkg.ForUpdate(r.db.WithContext(ctx)).
		Where("id = ?", id).
		First(&product).Error
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (r *repository) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("seller_id = ?", sellerID).
		Order("created_at DESC").
		Find(&rows).Error
	return rows, err
}

func (r *repository) ListActive(ctx context.Context, limit int) ([]models.Product, error) {
	if limit <= 0 {
		limit = 50
	}
	var rows []models.Product
	err := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

func (r *repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	return r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("stock_qty", gorm.Expr("stock_qty + ?", delta)).Error
}
