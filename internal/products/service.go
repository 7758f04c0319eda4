package products

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
)

// Service exposes catalog reads and the stock adjustments the order flow needs.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*models.Product, error)
	ListActive(ctx context.Context, limit int) ([]models.Product, error)
	Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error
}

type service struct {
	repo Repository
}

// NewService builds a products service.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	return product, nil
}

func (s *service) ListActive(ctx context.Context, limit int) ([]models.Product, error) {
	rows, err := s.repo.ListActive(ctx, limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return rows, nil
}

// Restore returns stock to the catalog when an order is cancelled. Runs
// inside the caller's transaction.
func (s *service) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if qty <= 0 {
		return nil
	}
	repo := s.repo.WithTx(tx)
	if err := repo.AdjustStock(ctx, productID, qty); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "restore stock")
	}
	return nil
}
