package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/internal/products"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// Service manages the buyer's active cart.
type Service interface {
	AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*View, error)
	UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) (*View, error)
	RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) (*View, error)
	View(ctx context.Context, buyerID uuid.UUID) (*View, error)
}

type service struct {
	repo     Repository
	products products.Repository
	tx       txRunner
}

// NewService builds a cart service with the required dependencies.
func NewService(repo Repository, productsRepo products.Repository, tx txRunner) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	return &service{repo: repo, products: productsRepo, tx: tx}, nil
}

func (s *service) AddItem(ctx context.Context, buyerID uuid.UUID, input AddItemInput) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if input.ProductID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id required")
	}
	if input.Quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		// Lock the product row so concurrent adds see a consistent stock count.
		product, err := productsRepo.FindForUpdate(ctx, input.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if !product.IsActive {
			return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		if input.ChoicePriceCents != product.PriceCents {
			return pkgerrors.New(pkgerrors.CodeValidation, "price does not match the product's current price").
				WithDetails(map[string]any{
					"product_id":     product.ID,
					"current_price":  product.PriceCents,
					"supplied_price": input.ChoicePriceCents,
				})
		}

		cart, err := s.findOrCreateActiveCart(ctx, repo, buyerID)
		if err != nil {
			return err
		}

		requested := input.Quantity
		existing, err := repo.FindItemByProduct(ctx, cart.ID, product.ID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
		}
		if existing != nil {
			requested += existing.Quantity
		}
		if requested > product.StockQty {
			return stockError(product, requested)
		}

		if existing != nil {
			if err := repo.UpdateItemQuantity(ctx, existing.ID, requested); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
			}
			return nil
		}
		item := &models.CartItem{
			CartID:           cart.ID,
			ProductID:        product.ID,
			Quantity:         input.Quantity,
			ChoicePriceCents: input.ChoicePriceCents,
		}
		if _, err := repo.CreateItem(ctx, item); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.View(ctx, buyerID)
}

func (s *service) UpdateQuantity(ctx context.Context, buyerID, itemID uuid.UUID, quantity int) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}
	if quantity < 1 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be at least 1")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		item, err := s.resolveOwnedItem(ctx, repo, buyerID, itemID)
		if err != nil {
			return err
		}

		product, err := productsRepo.FindForUpdate(ctx, item.ProductID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
		}
		if quantity > product.StockQty {
			return stockError(product, quantity)
		}

		if err := repo.UpdateItemQuantity(ctx, item.ID, quantity); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.View(ctx, buyerID)
}

func (s *service) RemoveItem(ctx context.Context, buyerID, itemID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if itemID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "item id required")
	}

	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		item, err := s.resolveOwnedItem(ctx, repo, buyerID, itemID)
		if err != nil {
			return err
		}
		if err := repo.DeleteItem(ctx, item.ID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete cart item")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return s.View(ctx, buyerID)
}

func (s *service) View(ctx context.Context, buyerID uuid.UUID) (*View, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	cart, err := s.repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			created, createErr := s.repo.Create(ctx, &models.Cart{BuyerID: buyerID})
			if createErr != nil {
				return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, createErr, "create cart")
			}
			return buildView(created), nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	return buildView(cart), nil
}

// resolveOwnedItem loads an item and confirms it belongs to the buyer's
// active cart. Misses report not-found, never forbidden.
func (s *service) resolveOwnedItem(ctx context.Context, repo Repository, buyerID, itemID uuid.UUID) (*models.CartItem, error) {
	cart, err := repo.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	item, err := repo.FindItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart item")
	}
	if item.CartID != cart.ID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "cart item not found")
	}
	return item, nil
}

func (s *service) findOrCreateActiveCart(ctx context.Context, repo Repository, buyerID uuid.UUID) (*models.Cart, error) {
	cart, err := repo.FindActiveByBuyer(ctx, buyerID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	created, err := repo.Create(ctx, &models.Cart{BuyerID: buyerID})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create cart")
	}
	return created, nil
}

func stockError(product *models.Product, requested int) error {
	return pkgerrors.New(pkgerrors.CodeStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id": product.ID,
			"available":  product.StockQty,
			"requested":  requested,
		})
}
