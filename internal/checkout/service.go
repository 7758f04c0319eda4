package checkout

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/internal/addresses"
	"github.com/winimarket/winimarket-backend/internal/cart"
	"github.com/winimarket/winimarket-backend/internal/orders"
	"github.com/winimarket/winimarket-backend/internal/products"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/outbox/payloads"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

type notifier interface {
	Notify(ctx context.Context, tx *gorm.DB, order *models.Order, event enums.OrderEvent) error
}

// OrderSummary describes one seller order produced by a split.
type OrderSummary struct {
	OrderID    uuid.UUID  `json:"order_id"`
	SellerID   *uuid.UUID `json:"seller_id,omitempty"`
	TotalCents int64      `json:"total_cents"`
	ItemCount  int        `json:"item_count"`
}

// Result is the outcome of a checkout: one order per seller, sharing
// the buyer's shipping address and currency.
type Result struct {
	Orders     []OrderSummary `json:"orders"`
	Currency   enums.Currency `json:"currency"`
	TotalCents int64          `json:"total_cents"`
}

// Service turns the buyer's active cart into per-seller pending orders.
type Service interface {
	Execute(ctx context.Context, buyerID, shippingAddressID uuid.UUID) (*Result, error)
}

type service struct {
	orders    orders.Repository
	carts     cart.Repository
	products  products.Repository
	addresses addresses.Repository
	publisher outboxPublisher
	notifier  notifier
	tx        txRunner
	logg      *logger.Logger
}

// NewService builds the checkout service.
func NewService(
	ordersRepo orders.Repository,
	cartsRepo cart.Repository,
	productsRepo products.Repository,
	addressesRepo addresses.Repository,
	publisher outboxPublisher,
	notif notifier,
	tx txRunner,
	logg *logger.Logger,
) (Service, error) {
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartsRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if productsRepo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	if addressesRepo == nil {
		return nil, fmt.Errorf("addresses repository required")
	}
	if publisher == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if notif == nil {
		return nil, fmt.Errorf("notifier required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &service{
		orders:    ordersRepo,
		carts:     cartsRepo,
		products:  productsRepo,
		addresses: addressesRepo,
		publisher: publisher,
		notifier:  notif,
		tx:        tx,
		logg:      logg,
	}, nil
}

// Execute splits the active cart into one pending order per seller.
// Stock is re-checked under row locks and decremented inside the same
// transaction, so a failure on any line rolls back every order. The
// cart is marked checked_out in the same transaction, so a repeated
// call finds no active cart instead of reserving stock twice; anything
// the buyer adds afterwards lands in a fresh cart.
func (s *service) Execute(ctx context.Context, buyerID, shippingAddressID uuid.UUID) (*Result, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if shippingAddressID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address required")
	}

	address, err := s.addresses.FindByID(ctx, shippingAddressID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address invalid")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load shipping address")
	}
	if address.BuyerID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping address invalid")
	}

	activeCart, err := s.carts.FindActiveByBuyer(ctx, buyerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	if len(activeCart.Items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")
	}

	groups, sellers := groupBySeller(activeCart.Items)

	result := &Result{Currency: enums.CurrencyGHS}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		ordersRepo := s.orders.WithTx(tx)
		productsRepo := s.products.WithTx(tx)

		for _, sellerKey := range sellers {
			lines := groups[sellerKey]
			order := &models.Order{
				BuyerID:           buyerID,
				ShippingAddressID: &shippingAddressID,
				CartID:            &activeCart.ID,
				Status:            enums.OrderStatusPending,
				TrackStatus:       enums.TrackingStatusProcessing,
				Currency:          enums.CurrencyGHS,
			}
			if sellerKey != uuid.Nil {
				sellerID := sellerKey
				order.SellerID = &sellerID
			}

			itemCount := 0
			for _, line := range lines {
				product, err := productsRepo.FindForUpdate(ctx, line.ProductID)
				if err != nil {
					if errors.Is(err, gorm.ErrRecordNotFound) {
						return pkgerrors.New(pkgerrors.CodeNotFound, "product no longer available").
							WithDetails(map[string]any{"product_id": line.ProductID})
					}
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
				}
				if !product.IsActive || line.Quantity > product.StockQty {
					return pkgerrors.New(pkgerrors.CodeStock, "insufficient stock").
						WithDetails(map[string]any{
							"product_id": product.ID,
							"available":  product.StockQty,
							"requested":  line.Quantity,
						})
				}
				if err := productsRepo.AdjustStock(ctx, product.ID, -line.Quantity); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve stock")
				}
				order.Items = append(order.Items, models.OrderItem{
					ProductID:   product.ID,
					ProductName: product.Name,
					Quantity:    line.Quantity,
					PriceCents:  line.ChoicePriceCents,
				})
				order.TotalCents += line.SubtotalCents()
				itemCount += line.Quantity
			}

			created, err := ordersRepo.Create(ctx, order)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create order")
			}

			if err := s.publisher.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     enums.EventOrderCreated,
				AggregateType: enums.AggregateOrder,
				AggregateID:   created.ID,
				Actor:         &outbox.ActorRef{UserID: buyerID, Role: "buyer"},
				Data: payloads.OrderCreatedEvent{
					OrderID:    created.ID,
					BuyerID:    buyerID,
					SellerID:   created.SellerID,
					TotalCents: created.TotalCents,
					ItemCount:  itemCount,
				},
			}); err != nil {
				return err
			}
			if err := s.notifier.Notify(ctx, tx, created, enums.OrderEventCreated); err != nil {
				return err
			}

			result.Orders = append(result.Orders, OrderSummary{
				OrderID:    created.ID,
				SellerID:   created.SellerID,
				TotalCents: created.TotalCents,
				ItemCount:  itemCount,
			})
			result.TotalCents += created.TotalCents
		}

		if err := s.carts.WithTx(tx).UpdateStatus(ctx, activeCart.ID, enums.CartStatusCheckedOut); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close cart")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// groupBySeller buckets cart lines by the product's seller and returns
// a stable ordering of the seller keys. Lines whose product row is
// missing fall into the nil bucket and fail the stock re-check later.
func groupBySeller(items []models.CartItem) (map[uuid.UUID][]models.CartItem, []uuid.UUID) {
	groups := make(map[uuid.UUID][]models.CartItem)
	for _, item := range items {
		key := uuid.Nil
		if item.Product != nil {
			key = item.Product.SellerID
		}
		groups[key] = append(groups[key], item)
	}
	sellers := make([]uuid.UUID, 0, len(groups))
	for key := range groups {
		sellers = append(sellers, key)
	}
	sort.Slice(sellers, func(i, j int) bool {
		return sellers[i].String() < sellers[j].String()
	})
	return groups, sellers
}
