package checkout

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
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
)

type stubOrdersRepo struct {
	created []*models.Order
}

func (s *stubOrdersRepo) WithTx(tx *gorm.DB) orders.Repository { return s }

func (s *stubOrdersRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.created = append(s.created, order)
	return order, nil
}

func (s *stubOrdersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	panic("not implemented")
}

func (s *stubOrdersRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	panic("not implemented")
}

type stubCartRepo struct {
	cart *models.Cart
}

func (s *stubCartRepo) WithTx(tx *gorm.DB) cart.Repository { return s }

func (s *stubCartRepo) FindActiveByBuyer(ctx context.Context, buyerID uuid.UUID) (*models.Cart, error) {
	if s.cart == nil || s.cart.BuyerID != buyerID || s.cart.Status != enums.CartStatusActive {
		return nil, gorm.ErrRecordNotFound
	}
	return s.cart, nil
}

func (s *stubCartRepo) Create(ctx context.Context, c *models.Cart) (*models.Cart, error) {
	panic("not implemented")
}

func (s *stubCartRepo) FindItem(ctx context.Context, itemID uuid.UUID) (*models.CartItem, error) {
	panic("not implemented")
}

func (s *stubCartRepo) FindItemByProduct(ctx context.Context, cartID, productID uuid.UUID) (*models.CartItem, error) {
	panic("not implemented")
}

func (s *stubCartRepo) CreateItem(ctx context.Context, item *models.CartItem) (*models.CartItem, error) {
	panic("not implemented")
}

func (s *stubCartRepo) UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error {
	panic("not implemented")
}

func (s *stubCartRepo) DeleteItem(ctx context.Context, itemID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubCartRepo) DeleteItemsByCart(ctx context.Context, cartID uuid.UUID) error {
	panic("not implemented")
}

func (s *stubCartRepo) UpdateStatus(ctx context.Context, cartID uuid.UUID, status enums.CartStatus) error {
	if s.cart != nil && s.cart.ID == cartID {
		s.cart.Status = status
	}
	return nil
}

type stubProductsRepo struct {
	products map[uuid.UUID]*models.Product
}

func (s *stubProductsRepo) WithTx(tx *gorm.DB) products.Repository { return s }

func (s *stubProductsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	return s.FindForUpdate(ctx, id)
}

func (s *stubProductsRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	product, ok := s.products[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *product
	return &copied, nil
}

func (s *stubProductsRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) ListActive(ctx context.Context, limit int) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsRepo) AdjustStock(ctx context.Context, id uuid.UUID, delta int) error {
	if product, ok := s.products[id]; ok {
		product.StockQty += delta
	}
	return nil
}

type stubAddressesRepo struct {
	address *models.ShippingAddress
}

func (s *stubAddressesRepo) WithTx(tx *gorm.DB) addresses.Repository { return s }

func (s *stubAddressesRepo) Create(ctx context.Context, address *models.ShippingAddress) (*models.ShippingAddress, error) {
	panic("not implemented")
}

func (s *stubAddressesRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ShippingAddress, error) {
	if s.address == nil || s.address.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.address, nil
}

func (s *stubAddressesRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.ShippingAddress, error) {
	panic("not implemented")
}

func (s *stubAddressesRepo) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	panic("not implemented")
}

func (s *stubAddressesRepo) Delete(ctx context.Context, id uuid.UUID) error {
	panic("not implemented")
}

func (s *stubAddressesRepo) ClearDefault(ctx context.Context, buyerID uuid.UUID) error {
	panic("not implemented")
}

type stubPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

type stubNotifier struct {
	notified []enums.OrderEvent
}

func (s *stubNotifier) Notify(ctx context.Context, tx *gorm.DB, order *models.Order, event enums.OrderEvent) error {
	s.notified = append(s.notified, event)
	return nil
}

type stubTxRunner struct{}

func (stubTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(nil)
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

type fixture struct {
	svc       Service
	ordersR   *stubOrdersRepo
	cartsR    *stubCartRepo
	productsR *stubProductsRepo
	publisher *stubPublisher
	notifier  *stubNotifier
}

func newFixture(t *testing.T, activeCart *models.Cart, address *models.ShippingAddress, catalog map[uuid.UUID]*models.Product) *fixture {
	t.Helper()
	ordersR := &stubOrdersRepo{}
	cartsR := &stubCartRepo{cart: activeCart}
	productsR := &stubProductsRepo{products: catalog}
	publisher := &stubPublisher{}
	notif := &stubNotifier{}
	svc, err := NewService(
		ordersR,
		cartsR,
		productsR,
		&stubAddressesRepo{address: address},
		publisher,
		notif,
		stubTxRunner{},
		testLogger(),
	)
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return &fixture{svc: svc, ordersR: ordersR, cartsR: cartsR, productsR: productsR, publisher: publisher, notifier: notif}
}

func catalogProduct(sellerID uuid.UUID, price int64, stock int) *models.Product {
	return &models.Product{
		ID:         uuid.New(),
		SellerID:   sellerID,
		Name:       "Product",
		PriceCents: price,
		StockQty:   stock,
		IsActive:   true,
	}
}

func cartWith(buyerID uuid.UUID, lines ...models.CartItem) *models.Cart {
	c := &models.Cart{
		ID:      uuid.New(),
		BuyerID: buyerID,
		Status:  enums.CartStatusActive,
		Items:   lines,
	}
	for i := range c.Items {
		c.Items[i].CartID = c.ID
	}
	return c
}

func line(product *models.Product, qty int) models.CartItem {
	return models.CartItem{
		ID:               uuid.New(),
		ProductID:        product.ID,
		Quantity:         qty,
		ChoicePriceCents: product.PriceCents,
		Product:          product,
	}
}

func TestExecuteSplitsCartBySeller(t *testing.T) {
	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()
	productA := catalogProduct(sellerA, 2000, 10)
	productB1 := catalogProduct(sellerB, 1500, 10)
	productB2 := catalogProduct(sellerB, 500, 10)
	address := &models.ShippingAddress{ID: uuid.New(), BuyerID: buyerID}

	f := newFixture(t,
		cartWith(buyerID, line(productA, 1), line(productB1, 2), line(productB2, 1)),
		address,
		map[uuid.UUID]*models.Product{
			productA.ID:  productA,
			productB1.ID: productB1,
			productB2.ID: productB2,
		},
	)

	result, err := f.svc.Execute(context.Background(), buyerID, address.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(result.Orders) != 2 {
		t.Fatalf("expected 2 orders got %d", len(result.Orders))
	}
	if result.TotalCents != 2000+3000+500 {
		t.Fatalf("expected grand total 5500 got %d", result.TotalCents)
	}

	totals := map[uuid.UUID]int64{}
	for _, summary := range result.Orders {
		if summary.SellerID == nil {
			t.Fatal("expected seller id on every order")
		}
		totals[*summary.SellerID] = summary.TotalCents
	}
	if totals[sellerA] != 2000 {
		t.Fatalf("expected seller A total 2000 got %d", totals[sellerA])
	}
	if totals[sellerB] != 3500 {
		t.Fatalf("expected seller B total 3500 got %d", totals[sellerB])
	}

	if f.productsR.products[productB1.ID].StockQty != 8 {
		t.Fatalf("expected stock decremented to 8 got %d", f.productsR.products[productB1.ID].StockQty)
	}
	if len(f.publisher.events) != 2 {
		t.Fatalf("expected 2 outbox events got %d", len(f.publisher.events))
	}
	for _, event := range f.publisher.events {
		if event.EventType != enums.EventOrderCreated {
			t.Fatalf("expected order_created event got %s", event.EventType)
		}
	}
	if len(f.notifier.notified) != 2 {
		t.Fatalf("expected 2 notifications got %d", len(f.notifier.notified))
	}
	for _, order := range f.ordersR.created {
		if order.Status != enums.OrderStatusPending {
			t.Fatalf("expected pending order got %s", order.Status)
		}
		if order.TrackStatus != enums.TrackingStatusProcessing {
			t.Fatalf("expected processing track got %s", order.TrackStatus)
		}
		if order.CartID == nil || *order.CartID != f.cartsR.cart.ID {
			t.Fatalf("expected order linked to cart %s got %v", f.cartsR.cart.ID, order.CartID)
		}
	}
	if f.cartsR.cart.Status != enums.CartStatusCheckedOut {
		t.Fatalf("expected cart checked out got %s", f.cartsR.cart.Status)
	}
}

func TestExecuteConsumesCartOnce(t *testing.T) {
	buyerID := uuid.New()
	product := catalogProduct(uuid.New(), 1000, 5)
	address := &models.ShippingAddress{ID: uuid.New(), BuyerID: buyerID}

	f := newFixture(t,
		cartWith(buyerID, line(product, 2)),
		address,
		map[uuid.UUID]*models.Product{product.ID: product},
	)

	if _, err := f.svc.Execute(context.Background(), buyerID, address.ID); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if f.productsR.products[product.ID].StockQty != 3 {
		t.Fatalf("expected stock 3 got %d", f.productsR.products[product.ID].StockQty)
	}

	_, err := f.svc.Execute(context.Background(), buyerID, address.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty-cart error on repeat checkout got %v", err)
	}
	if len(f.ordersR.created) != 1 {
		t.Fatalf("expected a single order got %d", len(f.ordersR.created))
	}
	if f.productsR.products[product.ID].StockQty != 3 {
		t.Fatalf("expected stock untouched at 3 got %d", f.productsR.products[product.ID].StockQty)
	}
}

func TestExecuteRejectsForeignAddress(t *testing.T) {
	buyerID := uuid.New()
	product := catalogProduct(uuid.New(), 1000, 5)
	address := &models.ShippingAddress{ID: uuid.New(), BuyerID: uuid.New()}

	f := newFixture(t,
		cartWith(buyerID, line(product, 1)),
		address,
		map[uuid.UUID]*models.Product{product.ID: product},
	)

	_, err := f.svc.Execute(context.Background(), buyerID, address.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
	if len(f.ordersR.created) != 0 {
		t.Fatal("expected no orders created")
	}
}

func TestExecuteEmptyCart(t *testing.T) {
	buyerID := uuid.New()
	address := &models.ShippingAddress{ID: uuid.New(), BuyerID: buyerID}

	f := newFixture(t, cartWith(buyerID), address, map[uuid.UUID]*models.Product{})

	_, err := f.svc.Execute(context.Background(), buyerID, address.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty-cart error got %v", err)
	}
}

func TestExecuteStockShortfallFailsWholeCheckout(t *testing.T) {
	buyerID := uuid.New()
	sellerA := uuid.New()
	sellerB := uuid.New()
	plenty := catalogProduct(sellerA, 1000, 10)
	scarce := catalogProduct(sellerB, 1000, 1)
	address := &models.ShippingAddress{ID: uuid.New(), BuyerID: buyerID}

	f := newFixture(t,
		cartWith(buyerID, line(plenty, 2), line(scarce, 3)),
		address,
		map[uuid.UUID]*models.Product{plenty.ID: plenty, scarce.ID: scarce},
	)

	_, err := f.svc.Execute(context.Background(), buyerID, address.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStock) {
		t.Fatalf("expected stock error got %v", err)
	}
	if len(f.publisher.events) > 1 {
		t.Fatalf("expected at most the pre-failure event, got %d", len(f.publisher.events))
	}
}

func TestExecuteInactiveProductFails(t *testing.T) {
	buyerID := uuid.New()
	product := catalogProduct(uuid.New(), 1000, 5)
	product.IsActive = false
	address := &models.ShippingAddress{ID: uuid.New(), BuyerID: buyerID}

	f := newFixture(t,
		cartWith(buyerID, line(product, 1)),
		address,
		map[uuid.UUID]*models.Product{product.ID: product},
	)

	_, err := f.svc.Execute(context.Background(), buyerID, address.ID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStock) {
		t.Fatalf("expected stock error got %v", err)
	}
}
