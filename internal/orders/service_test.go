package orders

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
)

type stubRepo struct {
	orders map[uuid.UUID]*models.Order
}

func newStubRepo(orders ...*models.Order) *stubRepo {
	repo := &stubRepo{orders: map[uuid.UUID]*models.Order{}}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (s *stubRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubRepo) Create(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	s.orders[order.ID] = order
	return order, nil
}

func (s *stubRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, ok := s.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return order, nil
}

func (s *stubRepo) FindForUpdate(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return s.FindByID(ctx, id)
}

func (s *stubRepo) ListByBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.BuyerID == buyerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubRepo) ListBySeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.SellerID != nil && *order.SellerID == sellerID {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubRepo) ListPendingBefore(ctx context.Context, cutoff time.Time) ([]models.Order, error) {
	var out []models.Order
	for _, order := range s.orders {
		if order.Status == enums.OrderStatusPending && order.CreatedAt.Before(cutoff) {
			out = append(out, *order)
		}
	}
	return out, nil
}

func (s *stubRepo) Update(ctx context.Context, id uuid.UUID, fields map[string]interface{}) error {
	order, ok := s.orders[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for key, value := range fields {
		switch key {
		case "status":
			order.Status = value.(enums.OrderStatus)
		case "track_status":
			order.TrackStatus = value.(enums.TrackingStatus)
		case "is_escrow_released":
			order.IsEscrowReleased = value.(bool)
		case "escrow_released_at":
			at := value.(time.Time)
			order.EscrowReleasedAt = &at
		case "cancelled_at":
			at := value.(time.Time)
			order.CancelledAt = &at
		}
	}
	return nil
}

type stubProductsService struct {
	restored map[uuid.UUID]int
}

func (s *stubProductsService) Get(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsService) ListActive(ctx context.Context, limit int) ([]models.Product, error) {
	panic("not implemented")
}

func (s *stubProductsService) Restore(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int) error {
	if s.restored == nil {
		s.restored = map[uuid.UUID]int{}
	}
	s.restored[productID] += qty
	return nil
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

func newTestService(t *testing.T, repo *stubRepo) (Service, *stubProductsService, *stubPublisher, *stubNotifier) {
	t.Helper()
	productsSvc := &stubProductsService{}
	publisher := &stubPublisher{}
	notif := &stubNotifier{}
	svc, err := NewService(repo, productsSvc, publisher, notif, stubTxRunner{}, testLogger())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc, productsSvc, publisher, notif
}

func paidOrder(sellerID uuid.UUID) *models.Order {
	paidAt := time.Now().Add(-time.Hour)
	seller := sellerID
	return &models.Order{
		ID:          uuid.New(),
		BuyerID:     uuid.New(),
		SellerID:    &seller,
		Status:      enums.OrderStatusPaid,
		TrackStatus: enums.TrackingStatusProcessing,
		Currency:    enums.CurrencyGHS,
		TotalCents:  5000,
		PaidAt:      &paidAt,
	}
}

func TestUpdateTrackStatusShipsOrder(t *testing.T) {
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	repo := newStubRepo(order)
	svc, _, publisher, notif := newTestService(t, repo)

	updated, err := svc.UpdateTrackStatus(context.Background(), UpdateTrackInput{
		OrderID:   order.ID,
		SellerID:  sellerID,
		NewStatus: enums.TrackingStatusShipped,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.TrackStatus != enums.TrackingStatusShipped {
		t.Fatalf("expected shipped track got %s", updated.TrackStatus)
	}
	if updated.Status != enums.OrderStatusShipped {
		t.Fatalf("expected mirrored status shipped got %s", updated.Status)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderShipped {
		t.Fatalf("expected one order_shipped event got %+v", publisher.events)
	}
	if len(notif.notified) != 1 || notif.notified[0] != enums.OrderEventShipped {
		t.Fatalf("expected order_shipped notification got %+v", notif.notified)
	}
}

func TestUpdateTrackStatusRejectsBackwardMove(t *testing.T) {
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	order.TrackStatus = enums.TrackingStatusShipped
	order.Status = enums.OrderStatusShipped
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.UpdateTrackStatus(context.Background(), UpdateTrackInput{
		OrderID:   order.ID,
		SellerID:  sellerID,
		NewStatus: enums.TrackingStatusProcessing,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict got %v", err)
	}
	if order.TrackStatus != enums.TrackingStatusShipped {
		t.Fatalf("expected track unchanged got %s", order.TrackStatus)
	}
}

func TestUpdateTrackStatusSellerCannotComplete(t *testing.T) {
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	order.Status = enums.OrderStatusDelivered
	order.TrackStatus = enums.TrackingStatusDelivered
	repo := newStubRepo(order)
	svc, _, publisher, _ := newTestService(t, repo)

	_, err := svc.UpdateTrackStatus(context.Background(), UpdateTrackInput{
		OrderID:   order.ID,
		SellerID:  sellerID,
		NewStatus: enums.TrackingStatusCompleted,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict got %v", err)
	}
	if order.TrackStatus != enums.TrackingStatusDelivered {
		t.Fatalf("expected track unchanged got %s", order.TrackStatus)
	}

	// The buyer's confirmation still owns the completed step.
	updated, err := svc.ConfirmDelivery(context.Background(), order.ID, order.BuyerID)
	if err != nil {
		t.Fatalf("expected delivery confirmation to succeed got %v", err)
	}
	if updated.Status != enums.OrderStatusCompleted || !updated.IsEscrowReleased {
		t.Fatalf("expected completed order with escrow released got %+v", updated)
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderCompleted {
		t.Fatalf("expected only the order_completed event got %+v", publisher.events)
	}
}

func TestUpdateTrackStatusJumpToDeliveredBlocksCancel(t *testing.T) {
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	updated, err := svc.UpdateTrackStatus(context.Background(), UpdateTrackInput{
		OrderID:   order.ID,
		SellerID:  sellerID,
		NewStatus: enums.TrackingStatusDelivered,
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.TrackStatus != enums.TrackingStatusDelivered {
		t.Fatalf("expected delivered track got %s", updated.TrackStatus)
	}
	if updated.Status != enums.OrderStatusDelivered {
		t.Fatalf("expected status mirrored to delivered got %s", updated.Status)
	}

	_, err = svc.Cancel(context.Background(), order.ID, order.BuyerID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected cancel to conflict on delivered order got %v", err)
	}
}

func TestUpdateTrackStatusRequiresPayment(t *testing.T) {
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	order.Status = enums.OrderStatusPending
	order.PaidAt = nil
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.UpdateTrackStatus(context.Background(), UpdateTrackInput{
		OrderID:   order.ID,
		SellerID:  sellerID,
		NewStatus: enums.TrackingStatusShipped,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodePrecondition) {
		t.Fatalf("expected precondition error got %v", err)
	}
}

func TestUpdateTrackStatusForeignSellerForbidden(t *testing.T) {
	order := paidOrder(uuid.New())
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.UpdateTrackStatus(context.Background(), UpdateTrackInput{
		OrderID:   order.ID,
		SellerID:  uuid.New(),
		NewStatus: enums.TrackingStatusShipped,
	})
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestConfirmDeliveryReleasesEscrowOnce(t *testing.T) {
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	order.Status = enums.OrderStatusDelivered
	order.TrackStatus = enums.TrackingStatusDelivered
	repo := newStubRepo(order)
	svc, _, publisher, notif := newTestService(t, repo)

	updated, err := svc.ConfirmDelivery(context.Background(), order.ID, order.BuyerID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.Status != enums.OrderStatusCompleted || !updated.IsEscrowReleased {
		t.Fatalf("expected completed order with escrow released got %+v", updated)
	}
	if updated.EscrowReleasedAt == nil {
		t.Fatal("expected escrow timestamp")
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderCompleted {
		t.Fatalf("expected order_completed event got %+v", publisher.events)
	}
	if len(notif.notified) != 1 || notif.notified[0] != enums.OrderEventCompleted {
		t.Fatalf("expected order_completed notification got %+v", notif.notified)
	}

	// Second confirmation must not release escrow again.
	_, err = svc.ConfirmDelivery(context.Background(), order.ID, order.BuyerID)
	if !pkgerrors.IsCode(err, pkgerrors.CodePrecondition) {
		t.Fatalf("expected precondition error got %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected no extra events got %d", len(publisher.events))
	}
}

func TestConfirmDeliveryBeforeDelivered(t *testing.T) {
	order := paidOrder(uuid.New())
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.ConfirmDelivery(context.Background(), order.ID, order.BuyerID)
	if !pkgerrors.IsCode(err, pkgerrors.CodePrecondition) {
		t.Fatalf("expected precondition error got %v", err)
	}
}

func TestConfirmDeliveryForeignBuyerForbidden(t *testing.T) {
	order := paidOrder(uuid.New())
	order.TrackStatus = enums.TrackingStatusDelivered
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.ConfirmDelivery(context.Background(), order.ID, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden got %v", err)
	}
}

func TestCancelPendingRestoresStock(t *testing.T) {
	productID := uuid.New()
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	order.Status = enums.OrderStatusPending
	order.PaidAt = nil
	order.Items = []models.OrderItem{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: productID,
		Quantity:  3,
	}}
	repo := newStubRepo(order)
	svc, productsSvc, publisher, _ := newTestService(t, repo)

	updated, err := svc.Cancel(context.Background(), order.ID, order.BuyerID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if updated.Status != enums.OrderStatusCancelled || updated.CancelledAt == nil {
		t.Fatalf("expected cancelled order got %+v", updated)
	}
	if productsSvc.restored[productID] != 3 {
		t.Fatalf("expected 3 units restored got %d", productsSvc.restored[productID])
	}
	if len(publisher.events) != 1 || publisher.events[0].EventType != enums.EventOrderCancelled {
		t.Fatalf("expected order_cancelled event got %+v", publisher.events)
	}
}

func TestCancelPaidSkipsStockRestore(t *testing.T) {
	order := paidOrder(uuid.New())
	repo := newStubRepo(order)
	svc, productsSvc, _, _ := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), order.ID, order.BuyerID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(productsSvc.restored) != 0 {
		t.Fatalf("expected no stock restored got %+v", productsSvc.restored)
	}
}

func TestCancelShippedIsStateConflict(t *testing.T) {
	sellerID := uuid.New()
	order := paidOrder(sellerID)
	order.Status = enums.OrderStatusShipped
	order.TrackStatus = enums.TrackingStatusShipped
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	_, err := svc.Cancel(context.Background(), order.ID, sellerID)
	if !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected state conflict got %v", err)
	}
}

func TestExpireCancelsOnlyPending(t *testing.T) {
	productID := uuid.New()
	order := paidOrder(uuid.New())
	order.Status = enums.OrderStatusPending
	order.PaidAt = nil
	order.Items = []models.OrderItem{{
		ID:        uuid.New(),
		OrderID:   order.ID,
		ProductID: productID,
		Quantity:  2,
	}}
	repo := newStubRepo(order)
	svc, productsSvc, publisher, _ := newTestService(t, repo)

	expired, err := svc.Expire(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !expired {
		t.Fatal("expected order expired")
	}
	if order.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled got %s", order.Status)
	}
	if productsSvc.restored[productID] != 2 {
		t.Fatalf("expected 2 units restored got %d", productsSvc.restored[productID])
	}

	hasExpiredEvent := false
	for _, event := range publisher.events {
		if event.EventType == enums.EventOrderExpired {
			hasExpiredEvent = true
		}
	}
	if !hasExpiredEvent {
		t.Fatalf("expected order_expired event got %+v", publisher.events)
	}

	// Re-running the sweep on the now-cancelled order is a no-op.
	expired, err = svc.Expire(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if expired {
		t.Fatal("expected no-op on non-pending order")
	}
}

func TestGetHidesForeignOrders(t *testing.T) {
	order := paidOrder(uuid.New())
	repo := newStubRepo(order)
	svc, _, _, _ := newTestService(t, repo)

	if _, err := svc.Get(context.Background(), order.ID, order.BuyerID); err != nil {
		t.Fatalf("expected buyer read to succeed got %v", err)
	}
	_, err := svc.Get(context.Background(), order.ID, uuid.New())
	if !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not-found got %v", err)
	}
}
