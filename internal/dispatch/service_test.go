package dispatch

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/internal/users"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/outbox/payloads"
)

type stubLogRepo struct {
	logs map[uuid.UUID]*models.OrderEmailLog
	sent map[string]bool
}

func newStubLogRepo() *stubLogRepo {
	return &stubLogRepo{
		logs: map[uuid.UUID]*models.OrderEmailLog{},
		sent: map[string]bool{},
	}
}

func sentKey(orderID uuid.UUID, event enums.OrderEvent, email string) string {
	return orderID.String() + "|" + string(event) + "|" + email
}

func (s *stubLogRepo) WithTx(tx *gorm.DB) Repository { return s }

func (s *stubLogRepo) Create(ctx context.Context, log *models.OrderEmailLog) (*models.OrderEmailLog, error) {
	if log.ID == uuid.Nil {
		log.ID = uuid.New()
	}
	s.logs[log.ID] = log
	return log, nil
}

func (s *stubLogRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.OrderEmailLog, error) {
	log, ok := s.logs[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return log, nil
}

func (s *stubLogRepo) ExistsSent(ctx context.Context, orderID uuid.UUID, event enums.OrderEvent, email string) (bool, error) {
	return s.sent[sentKey(orderID, event, email)], nil
}

func (s *stubLogRepo) MarkSent(ctx context.Context, id uuid.UUID, attempts int) error {
	if log, ok := s.logs[id]; ok {
		log.Status = enums.EmailLogStatusSent
		log.Attempts = attempts
		s.sent[sentKey(log.OrderID, log.Event, log.RecipientEmail)] = true
	}
	return nil
}

func (s *stubLogRepo) MarkFailed(ctx context.Context, id uuid.UUID, attempts int, sendErr error) error {
	if log, ok := s.logs[id]; ok {
		log.Status = enums.EmailLogStatusFailed
		log.Attempts = attempts
		if sendErr != nil {
			message := sendErr.Error()
			log.LastError = &message
		}
	}
	return nil
}

type stubUsersService struct {
	buyer  *users.Recipient
	seller *users.Recipient
}

func (s *stubUsersService) ResolveBuyer(ctx context.Context, buyerID uuid.UUID) (*users.Recipient, error) {
	if s.buyer == nil || s.buyer.ID != buyerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "buyer not found")
	}
	return s.buyer, nil
}

func (s *stubUsersService) ResolveSeller(ctx context.Context, sellerID uuid.UUID) (*users.Recipient, error) {
	if s.seller == nil || s.seller.ID != sellerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "seller not found")
	}
	return s.seller, nil
}

func (s *stubUsersService) PushSubscriptions(ctx context.Context, userID uuid.UUID) ([]models.PushSubscription, error) {
	return nil, nil
}

func (s *stubUsersService) PrunePushSubscription(ctx context.Context, id uuid.UUID) error {
	return nil
}

type stubPublisher struct {
	events []outbox.DomainEvent
}

func (s *stubPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	s.events = append(s.events, event)
	return nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func testParties() (*users.Recipient, *users.Recipient, *models.Order) {
	buyer := &users.Recipient{ID: uuid.New(), Role: enums.RecipientRoleBuyer, Email: "buyer@example.com", Name: "Buyer"}
	seller := &users.Recipient{ID: uuid.New(), Role: enums.RecipientRoleSeller, Email: "seller@example.com", Name: "Shop"}
	sellerID := seller.ID
	order := &models.Order{
		ID:          uuid.New(),
		BuyerID:     buyer.ID,
		SellerID:    &sellerID,
		Status:      enums.OrderStatusPaid,
		TrackStatus: enums.TrackingStatusProcessing,
	}
	return buyer, seller, order
}

func TestNotifyEnqueuesBothParties(t *testing.T) {
	buyer, seller, order := testParties()
	repo := newStubLogRepo()
	publisher := &stubPublisher{}
	svc, err := NewService(repo, &stubUsersService{buyer: buyer, seller: seller}, publisher, testLogger())
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}

	if err := svc.Notify(context.Background(), nil, order, enums.OrderEventPaid); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(repo.logs) != 2 {
		t.Fatalf("expected 2 log rows got %d", len(repo.logs))
	}
	if len(publisher.events) != 2 {
		t.Fatalf("expected 2 outbox events got %d", len(publisher.events))
	}
	for _, event := range publisher.events {
		if event.EventType != enums.EventNotificationRequested {
			t.Fatalf("expected notification_requested got %s", event.EventType)
		}
		if event.AggregateType != enums.AggregateNotification {
			t.Fatalf("expected notification aggregate got %s", event.AggregateType)
		}
		request, ok := event.Data.(payloads.NotificationRequestedEvent)
		if !ok {
			t.Fatalf("unexpected payload type %T", event.Data)
		}
		if request.LogID != event.AggregateID {
			t.Fatal("expected aggregate id to be the log id")
		}
	}
}

func TestNotifySkipsAlreadySentRecipients(t *testing.T) {
	buyer, seller, order := testParties()
	repo := newStubLogRepo()
	repo.sent[sentKey(order.ID, enums.OrderEventPaid, buyer.Email)] = true
	publisher := &stubPublisher{}
	svc, _ := NewService(repo, &stubUsersService{buyer: buyer, seller: seller}, publisher, testLogger())

	if err := svc.Notify(context.Background(), nil, order, enums.OrderEventPaid); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event got %d", len(publisher.events))
	}
	request := publisher.events[0].Data.(payloads.NotificationRequestedEvent)
	if request.RecipientRole != enums.RecipientRoleSeller {
		t.Fatalf("expected seller notification got %s", request.RecipientRole)
	}
}

func TestNotifyBuyerOnlyEvents(t *testing.T) {
	buyer, seller, order := testParties()
	repo := newStubLogRepo()
	publisher := &stubPublisher{}
	svc, _ := NewService(repo, &stubUsersService{buyer: buyer, seller: seller}, publisher, testLogger())

	if err := svc.Notify(context.Background(), nil, order, enums.OrderEventShipped); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event got %d", len(publisher.events))
	}
}

func TestNotifyMissingRecipientIsSkipped(t *testing.T) {
	buyer, _, order := testParties()
	repo := newStubLogRepo()
	publisher := &stubPublisher{}
	// Seller profile missing: only the buyer is notified.
	svc, _ := NewService(repo, &stubUsersService{buyer: buyer}, publisher, testLogger())

	if err := svc.Notify(context.Background(), nil, order, enums.OrderEventPaid); err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(publisher.events) != 1 {
		t.Fatalf("expected 1 event got %d", len(publisher.events))
	}
}

func TestRoutesCoverEveryOrderEvent(t *testing.T) {
	table, err := Routes()
	if err != nil {
		t.Fatalf("expected routing table got %v", err)
	}
	for event, byRole := range table {
		for role, route := range byRole {
			if route.Template == "" || route.Subject == "" {
				t.Fatalf("incomplete route for %s/%s", event, role)
			}
			if _, ok := bodyTmpls[route.Template]; !ok {
				t.Fatalf("route %s/%s references unknown template %s", event, role, route.Template)
			}
		}
	}
}

func TestRenderEmail(t *testing.T) {
	html, text, err := RenderEmail("order_paid_buyer", TemplateData{
		RecipientName: "Ama",
		OrderRef:      "#abc12345",
		Subject:       "Payment received",
		CTA:           "View order",
	})
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if !strings.Contains(html, "Ama") || !strings.Contains(html, "#abc12345") {
		t.Fatalf("rendered html missing fields: %s", html)
	}
	if !strings.Contains(text, "#abc12345") {
		t.Fatalf("rendered text missing order ref: %s", text)
	}

	if _, _, err := RenderEmail("nope", TemplateData{}); err == nil {
		t.Fatal("expected error for unknown template")
	}
}
