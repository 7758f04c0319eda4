package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

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

// UpdateTrackInput carries a seller fulfillment move.
type UpdateTrackInput struct {
	OrderID   uuid.UUID
	SellerID  uuid.UUID
	NewStatus enums.TrackingStatus
}

// Service drives the order lifecycle after checkout: fulfillment moves
// by the seller, delivery confirmation and escrow release by the buyer,
// and cancellation by either party or the expiry sweep.
type Service interface {
	Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error)
	ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error)
	UpdateTrackStatus(ctx context.Context, input UpdateTrackInput) (*models.Order, error)
	ConfirmDelivery(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error)
	Cancel(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error)
	Expire(ctx context.Context, orderID uuid.UUID) (bool, error)
}

type service struct {
	repo      Repository
	products  products.Service
	publisher outboxPublisher
	notifier  notifier
	tx        txRunner
	logg      *logger.Logger
}

// NewService builds the orders service.
func NewService(repo Repository, productsSvc products.Service, publisher outboxPublisher, notif notifier, tx txRunner, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if productsSvc == nil {
		return nil, fmt.Errorf("products service required")
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
		repo:      repo,
		products:  productsSvc,
		publisher: publisher,
		notifier:  notif,
		tx:        tx,
		logg:      logg,
	}, nil
}

func (s *service) Get(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	order, err := s.loadOrder(ctx, s.repo, orderID)
	if err != nil {
		return nil, err
	}
	if order.BuyerID != actorID && (order.SellerID == nil || *order.SellerID != actorID) {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	return order, nil
}

func (s *service) ListForBuyer(ctx context.Context, buyerID uuid.UUID) ([]models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	rows, err := s.repo.ListByBuyer(ctx, buyerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

func (s *service) ListForSeller(ctx context.Context, sellerID uuid.UUID) ([]models.Order, error) {
	if sellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	rows, err := s.repo.ListBySeller(ctx, sellerID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list orders")
	}
	return rows, nil
}

// UpdateTrackStatus moves fulfillment forward. Tracking rank never
// decreases, and the order's financial status mirrors shipped and
// delivered when the transition table allows it.
func (s *service) UpdateTrackStatus(ctx context.Context, input UpdateTrackInput) (*models.Order, error) {
	if input.SellerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "seller identity missing")
	}
	if !input.NewStatus.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "unknown tracking status").
			WithDetails(map[string]any{"track_status": input.NewStatus})
	}
	if !input.NewStatus.SellerAssignable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "tracking status is set by delivery confirmation").
			WithDetails(map[string]any{"track_status": input.NewStatus})
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, input.OrderID)
		if err != nil {
			return err
		}
		if order.SellerID == nil || *order.SellerID != input.SellerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another seller")
		}
		if order.PaidAt == nil {
			return pkgerrors.New(pkgerrors.CodePrecondition, "order is not paid")
		}
		if order.Status.IsTerminal() {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "order is no longer in fulfillment").
				WithDetails(map[string]any{"status": order.Status})
		}
		if !order.TrackStatus.CanAdvanceTo(input.NewStatus) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "tracking cannot move backward").
				WithDetails(map[string]any{
					"current":   order.TrackStatus,
					"requested": input.NewStatus,
				})
		}
		if order.TrackStatus == input.NewStatus {
			updated = order
			return nil
		}

		fields := map[string]interface{}{"track_status": input.NewStatus}
		status := order.Status
		if mirror, ok := mirrorStatus(order.Status, input.NewStatus); ok {
			fields["status"] = mirror
			status = mirror
		}
		if err := repo.Update(ctx, order.ID, fields); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		order.TrackStatus = input.NewStatus
		order.Status = status

		if event, ok := trackingEvent(input.NewStatus); ok {
			if err := s.publisher.Emit(ctx, tx, outbox.DomainEvent{
				EventType:     trackingOutboxEvent(input.NewStatus),
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         &outbox.ActorRef{UserID: input.SellerID, Role: "seller"},
				Data: payloads.OrderTrackingEvent{
					OrderID:     order.ID,
					BuyerID:     order.BuyerID,
					SellerID:    order.SellerID,
					Status:      order.Status,
					TrackStatus: order.TrackStatus,
				},
			}); err != nil {
				return err
			}
			if err := s.notifier.Notify(ctx, tx, order, event); err != nil {
				return err
			}
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// ConfirmDelivery completes the order and releases escrow once. The
// buyer can only confirm after the seller has marked delivery.
func (s *service) ConfirmDelivery(ctx context.Context, orderID, buyerID uuid.UUID) (*models.Order, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.BuyerID != buyerID {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another buyer")
		}
		if order.TrackStatus != enums.TrackingStatusDelivered {
			return pkgerrors.New(pkgerrors.CodePrecondition, "order has not been delivered")
		}
		if order.IsEscrowReleased {
			return pkgerrors.New(pkgerrors.CodePrecondition, "escrow already released")
		}

		now := time.Now()
		err = repo.Update(ctx, order.ID, map[string]interface{}{
			"status":             enums.OrderStatusCompleted,
			"track_status":       enums.TrackingStatusCompleted,
			"is_escrow_released": true,
			"escrow_released_at": now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
		}
		order.Status = enums.OrderStatusCompleted
		order.TrackStatus = enums.TrackingStatusCompleted
		order.IsEscrowReleased = true
		order.EscrowReleasedAt = &now

		if err := s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderCompleted,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: buyerID, Role: "buyer"},
			Data: payloads.OrderCompletedEvent{
				OrderID:          order.ID,
				BuyerID:          order.BuyerID,
				SellerID:         order.SellerID,
				TotalCents:       order.TotalCents,
				EscrowReleasedAt: now,
			},
		}); err != nil {
			return err
		}
		if err := s.notifier.Notify(ctx, tx, order, enums.OrderEventCompleted); err != nil {
			return err
		}
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Cancel voids an order that has not entered fulfillment. Pending
// orders return their reserved stock to the catalog.
func (s *service) Cancel(ctx context.Context, orderID, actorID uuid.UUID) (*models.Order, error) {
	if actorID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "actor identity missing")
	}

	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		isBuyer := order.BuyerID == actorID
		isSeller := order.SellerID != nil && *order.SellerID == actorID
		if !isBuyer && !isSeller {
			return pkgerrors.New(pkgerrors.CodeForbidden, "order belongs to another party")
		}
		role := "seller"
		if isBuyer {
			role = "buyer"
		}

		cancelled, err := s.cancelLocked(ctx, tx, repo, order, &outbox.ActorRef{UserID: actorID, Role: role}, "cancelled by "+role)
		if err != nil {
			return err
		}
		updated = cancelled
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Expire cancels a stale pending order on behalf of the sweep. Returns
// false without side effects when the order has already moved on.
func (s *service) Expire(ctx context.Context, orderID uuid.UUID) (bool, error) {
	expired := false
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := s.lockOrder(ctx, repo, orderID)
		if err != nil {
			return err
		}
		if order.Status != enums.OrderStatusPending {
			return nil
		}
		if _, err := s.cancelLocked(ctx, tx, repo, order, nil, "expired before payment"); err != nil {
			return err
		}
		now := time.Now()
		if err := s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderExpired,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Data: payloads.OrderExpiredEvent{
				OrderID:   order.ID,
				BuyerID:   order.BuyerID,
				ExpiredAt: now,
			},
		}); err != nil {
			return err
		}
		expired = true
		return nil
	})
	if err != nil {
		return false, err
	}
	return expired, nil
}

// cancelLocked applies the cancellation to an already row-locked order,
// restoring stock when payment never arrived.
func (s *service) cancelLocked(ctx context.Context, tx *gorm.DB, repo Repository, order *models.Order, actor *outbox.ActorRef, reason string) (*models.Order, error) {
	if !order.Status.IsCancellable() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order can no longer be cancelled").
			WithDetails(map[string]any{"status": order.Status})
	}

	wasPending := order.Status == enums.OrderStatusPending
	now := time.Now()
	err := repo.Update(ctx, order.ID, map[string]interface{}{
		"status":       enums.OrderStatusCancelled,
		"cancelled_at": now,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update order")
	}
	order.Status = enums.OrderStatusCancelled
	order.CancelledAt = &now

	if wasPending {
		full, err := repo.FindByID(ctx, order.ID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order items")
		}
		for _, item := range full.Items {
			if err := s.products.Restore(ctx, tx, item.ProductID, item.Quantity); err != nil {
				return nil, err
			}
		}
	}

	if err := s.publisher.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     enums.EventOrderCancelled,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Data: payloads.OrderCancelledEvent{
			OrderID:     order.ID,
			BuyerID:     order.BuyerID,
			SellerID:    order.SellerID,
			CancelledAt: now,
			Reason:      reason,
		},
	}); err != nil {
		return nil, err
	}
	if err := s.notifier.Notify(ctx, tx, order, enums.OrderEventCancelled); err != nil {
		return nil, err
	}
	return order, nil
}

func (s *service) loadOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) lockOrder(ctx context.Context, repo Repository, orderID uuid.UUID) (*models.Order, error) {
	if orderID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "order id required")
	}
	order, err := repo.FindForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func mirroredStatus(track enums.TrackingStatus) (enums.OrderStatus, bool) {
	switch track {
	case enums.TrackingStatusShipped:
		return enums.OrderStatusShipped, true
	case enums.TrackingStatusDelivered:
		return enums.OrderStatusDelivered, true
	default:
		return "", false
	}
}

// mirrorStatus advances the financial status to match a fulfillment
// move, walking the transition table through intermediate statuses so
// a processing -> delivered jump still lands on delivered instead of
// leaving the order in a cancellable paid state.
func mirrorStatus(current enums.OrderStatus, track enums.TrackingStatus) (enums.OrderStatus, bool) {
	target, ok := mirroredStatus(track)
	if !ok || current == target {
		return current, false
	}
	status := current
	for status != target {
		switch {
		case status.CanTransitionTo(target):
			status = target
		case status.CanTransitionTo(enums.OrderStatusShipped):
			status = enums.OrderStatusShipped
		default:
			return current, false
		}
	}
	return status, true
}

func trackingEvent(track enums.TrackingStatus) (enums.OrderEvent, bool) {
	switch track {
	case enums.TrackingStatusShipped:
		return enums.OrderEventShipped, true
	case enums.TrackingStatusDelivered:
		return enums.OrderEventDelivered, true
	default:
		return "", false
	}
}

func trackingOutboxEvent(track enums.TrackingStatus) enums.OutboxEventType {
	if track == enums.TrackingStatusShipped {
		return enums.EventOrderShipped
	}
	return enums.EventOrderDelivered
}
