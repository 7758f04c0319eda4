package payments

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/winimarket/winimarket-backend/internal/cart"
	"github.com/winimarket/winimarket-backend/internal/orders"
	"github.com/winimarket/winimarket-backend/internal/users"
	"github.com/winimarket/winimarket-backend/pkg/config"
	"github.com/winimarket/winimarket-backend/pkg/db/models"
	"github.com/winimarket/winimarket-backend/pkg/enums"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/money"
	"github.com/winimarket/winimarket-backend/pkg/outbox"
	"github.com/winimarket/winimarket-backend/pkg/outbox/payloads"
	"github.com/winimarket/winimarket-backend/pkg/paystack"
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

// Gateway is the slice of the payment provider the service needs.
type Gateway interface {
	Initialize(ctx context.Context, req paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.VerifyResult, error)
}

// InitializeResult is the checkout handle handed back to the client.
type InitializeResult struct {
	PaymentID        uuid.UUID `json:"payment_id"`
	Reference        string    `json:"reference"`
	AuthorizationURL string    `json:"authorization_url"`
	AccessCode       string    `json:"access_code"`
	AmountCents      int64     `json:"amount_cents"`
}

// VerifyOutcome reports the settlement state after a verification pass.
type VerifyOutcome struct {
	Reference      string              `json:"reference"`
	Status         enums.PaymentStatus `json:"status"`
	AmountCents    int64               `json:"amount_cents"`
	AlreadySettled bool                `json:"already_settled"`
}

// Service initializes gateway charges across one or more orders and
// reconciles the result exactly once.
type Service interface {
	Initialize(ctx context.Context, buyerID uuid.UUID, orderIDs []uuid.UUID) (*InitializeResult, error)
	Verify(ctx context.Context, reference string) (*VerifyOutcome, error)
}

type service struct {
	repo      Repository
	orders    orders.Repository
	carts     cart.Repository
	users     users.Service
	gateway   Gateway
	publisher outboxPublisher
	notifier  notifier
	tx        txRunner
	cfg       config.PaystackConfig
	logg      *logger.Logger
}

// NewService builds the payments service.
func NewService(
	repo Repository,
	ordersRepo orders.Repository,
	cartsRepo cart.Repository,
	usersSvc users.Service,
	gateway Gateway,
	publisher outboxPublisher,
	notif notifier,
	tx txRunner,
	cfg config.PaystackConfig,
	logg *logger.Logger,
) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("payments repository required")
	}
	if ordersRepo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if cartsRepo == nil {
		return nil, fmt.Errorf("cart repository required")
	}
	if usersSvc == nil {
		return nil, fmt.Errorf("users service required")
	}
	if gateway == nil {
		return nil, fmt.Errorf("payment gateway required")
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
		orders:    ordersRepo,
		carts:     cartsRepo,
		users:     usersSvc,
		gateway:   gateway,
		publisher: publisher,
		notifier:  notif,
		tx:        tx,
		cfg:       cfg,
		logg:      logg,
	}, nil
}

// Initialize validates the orders, opens a gateway charge for their
// combined total and records the pending payment.
func (s *service) Initialize(ctx context.Context, buyerID uuid.UUID, orderIDs []uuid.UUID) (*InitializeResult, error) {
	if buyerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "buyer identity missing")
	}
	if len(orderIDs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one order required")
	}

	buyer, err := s.users.ResolveBuyer(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	total := money.FromMinor(0, enums.Currency(s.cfg.Currency))
	ids := make(pq.StringArray, 0, len(orderIDs))
	linked := make([]models.Order, 0, len(orderIDs))
	seen := map[uuid.UUID]bool{}
	for _, orderID := range orderIDs {
		if seen[orderID] {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "duplicate order in payment").
				WithDetails(map[string]any{"order_id": orderID})
		}
		seen[orderID] = true

		order, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "order not payable").
					WithDetails(map[string]any{"order_id": orderID})
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}
		if order.BuyerID != buyerID || order.Status != enums.OrderStatusPending {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "order not payable").
				WithDetails(map[string]any{"order_id": orderID})
		}
		if order.TotalCents <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "order total must be positive").
				WithDetails(map[string]any{"order_id": orderID, "total_cents": order.TotalCents})
		}
		total, err = total.Add(money.FromMinor(order.TotalCents, order.Currency))
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "orders must share a currency")
		}
		ids = append(ids, orderID.String())
		linked = append(linked, *order)
	}
	if !total.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeInvalidAmount, "payment amount must be positive")
	}

	reference := fmt.Sprintf("multi-order-%s-%d", buyerID, time.Now().Unix())
	initResult, err := s.gateway.Initialize(ctx, paystack.InitializeRequest{
		Email:       buyer.Email,
		AmountMinor: total.Minor,
		Currency:    string(total.Currency),
		Reference:   reference,
		CallbackURL: s.cfg.CallbackURL,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "initialize gateway charge")
	}

	payment := &models.Payment{
		BuyerID:     buyerID,
		Reference:   reference,
		AmountCents: total.Minor,
		Currency:    total.Currency,
		Status:      enums.PaymentStatusPending,
		OrderIDs:    ids,
		Orders:      linked,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if _, err := s.repo.WithTx(tx).Create(ctx, payment); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create payment")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &InitializeResult{
		PaymentID:        payment.ID,
		Reference:        reference,
		AuthorizationURL: initResult.AuthorizationURL,
		AccessCode:       initResult.AccessCode,
		AmountCents:      total.Minor,
	}, nil
}

// Verify reconciles a gateway charge against the stored payment.
// Re-verifying a settled payment is a no-op, and an amount mismatch
// never advances any state.
func (s *service) Verify(ctx context.Context, reference string) (*VerifyOutcome, error) {
	if reference == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required")
	}

	payment, err := s.repo.FindByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment")
	}
	if payment.IsSettled() {
		return settledOutcome(payment), nil
	}

	result, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "verify gateway charge")
	}
	if !result.Succeeded() {
		if err := s.recordFailure(ctx, payment, result.Status); err != nil {
			return nil, err
		}
		return nil, pkgerrors.New(pkgerrors.CodePrecondition, "payment not successful").
			WithDetails(map[string]any{"gateway_status": result.Status})
	}
	expected := money.FromMinor(payment.AmountCents, payment.Currency)
	paid := money.FromMinor(result.AmountMinor, enums.Currency(result.Currency))
	if !paid.Equal(expected) {
		return nil, pkgerrors.New(pkgerrors.CodePaymentMismatch, "paid amount does not match expected total").
			WithDetails(map[string]any{
				"expected": expected.String(),
				"paid":     paid.String(),
			})
	}

	outcome := &VerifyOutcome{
		Reference:   reference,
		Status:      enums.PaymentStatusSuccess,
		AmountCents: payment.AmountCents,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		current, err := repo.FindByReferenceForUpdate(ctx, reference)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock payment")
		}
		if current.IsSettled() {
			outcome.AlreadySettled = true
			return nil
		}

		paidAt := time.Now()
		if result.PaidAt != nil {
			paidAt = *result.PaidAt
		}
		gatewayRef := strconv.FormatInt(result.GatewayID, 10)
		err = repo.Update(ctx, current.ID, map[string]interface{}{
			"status":      enums.PaymentStatusSuccess,
			"paid_at":     paidAt,
			"gateway_ref": gatewayRef,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "settle payment")
		}

		cartIDs, err := s.advanceOrders(ctx, tx, current, paidAt)
		if err != nil {
			return err
		}
		return s.clearCarts(ctx, tx, cartIDs)
	})
	if err != nil {
		return nil, err
	}
	return outcome, nil
}

// advanceOrders moves every linked order still pending to paid and
// returns the distinct carts those orders were split from. Orders the
// expiry sweep cancelled in the meantime are left untouched.
func (s *service) advanceOrders(ctx context.Context, tx *gorm.DB, payment *models.Payment, paidAt time.Time) ([]uuid.UUID, error) {
	ordersRepo := s.orders.WithTx(tx)
	var cartIDs []uuid.UUID
	seenCarts := map[uuid.UUID]bool{}
	for _, raw := range payment.OrderIDs {
		orderID, err := uuid.Parse(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "malformed order id on payment")
		}
		order, err := ordersRepo.FindForUpdate(ctx, orderID)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lock order")
		}
		if order.CartID != nil && !seenCarts[*order.CartID] {
			seenCarts[*order.CartID] = true
			cartIDs = append(cartIDs, *order.CartID)
		}
		if order.Status != enums.OrderStatusPending {
			s.logg.Warn(s.logg.WithOrderID(ctx, order.ID.String()), "skipping non-pending order during settlement")
			continue
		}
		err = ordersRepo.Update(ctx, order.ID, map[string]interface{}{
			"status":  enums.OrderStatusPaid,
			"paid_at": paidAt,
		})
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "mark order paid")
		}
		order.Status = enums.OrderStatusPaid
		order.PaidAt = &paidAt

		if err := s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventOrderPaid,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         &outbox.ActorRef{UserID: payment.BuyerID, Role: "buyer"},
			Data: payloads.OrderPaidEvent{
				OrderID:     order.ID,
				BuyerID:     order.BuyerID,
				SellerID:    order.SellerID,
				PaymentID:   payment.ID,
				AmountCents: order.TotalCents,
				PaidAt:      paidAt,
			},
		}); err != nil {
			return nil, err
		}
		if err := s.notifier.Notify(ctx, tx, order, enums.OrderEventPaid); err != nil {
			return nil, err
		}
	}
	return cartIDs, nil
}

// clearCarts drops the lines of the carts the settled orders were
// split from. Those carts were already marked checked_out at checkout,
// so anything the buyer added since lives in a newer active cart and
// is untouched.
func (s *service) clearCarts(ctx context.Context, tx *gorm.DB, cartIDs []uuid.UUID) error {
	cartsRepo := s.carts.WithTx(tx)
	for _, cartID := range cartIDs {
		if err := cartsRepo.DeleteItemsByCart(ctx, cartID); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "clear cart")
		}
	}
	return nil
}

// recordFailure emits a payment_failed event without touching the
// payment row, which stays pending so the buyer can retry.
func (s *service) recordFailure(ctx context.Context, payment *models.Payment, gatewayStatus string) error {
	return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		return s.publisher.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventPaymentFailed,
			AggregateType: enums.AggregatePayment,
			AggregateID:   payment.ID,
			Data: payloads.PaymentFailedEvent{
				PaymentID: payment.ID,
				BuyerID:   payment.BuyerID,
				Reference: payment.Reference,
				Reason:    gatewayStatus,
			},
		})
	})
}

func settledOutcome(payment *models.Payment) *VerifyOutcome {
	return &VerifyOutcome{
		Reference:      payment.Reference,
		Status:         payment.Status,
		AmountCents:    payment.AmountCents,
		AlreadySettled: true,
	}
}
