package paystackwebhook

import (
	"context"
	"fmt"

	"github.com/winimarket/winimarket-backend/internal/payments"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/paystack"
)

// Events Paystack delivers for card charges.
const (
	EventChargeSuccess = "charge.success"
	EventChargeFailed  = "charge.failed"
)

type paymentVerifier interface {
	Verify(ctx context.Context, reference string) (*payments.VerifyOutcome, error)
}

type ServiceParams struct {
	Payments paymentVerifier
	Logger   *logger.Logger
}

// Service reconciles gateway webhook deliveries with the payment ledger.
// The webhook is a fallback path: the verify endpoint owns the same
// settlement logic, so the handler only has to feed it a reference.
type Service struct {
	payments paymentVerifier
	logg     *logger.Logger
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Payments == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "payments service required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "logger required")
	}
	return &Service{payments: params.Payments, logg: params.Logger}, nil
}

func (s *Service) HandleEvent(ctx context.Context, event *paystack.WebhookEvent) error {
	if event == nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "webhook event required")
	}

	switch event.Event {
	case EventChargeSuccess, EventChargeFailed:
		return s.reconcileCharge(ctx, event)
	default:
		s.logg.Info(ctx, fmt.Sprintf("ignoring paystack event %s", event.Event))
		return nil
	}
}

func (s *Service) reconcileCharge(ctx context.Context, event *paystack.WebhookEvent) error {
	reference := event.Data.Reference
	if reference == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "charge reference missing")
	}

	ctx = s.logg.WithFields(ctx, map[string]any{
		"reference":        reference,
		"gateway_event_id": event.Data.ID,
	})

	outcome, err := s.payments.Verify(ctx, reference)
	if err != nil {
		// A declined or mismatched charge is a terminal answer from
		// the gateway. Acknowledge it so Paystack stops redelivering.
		if pkgerrors.IsCode(err, pkgerrors.CodePrecondition) ||
			pkgerrors.IsCode(err, pkgerrors.CodePaymentMismatch) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "charge rejected during webhook reconciliation")
			return nil
		}
		if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "webhook references an unknown payment")
			return nil
		}
		return err
	}

	if outcome.AlreadySettled {
		s.logg.Info(ctx, "payment already settled, webhook acknowledged")
		return nil
	}
	s.logg.Info(ctx, "payment settled from webhook")
	return nil
}
