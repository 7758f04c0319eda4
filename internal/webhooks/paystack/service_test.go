package paystackwebhook

import (
	"context"
	"io"
	"testing"

	"github.com/rs/zerolog"

	"github.com/winimarket/winimarket-backend/internal/payments"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
	"github.com/winimarket/winimarket-backend/pkg/paystack"
)

type stubVerifier struct {
	verifyFn func(reference string) (*payments.VerifyOutcome, error)
	calls    []string
}

func (s *stubVerifier) Verify(ctx context.Context, reference string) (*payments.VerifyOutcome, error) {
	s.calls = append(s.calls, reference)
	if s.verifyFn != nil {
		return s.verifyFn(reference)
	}
	return &payments.VerifyOutcome{Reference: reference}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Level: zerolog.ErrorLevel, Output: io.Discard})
}

func newWebhookService(t *testing.T, verifier *stubVerifier) *Service {
	t.Helper()
	svc, err := NewService(ServiceParams{Payments: verifier, Logger: testLogger()})
	if err != nil {
		t.Fatalf("service constructor failed: %v", err)
	}
	return svc
}

func chargeEvent(eventType, reference string) *paystack.WebhookEvent {
	return &paystack.WebhookEvent{
		Event: eventType,
		Data: paystack.WebhookEventData{
			ID:        918273,
			Reference: reference,
			Status:    paystack.TxnStatusSuccess,
		},
	}
}

func TestHandleEventVerifiesSuccessfulCharge(t *testing.T) {
	verifier := &stubVerifier{}
	svc := newWebhookService(t, verifier)

	err := svc.HandleEvent(context.Background(), chargeEvent(EventChargeSuccess, "multi-order-ref"))
	if err != nil {
		t.Fatalf("expected success got %v", err)
	}
	if len(verifier.calls) != 1 || verifier.calls[0] != "multi-order-ref" {
		t.Fatalf("expected one verify call for the charge reference got %v", verifier.calls)
	}
}

func TestHandleEventIgnoresUnrelatedEvents(t *testing.T) {
	verifier := &stubVerifier{}
	svc := newWebhookService(t, verifier)

	err := svc.HandleEvent(context.Background(), chargeEvent("transfer.success", "ref"))
	if err != nil {
		t.Fatalf("expected unrelated event to be acknowledged got %v", err)
	}
	if len(verifier.calls) != 0 {
		t.Fatal("unrelated events must not trigger verification")
	}
}

func TestHandleEventAcknowledgesDeclinedCharge(t *testing.T) {
	verifier := &stubVerifier{
		verifyFn: func(string) (*payments.VerifyOutcome, error) {
			return nil, pkgerrors.New(pkgerrors.CodePrecondition, "payment not successful")
		},
	}
	svc := newWebhookService(t, verifier)

	if err := svc.HandleEvent(context.Background(), chargeEvent(EventChargeFailed, "ref")); err != nil {
		t.Fatalf("declined charge should be acknowledged got %v", err)
	}
}

func TestHandleEventAcknowledgesUnknownReference(t *testing.T) {
	verifier := &stubVerifier{
		verifyFn: func(string) (*payments.VerifyOutcome, error) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")
		},
	}
	svc := newWebhookService(t, verifier)

	if err := svc.HandleEvent(context.Background(), chargeEvent(EventChargeSuccess, "mystery")); err != nil {
		t.Fatalf("unknown reference should be acknowledged got %v", err)
	}
}

func TestHandleEventPropagatesTransientFailures(t *testing.T) {
	verifier := &stubVerifier{
		verifyFn: func(string) (*payments.VerifyOutcome, error) {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, "gateway unreachable")
		},
	}
	svc := newWebhookService(t, verifier)

	err := svc.HandleEvent(context.Background(), chargeEvent(EventChargeSuccess, "ref"))
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error to surface for redelivery got %v", err)
	}
}

func TestHandleEventRequiresReference(t *testing.T) {
	svc := newWebhookService(t, &stubVerifier{})

	err := svc.HandleEvent(context.Background(), chargeEvent(EventChargeSuccess, ""))
	if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error got %v", err)
	}
}
