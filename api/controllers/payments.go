package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/api/responses"
	"github.com/winimarket/winimarket-backend/api/validators"
	"github.com/winimarket/winimarket-backend/internal/payments"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

type initializePaymentRequest struct {
	OrderIDs []uuid.UUID `json:"order_ids" validate:"required,min=1,dive,required"`
}

// PaymentInitialize opens a gateway charge covering one or more pending orders.
func PaymentInitialize(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload initializePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Initialize(r.Context(), buyerID, payload.OrderIDs)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

// PaymentVerify reconciles a payment reference against the gateway.
func PaymentVerify(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		if _, err := actorFromContext(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reference := strings.TrimSpace(r.URL.Query().Get("reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment reference required"))
			return
		}

		outcome, err := svc.Verify(r.Context(), reference)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, outcome)
	}
}
