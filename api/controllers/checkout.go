package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/winimarket/winimarket-backend/api/responses"
	"github.com/winimarket/winimarket-backend/api/validators"
	"github.com/winimarket/winimarket-backend/internal/checkout"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

type checkoutRequest struct {
	ShippingAddressID uuid.UUID `json:"shipping_address_id" validate:"required"`
}

// Checkout splits the buyer's active cart into per-seller pending orders.
func Checkout(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Execute(r.Context(), buyerID, payload.ShippingAddressID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
