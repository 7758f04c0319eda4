package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/winimarket/winimarket-backend/api/responses"
	"github.com/winimarket/winimarket-backend/api/validators"
	"github.com/winimarket/winimarket-backend/internal/addresses"
	pkgerrors "github.com/winimarket/winimarket-backend/pkg/errors"
	"github.com/winimarket/winimarket-backend/pkg/logger"
)

type createAddressRequest struct {
	Recipient  string  `json:"recipient" validate:"required,max=120"`
	Phone      string  `json:"phone" validate:"required,max=32"`
	Line1      string  `json:"line1" validate:"required,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       string  `json:"city" validate:"required,max=80"`
	Region     string  `json:"region" validate:"required,max=80"`
	Country    string  `json:"country" validate:"required,max=80"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	IsDefault  bool    `json:"is_default"`
}

type updateAddressRequest struct {
	Recipient  *string `json:"recipient,omitempty" validate:"omitempty,max=120"`
	Phone      *string `json:"phone,omitempty" validate:"omitempty,max=32"`
	Line1      *string `json:"line1,omitempty" validate:"omitempty,max=200"`
	Line2      *string `json:"line2,omitempty" validate:"omitempty,max=200"`
	City       *string `json:"city,omitempty" validate:"omitempty,max=80"`
	Region     *string `json:"region,omitempty" validate:"omitempty,max=80"`
	PostalCode *string `json:"postal_code,omitempty" validate:"omitempty,max=20"`
	IsDefault  *bool   `json:"is_default,omitempty"`
}

// AddressCreate stores a new shipping address for the buyer.
func AddressCreate(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "addresses service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload createAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address, err := svc.Create(r.Context(), buyerID, addresses.CreateInput{
			Recipient:  payload.Recipient,
			Phone:      payload.Phone,
			Line1:      payload.Line1,
			Line2:      payload.Line2,
			City:       payload.City,
			Region:     payload.Region,
			Country:    payload.Country,
			PostalCode: payload.PostalCode,
			IsDefault:  payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, address)
	}
}

// AddressList returns every address the buyer has on file.
func AddressList(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "addresses service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), buyerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AddressUpdate applies partial changes to one owned address.
func AddressUpdate(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "addresses service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := validators.ParsePathUUID(chi.URLParam(r, "addressID"), "addressID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateAddressRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		address, err := svc.Update(r.Context(), buyerID, addressID, addresses.UpdateInput{
			Recipient:  payload.Recipient,
			Phone:      payload.Phone,
			Line1:      payload.Line1,
			Line2:      payload.Line2,
			City:       payload.City,
			Region:     payload.Region,
			PostalCode: payload.PostalCode,
			IsDefault:  payload.IsDefault,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, address)
	}
}

// AddressDelete removes one owned address.
func AddressDelete(svc addresses.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "addresses service unavailable"))
			return
		}

		buyerID, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		addressID, err := validators.ParsePathUUID(chi.URLParam(r, "addressID"), "addressID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), buyerID, addressID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, nil)
	}
}
