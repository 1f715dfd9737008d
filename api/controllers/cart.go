package controllers

import (
	"net/http"
	"time"

	cartsvc "github.com/rentiva/rentiva-backend/internal/cart"

	"github.com/rentiva/rentiva-backend/api/responses"
	"github.com/rentiva/rentiva-backend/api/validators"
	"github.com/rentiva/rentiva-backend/pkg/logger"
)

type addCartItemRequest struct {
	VariantID   string    `json:"variant_id" validate:"required,uuid"`
	Quantity    int       `json:"quantity" validate:"required,min=1"`
	RentalStart time.Time `json:"rental_start" validate:"required"`
	RentalEnd   time.Time `json:"rental_end" validate:"required"`
}

type updateCartItemRequest struct {
	RentalStart    time.Time  `json:"rental_start" validate:"required"`
	RentalEnd      time.Time  `json:"rental_end" validate:"required"`
	Quantity       *int       `json:"quantity,omitempty"`
	NewRentalStart *time.Time `json:"new_rental_start,omitempty"`
	NewRentalEnd   *time.Time `json:"new_rental_end,omitempty"`
}

type quotationRequestBody struct {
	Notes *string `json:"notes,omitempty"`
}

// GetCart returns the customer's cart snapshot.
func GetCart(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.Get(r.Context(), customerID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// AddCartItem adds a variant with its rental window to the cart.
func AddCartItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload addCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := validators.ParsePathUUID(payload.VariantID, "variant_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.AddItem(r.Context(), customerID, cartsvc.AddItemInput{
			VariantID:   variantID,
			Quantity:    payload.Quantity,
			RentalStart: payload.RentalStart,
			RentalEnd:   payload.RentalEnd,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// UpdateCartItem mutates quantity or window of one cart line, addressed by
// variant plus its current rental window. A quantity below one removes the
// line.
func UpdateCartItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateCartItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		snapshot, err := svc.UpdateItem(r.Context(), customerID, cartsvc.UpdateItemInput{
			VariantID:   variantID,
			RentalStart: payload.RentalStart,
			RentalEnd:   payload.RentalEnd,
			Quantity:    payload.Quantity,
			NewStart:    payload.NewRentalStart,
			NewEnd:      payload.NewRentalEnd,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// RemoveCartItem drops one cart line, addressed by variant plus the
// rental_start/rental_end query parameters.
func RemoveCartItem(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variantID, err := pathUUID(r, "variantID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		start, err := validators.ParseQueryTime(r, "rental_start")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		end, err := validators.ParseQueryTime(r, "rental_end")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		snapshot, err := svc.RemoveItem(r.Context(), customerID, variantID, start, end)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, snapshot)
	}
}

// ClearCart empties the cart entirely.
func ClearCart(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Clear(r.Context(), customerID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

// RequestQuotation converts the cart into per-vendor quotation requests.
func RequestQuotation(svc *cartsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload quotationRequestBody
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		quotations, err := svc.RequestQuotation(r.Context(), customerID, payload.Notes)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, map[string]any{"quotations": quotations})
	}
}
