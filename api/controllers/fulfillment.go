package controllers

import (
	"net/http"
	"time"

	"github.com/rentiva/rentiva-backend/api/responses"
	"github.com/rentiva/rentiva-backend/api/validators"
	auditsvc "github.com/rentiva/rentiva-backend/internal/audit"
	fulfillmentsvc "github.com/rentiva/rentiva-backend/internal/fulfillment"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/logger"
)

type fulfillmentEventRequest struct {
	OccurredAt *time.Time `json:"occurred_at,omitempty"`
	Notes      *string    `json:"notes,omitempty"`
}

// VendorRecordPickup marks a confirmed order as handed to the customer.
func VendorRecordPickup(svc *fulfillmentsvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload fulfillmentEventRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := fulfillmentsvc.PickupInput{
			OrderID:     orderID,
			VendorID:    vendorID,
			ActorUserID: userID,
			Notes:       payload.Notes,
		}
		if payload.OccurredAt != nil {
			input.OccurredAt = *payload.OccurredAt
		}

		record, err := svc.RecordPickup(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordOrderAction(r, audit, enums.AuditActionRecordPickup, orderID)
		responses.WriteSuccess(w, record)
	}
}

// VendorPreviewReturn computes the advisory late fee for a proposed return time.
func VendorPreviewReturn(svc *fulfillmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		proposedAt := time.Now().UTC()
		if raw := optionalQuery(r, "proposed_at"); raw != nil {
			parsed, err := time.Parse(time.RFC3339, *raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, validators.ParseTimeError("proposed_at"))
				return
			}
			proposedAt = parsed
		}

		preview, err := svc.PreviewReturn(r.Context(), fulfillmentsvc.PreviewInput{
			OrderID:    orderID,
			VendorID:   vendorID,
			ProposedAt: proposedAt,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

// VendorRecordReturn marks the equipment returned and applies any late fee.
func VendorRecordReturn(svc *fulfillmentsvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload fulfillmentEventRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		input := fulfillmentsvc.ReturnInput{
			OrderID:     orderID,
			VendorID:    vendorID,
			ActorUserID: userID,
			Notes:       payload.Notes,
		}
		if payload.OccurredAt != nil {
			input.OccurredAt = *payload.OccurredAt
		}

		record, err := svc.RecordReturn(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordOrderAction(r, audit, enums.AuditActionRecordReturn, orderID)
		responses.WriteSuccess(w, record)
	}
}

// VendorCompleteOrder finalizes a returned order.
func VendorCompleteOrder(svc *fulfillmentsvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Complete(r.Context(), fulfillmentsvc.CompleteInput{
			OrderID:     orderID,
			VendorID:    vendorID,
			ActorUserID: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordOrderAction(r, audit, enums.AuditActionComplete, orderID)
		responses.WriteSuccess(w, order)
	}
}

// VendorOrderHistory lists the pickup/return trail for an order.
func VendorOrderHistory(svc *fulfillmentsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		records, err := svc.History(r.Context(), vendorID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"records": records})
	}
}
