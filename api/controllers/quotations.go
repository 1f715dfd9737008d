package controllers

import (
	"net/http"

	"github.com/rentiva/rentiva-backend/api/middleware"
	"github.com/rentiva/rentiva-backend/api/responses"
	"github.com/rentiva/rentiva-backend/api/validators"
	auditsvc "github.com/rentiva/rentiva-backend/internal/audit"
	quotationsvc "github.com/rentiva/rentiva-backend/internal/quotations"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

type rejectQuotationRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CustomerListQuotations pages through the customer's own quotations.
func CustomerListQuotations(svc *quotationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForCustomer(r.Context(), customerID, params, quotationsvc.ListFilters{
			Status: optionalQuery(r, "status"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CustomerGetQuotation fetches one quotation owned by the customer.
func CustomerGetQuotation(svc *quotationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotationID, err := pathUUID(r, "quotationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotation, err := svc.GetForCustomer(r.Context(), customerID, quotationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotation)
	}
}

// VendorListQuotations pages through quotations addressed to the vendor.
func VendorListQuotations(svc *quotationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListForVendor(r.Context(), vendorID, params, quotationsvc.ListFilters{
			Status: optionalQuery(r, "status"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// VendorGetQuotation fetches one quotation addressed to the vendor.
func VendorGetQuotation(svc *quotationsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendorID, err := vendorScope(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotationID, err := pathUUID(r, "quotationID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		quotation, err := svc.GetForVendor(r.Context(), vendorID, quotationID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, quotation)
	}
}

// VendorApproveQuotation approves a pending quotation.
func VendorApproveQuotation(svc *quotationsvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := decisionInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quotation, err := svc.Approve(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordDecision(r, audit, enums.AuditActionApprove, quotation.ID.String())
		responses.WriteSuccess(w, quotation)
	}
}

// VendorRejectQuotation rejects a pending quotation with an optional reason.
func VendorRejectQuotation(svc *quotationsvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input, err := decisionInput(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if r.ContentLength > 0 {
			var payload rejectQuotationRequest
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
			input.Reason = payload.Reason
		}

		quotation, err := svc.Reject(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordDecision(r, audit, enums.AuditActionReject, quotation.ID.String())
		responses.WriteSuccess(w, quotation)
	}
}

func decisionInput(r *http.Request) (quotationsvc.DecisionInput, error) {
	vendorID, err := vendorScope(r)
	if err != nil {
		return quotationsvc.DecisionInput{}, err
	}
	userID, err := actorID(r)
	if err != nil {
		return quotationsvc.DecisionInput{}, err
	}
	quotationID, err := pathUUID(r, "quotationID")
	if err != nil {
		return quotationsvc.DecisionInput{}, err
	}
	return quotationsvc.DecisionInput{
		QuotationID: quotationID,
		VendorID:    vendorID,
		ActorUserID: userID,
	}, nil
}

func recordDecision(r *http.Request, audit *auditsvc.Service, action enums.AuditAction, quotationID string) {
	if audit == nil {
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	id, err := validators.ParsePathUUID(quotationID, "quotation_id")
	if err != nil {
		return
	}
	audit.Record(r.Context(), auditsvc.Entry{
		ActorID:    &userID,
		ActorRole:  &role,
		Action:     action,
		EntityType: "quotation",
		EntityID:   &id,
		Metadata:   types.JSONMap{"path": r.URL.Path},
		RequestID:  requestIDPtr(r),
	})
}

func requestIDPtr(r *http.Request) *string {
	value := r.Header.Get("X-Request-Id")
	if value == "" {
		return nil
	}
	return &value
}
