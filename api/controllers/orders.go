package controllers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rentiva/rentiva-backend/api/middleware"
	"github.com/rentiva/rentiva-backend/api/responses"
	"github.com/rentiva/rentiva-backend/api/validators"
	auditsvc "github.com/rentiva/rentiva-backend/internal/audit"
	ordersvc "github.com/rentiva/rentiva-backend/internal/orders"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

type createOrderRequest struct {
	DeliveryAddress *types.Address `json:"delivery_address,omitempty"`
	Notes           *string        `json:"notes,omitempty"`
}

type cancelOrderRequest struct {
	Reason *string `json:"reason,omitempty"`
}

// CreateOrderFromQuotation converts an approved quotation into an order.
func CreateOrderFromQuotation(svc *ordersvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		var payload createOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.CreateFromQuotation(r.Context(), ordersvc.CreateInput{
			CustomerID:      customerID,
			QuotationID:     quotationID,
			DeliveryAddress: payload.DeliveryAddress,
			Notes:           payload.Notes,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordOrderAction(r, audit, enums.AuditActionCreate, order.ID)
		responses.WriteSuccessStatus(w, http.StatusCreated, order)
	}
}

// CustomerListOrders pages through the customer's orders.
func CustomerListOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListForCustomer(r.Context(), customerID, params, ordersvc.ListFilters{
			Status: optionalQuery(r, "status"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// CustomerGetOrder fetches one order owned by the customer.
func CustomerGetOrder(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		order, err := svc.GetForCustomer(r.Context(), customerID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// CustomerCancelOrder cancels a pending order and restores stock.
func CustomerCancelOrder(svc *ordersvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		customerID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := pathUUID(r, "orderID")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload cancelOrderRequest
		if r.ContentLength > 0 {
			if err := validators.DecodeJSONBody(r, &payload); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}

		order, err := svc.Cancel(r.Context(), ordersvc.CancelInput{
			OrderID:     orderID,
			ActorUserID: customerID,
			Reason:      payload.Reason,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordOrderAction(r, audit, enums.AuditActionCancel, order.ID)
		responses.WriteSuccess(w, order)
	}
}

// VendorListOrders pages through orders addressed to the vendor.
func VendorListOrders(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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
		list, err := svc.ListForVendor(r.Context(), vendorID, params, ordersvc.ListFilters{
			Status: optionalQuery(r, "status"),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// VendorGetOrder fetches one order addressed to the vendor.
func VendorGetOrder(svc *ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
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
		order, err := svc.GetForVendor(r.Context(), vendorID, orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, order)
	}
}

// VendorMarkOrderPaid records an offline payment and confirms the order.
func VendorMarkOrderPaid(svc *ordersvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
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

		order, err := svc.MarkPaid(r.Context(), ordersvc.MarkPaidInput{
			OrderID:     orderID,
			VendorID:    vendorID,
			ActorUserID: userID,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		recordOrderAction(r, audit, enums.AuditActionMarkPaid, order.ID)
		responses.WriteSuccess(w, order)
	}
}

func recordOrderAction(r *http.Request, audit *auditsvc.Service, action enums.AuditAction, orderID uuid.UUID) {
	if audit == nil {
		return
	}
	userID := middleware.UserIDFromContext(r.Context())
	role := enums.UserRole(middleware.RoleFromContext(r.Context()))
	audit.Record(r.Context(), auditsvc.Entry{
		ActorID:    &userID,
		ActorRole:  &role,
		Action:     action,
		EntityType: "order",
		EntityID:   &orderID,
		Metadata:   types.JSONMap{"path": r.URL.Path},
		RequestID:  requestIDPtr(r),
	})
}
