package controllers

import (
	"net/http"
	"time"

	"github.com/rentiva/rentiva-backend/api/middleware"
	"github.com/rentiva/rentiva-backend/api/responses"
	"github.com/rentiva/rentiva-backend/api/validators"
	auditsvc "github.com/rentiva/rentiva-backend/internal/audit"
	ordersvc "github.com/rentiva/rentiva-backend/internal/orders"
	settingsvc "github.com/rentiva/rentiva-backend/internal/settings"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/logger"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

type updateSettingRequest struct {
	Key   string `json:"key" validate:"required"`
	Value string `json:"value" validate:"required"`
}

type confirmPaymentRequest struct {
	OrderID string `json:"order_id" validate:"required,uuid"`
}

// AdminGetSettings returns the effective platform settings.
func AdminGetSettings(svc *settingsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resolved, err := svc.Resolve(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, resolved)
	}
}

// AdminUpdateSetting overrides one platform setting.
func AdminUpdateSetting(svc *settingsvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateSettingRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		setting, err := svc.Update(r.Context(), payload.Key, payload.Value, userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if audit != nil {
			role := enums.UserRole(middleware.RoleFromContext(r.Context()))
			audit.Record(r.Context(), auditsvc.Entry{
				ActorID:    &userID,
				ActorRole:  &role,
				Action:     enums.AuditActionUpdate,
				EntityType: "system_setting",
				Metadata:   types.JSONMap{"key": payload.Key, "value": payload.Value},
				RequestID:  requestIDPtr(r),
			})
		}

		responses.WriteSuccess(w, setting)
	}
}

// AdminConfirmPayment applies an out-of-band payment confirmation to an order.
func AdminConfirmPayment(svc *ordersvc.Service, audit *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := actorID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload confirmPaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		orderID, err := validators.ParsePathUUID(payload.OrderID, "order_id")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.ConfirmPayment(r.Context(), ordersvc.ConfirmPaymentInput{
			OrderID:     orderID,
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

// AdminListAuditLogs pages through the audit trail with optional filters.
func AdminListAuditLogs(svc *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params, err := pageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		filters, err := auditFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		list, err := svc.List(r.Context(), params, filters)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminExportAuditCSV streams the filtered audit trail as CSV.
func AdminExportAuditCSV(svc *auditsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filters, err := auditFilters(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="audit-log.csv"`)
		if _, err := svc.ExportCSV(r.Context(), filters, w); err != nil {
			// headers may already be written; log instead of re-rendering
			if logg != nil {
				logg.Error(r.Context(), "audit csv export failed", err)
			}
		}
	}
}

func auditFilters(r *http.Request) (auditsvc.ListFilters, error) {
	filters := auditsvc.ListFilters{
		Action:     optionalQuery(r, "action"),
		EntityType: optionalQuery(r, "entity_type"),
	}
	if raw := optionalQuery(r, "actor_id"); raw != nil {
		id, err := validators.ParsePathUUID(*raw, "actor_id")
		if err != nil {
			return auditsvc.ListFilters{}, err
		}
		filters.ActorID = &id
	}
	if raw := optionalQuery(r, "entity_id"); raw != nil {
		id, err := validators.ParsePathUUID(*raw, "entity_id")
		if err != nil {
			return auditsvc.ListFilters{}, err
		}
		filters.EntityID = &id
	}
	if raw := optionalQuery(r, "from"); raw != nil {
		from, err := time.Parse(time.RFC3339, *raw)
		if err != nil {
			return auditsvc.ListFilters{}, validators.ParseTimeError("from")
		}
		filters.From = &from
	}
	if raw := optionalQuery(r, "to"); raw != nil {
		to, err := time.Parse(time.RFC3339, *raw)
		if err != nil {
			return auditsvc.ListFilters{}, validators.ParseTimeError("to")
		}
		filters.To = &to
	}
	return filters, nil
}
