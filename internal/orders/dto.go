package orders

import (
	"github.com/google/uuid"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

// CreateInput converts an approved quotation into an order.
type CreateInput struct {
	CustomerID      uuid.UUID
	QuotationID     uuid.UUID
	DeliveryAddress *types.Address
	Notes           *string
}

// MarkPaidInput records an offline payment against a pending order.
type MarkPaidInput struct {
	OrderID     uuid.UUID
	VendorID    uuid.UUID
	ActorUserID uuid.UUID
}

// ConfirmPaymentInput carries an out-of-band payment confirmation.
type ConfirmPaymentInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
}

// CancelInput cancels a pending order.
type CancelInput struct {
	OrderID     uuid.UUID
	ActorUserID uuid.UUID
	Reason      *string
}

// OrderList is a cursor page of orders.
type OrderList struct {
	Orders     []models.Order `json:"orders"`
	NextCursor *string        `json:"next_cursor,omitempty"`
}

// ListFilters narrows order queries.
type ListFilters struct {
	Status *string
}
