package quotations

import (
	"time"

	"github.com/google/uuid"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
)

// RequestItemInput is one requested variant with its rental window.
type RequestItemInput struct {
	VariantID   uuid.UUID
	Quantity    int
	RentalStart time.Time
	RentalEnd   time.Time
}

// DecisionInput carries the vendor action on a pending quotation.
type DecisionInput struct {
	QuotationID uuid.UUID
	VendorID    uuid.UUID
	ActorUserID uuid.UUID
	Reason      *string
}

// QuotationList is a cursor page of quotations.
type QuotationList struct {
	Quotations []models.Quotation `json:"quotations"`
	NextCursor *string            `json:"next_cursor,omitempty"`
}

// ListFilters narrows quotation queries.
type ListFilters struct {
	Status *string
}
