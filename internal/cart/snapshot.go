package cart

import (
	"time"

	"github.com/google/uuid"
)

// Item is one cart line. Lines are keyed by variant plus rental window, so
// the same variant can appear once per requested window. Product fields are
// snapshotted at add time for display and optimistic stock checks.
type Item struct {
	VariantID      uuid.UUID `json:"variant_id"`
	ProductID      uuid.UUID `json:"product_id"`
	VendorID       uuid.UUID `json:"vendor_id"`
	ProductName    string    `json:"product_name"`
	VariantName    string    `json:"variant_name"`
	Quantity       int       `json:"quantity"`
	StockAvailable int       `json:"stock_available"`
	RentalStart    time.Time `json:"rental_start"`
	RentalEnd      time.Time `json:"rental_end"`
	AddedAt        time.Time `json:"added_at"`
}

// Snapshot is the full cart state for one customer identity.
type Snapshot struct {
	CustomerID uuid.UUID `json:"customer_id"`
	Items      []Item    `json:"items"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (s *Snapshot) findLine(variantID uuid.UUID, start, end time.Time) int {
	for i := range s.Items {
		item := &s.Items[i]
		if item.VariantID == variantID && item.RentalStart.Equal(start) && item.RentalEnd.Equal(end) {
			return i
		}
	}
	return -1
}

func (s *Snapshot) removeItem(idx int) {
	s.Items = append(s.Items[:idx], s.Items[idx+1:]...)
}
