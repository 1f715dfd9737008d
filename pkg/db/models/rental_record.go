package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/pkg/enums"
)

// RentalRecord is an append-only pickup or return event recorded against an
// order by vendor staff.
type RentalRecord struct {
	ID         uuid.UUID             `gorm:"type:uuid;primaryKey"`
	OrderID    uuid.UUID             `gorm:"column:order_id;type:uuid;not null;index"`
	EventType  enums.RentalEventType `gorm:"column:event_type;type:text;not null"`
	OccurredAt time.Time             `gorm:"column:occurred_at;not null"`
	RecordedBy uuid.UUID             `gorm:"column:recorded_by;type:uuid;not null"`
	Notes      *string               `gorm:"column:notes"`
	LateDays   int                   `gorm:"column:late_days;not null;default:0"`
	LateFee    decimal.Decimal       `gorm:"column:late_fee;type:numeric(12,2);not null;default:0"`
	CreatedAt  time.Time             `gorm:"column:created_at;autoCreateTime"`
}
