package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/pkg/enums"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

// QuotationItem is a priced line on a quotation. Product and variant names are
// denormalized so later catalog edits do not rewrite history.
type QuotationItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey"`
	QuotationID      uuid.UUID       `gorm:"column:quotation_id;type:uuid;not null;index"`
	ProductVariantID uuid.UUID       `gorm:"column:product_variant_id;type:uuid;not null"`
	ProductName      string          `gorm:"column:product_name;not null"`
	VariantName      string          `gorm:"column:variant_name;not null"`
	Quantity         int             `gorm:"column:quantity;not null"`
	RentalStart      time.Time       `gorm:"column:rental_start;not null"`
	RentalEnd        time.Time       `gorm:"column:rental_end;not null"`
	RateUnit         enums.RateUnit  `gorm:"column:rate_unit;type:text;not null"`
	UnitPrice        decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	LineTotal        decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
	RateBreakdown    types.JSONMap   `gorm:"column:rate_breakdown;type:jsonb;serializer:json"`
	CreatedAt        time.Time       `gorm:"column:created_at;autoCreateTime"`
}
