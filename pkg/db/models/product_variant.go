package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/pkg/types"
)

// ProductVariant is the rentable unit of a product. At least one rate tier
// must be set before the variant can be listed.
type ProductVariant struct {
	ID              uuid.UUID        `gorm:"type:uuid;primaryKey"`
	ProductID       uuid.UUID        `gorm:"column:product_id;type:uuid;not null;index"`
	SKU             string           `gorm:"column:sku;not null;uniqueIndex"`
	Name            string           `gorm:"column:name;not null"`
	Attributes      types.JSONMap    `gorm:"column:attributes;type:jsonb;serializer:json"`
	HourlyRate      *decimal.Decimal `gorm:"column:hourly_rate;type:numeric(12,2)"`
	DailyRate       *decimal.Decimal `gorm:"column:daily_rate;type:numeric(12,2)"`
	WeeklyRate      *decimal.Decimal `gorm:"column:weekly_rate;type:numeric(12,2)"`
	MonthlyRate     *decimal.Decimal `gorm:"column:monthly_rate;type:numeric(12,2)"`
	SecurityDeposit decimal.Decimal  `gorm:"column:security_deposit;type:numeric(12,2);not null;default:0"`
	StockQuantity   int              `gorm:"column:stock_quantity;not null;default:0"`
	IsActive        bool             `gorm:"column:is_active;not null;default:true"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time        `gorm:"column:updated_at;autoUpdateTime"`
}

// HasRateTier reports whether at least one rental rate is configured.
func (v ProductVariant) HasRateTier() bool {
	return v.HourlyRate != nil || v.DailyRate != nil || v.WeeklyRate != nil || v.MonthlyRate != nil
}
