package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/pkg/enums"
)

// Quotation captures a customer's priced rental request awaiting a vendor
// decision. Amounts are frozen at request time.
type Quotation struct {
	ID              uuid.UUID             `gorm:"type:uuid;primaryKey"`
	CustomerID      uuid.UUID             `gorm:"column:customer_id;type:uuid;not null;index"`
	VendorID        uuid.UUID             `gorm:"column:vendor_id;type:uuid;not null;index"`
	Status          enums.QuotationStatus `gorm:"column:status;type:text;not null;default:'pending';index"`
	Currency        enums.Currency        `gorm:"column:currency;type:text;not null"`
	Subtotal        decimal.Decimal       `gorm:"column:subtotal;type:numeric(12,2);not null"`
	TaxRate         decimal.Decimal       `gorm:"column:tax_rate;type:numeric(6,4);not null"`
	TaxAmount       decimal.Decimal       `gorm:"column:tax_amount;type:numeric(12,2);not null"`
	Total           decimal.Decimal       `gorm:"column:total;type:numeric(12,2);not null"`
	Notes           *string               `gorm:"column:notes"`
	ExpiresAt       time.Time             `gorm:"column:expires_at;not null;index"`
	DecidedAt       *time.Time            `gorm:"column:decided_at"`
	DecidedBy       *uuid.UUID            `gorm:"column:decided_by;type:uuid"`
	RejectionReason *string               `gorm:"column:rejection_reason"`
	Items           []QuotationItem       `gorm:"foreignKey:QuotationID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}
