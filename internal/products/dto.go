package products

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

// CreateProductInput captures the fields vendors submit for a new listing.
type CreateProductInput struct {
	Name        string
	Description *string
	Category    string
	IsRentable  *bool
	Variants    []CreateVariantInput
}

// UpdateProductInput carries optional product mutations.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	IsRentable  *bool
	IsActive    *bool
}

// CreateVariantInput captures a new rentable unit under a product.
type CreateVariantInput struct {
	SKU             string
	Name            string
	Attributes      types.JSONMap
	HourlyRate      *decimal.Decimal
	DailyRate       *decimal.Decimal
	WeeklyRate      *decimal.Decimal
	MonthlyRate     *decimal.Decimal
	SecurityDeposit *decimal.Decimal
	StockQuantity   int
}

// UpdateVariantInput carries optional variant mutations. Rate pointers use a
// double-pointer so callers can distinguish "leave alone" from "clear".
type UpdateVariantInput struct {
	Name            *string
	Attributes      *types.JSONMap
	HourlyRate      **decimal.Decimal
	DailyRate       **decimal.Decimal
	WeeklyRate      **decimal.Decimal
	MonthlyRate     **decimal.Decimal
	SecurityDeposit *decimal.Decimal
	StockQuantity   *int
	IsActive        *bool
}

// ListFilters narrows public catalog queries.
type ListFilters struct {
	Category *string
	VendorID *uuid.UUID
	Search   *string
}

// ProductList is a cursor page of products.
type ProductList struct {
	Products   []models.Product `json:"products"`
	NextCursor *string          `json:"next_cursor,omitempty"`
}
