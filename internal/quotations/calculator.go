package quotations

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/internal/pricing"
	"github.com/rentiva/rentiva-backend/pkg/db/models"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
)

// CalcLine pairs a variant with the quantity and window being priced.
type CalcLine struct {
	Variant     models.ProductVariant
	ProductName string
	Quantity    int
	Window      pricing.Window
}

// CalcResult is the priced outcome for one vendor's lines.
type CalcResult struct {
	Items     []models.QuotationItem
	Subtotal  decimal.Decimal
	TaxRate   decimal.Decimal
	TaxAmount decimal.Decimal
	Total     decimal.Decimal
}

// Calculator prices quotation lines and applies the platform tax rate.
type Calculator struct {
	taxRate decimal.Decimal
}

// NewCalculator validates the tax rate is a fraction in [0, 1).
func NewCalculator(taxRate decimal.Decimal) (*Calculator, error) {
	if taxRate.IsNegative() || taxRate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("tax rate %s out of range", taxRate)
	}
	return &Calculator{taxRate: taxRate}, nil
}

// Price computes per-line totals and the tax-inclusive grand total. Amounts
// are rounded to two decimal places at the line and tax boundaries.
func (c *Calculator) Price(lines []CalcLine) (*CalcResult, error) {
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyCart, "nothing to price")
	}

	result := &CalcResult{
		Subtotal: decimal.Zero,
		TaxRate:  c.taxRate,
	}

	for _, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive")
		}

		quote, err := pricing.QuoteWindow(pricing.RatesFromVariant(line.Variant), line.Window)
		if err != nil {
			return nil, err
		}

		lineTotal := quote.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity))).Round(2)
		result.Items = append(result.Items, models.QuotationItem{
			ProductVariantID: line.Variant.ID,
			ProductName:      line.ProductName,
			VariantName:      line.Variant.Name,
			Quantity:         line.Quantity,
			RentalStart:      line.Window.Start,
			RentalEnd:        line.Window.End,
			RateUnit:         quote.Unit,
			UnitPrice:        quote.UnitPrice,
			LineTotal:        lineTotal,
			RateBreakdown:    quote.Breakdown,
		})
		result.Subtotal = result.Subtotal.Add(lineTotal)
	}

	result.Subtotal = result.Subtotal.Round(2)
	result.TaxAmount = result.Subtotal.Mul(c.taxRate).Round(2)
	result.Total = result.Subtotal.Add(result.TaxAmount)
	return result, nil
}
