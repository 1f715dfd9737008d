package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/rentiva/rentiva-backend/pkg/db/models"
	"github.com/rentiva/rentiva-backend/pkg/enums"
	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
	"github.com/rentiva/rentiva-backend/pkg/types"
)

// Rates carries the configured rate tiers for a variant.
type Rates struct {
	Hourly  *decimal.Decimal
	Daily   *decimal.Decimal
	Weekly  *decimal.Decimal
	Monthly *decimal.Decimal
}

// RatesFromVariant extracts the rate tiers from a stored variant.
func RatesFromVariant(v models.ProductVariant) Rates {
	return Rates{
		Hourly:  v.HourlyRate,
		Daily:   v.DailyRate,
		Weekly:  v.WeeklyRate,
		Monthly: v.MonthlyRate,
	}
}

// Quote is the cheapest tier combination covering a rental window for one unit.
type Quote struct {
	Unit      enums.RateUnit
	UnitPrice decimal.Decimal
	Breakdown types.JSONMap
}

type candidate struct {
	unit      enums.RateUnit
	price     decimal.Decimal
	breakdown types.JSONMap
}

const (
	daysPerWeek  = 7
	daysPerMonth = 30
)

// QuoteWindow prices a single unit over the window. All configured tiers are
// evaluated and the cheapest combination that covers the window wins; on a tie
// the coarser unit is preferred. Hourly rates only apply to same-day windows
// unless hourly is the only tier configured.
func QuoteWindow(rates Rates, w Window) (Quote, error) {
	days := w.Days()
	candidates := buildCandidates(rates, w, days)
	if len(candidates) == 0 {
		return Quote{}, pkgerrors.New(pkgerrors.CodeValidation, "no rate tier covers the requested window")
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.price.LessThan(best.price) {
			best = c
		}
	}

	return Quote{
		Unit:      best.unit,
		UnitPrice: best.price.Round(2),
		Breakdown: best.breakdown,
	}, nil
}

// buildCandidates returns applicable tier combinations ordered coarsest first,
// so equal prices resolve to the coarser unit.
func buildCandidates(rates Rates, w Window, days int) []candidate {
	out := []candidate{}

	if rates.Monthly != nil {
		months := ceilDiv(days, daysPerMonth)
		out = append(out, candidate{
			unit:  enums.RateUnitMonthly,
			price: rates.Monthly.Mul(decimal.NewFromInt(int64(months))),
			breakdown: types.JSONMap{
				"months":       months,
				"monthly_rate": rates.Monthly.String(),
			},
		})
	}

	if rates.Weekly != nil {
		weeks := ceilDiv(days, daysPerWeek)
		out = append(out, candidate{
			unit:  enums.RateUnitWeekly,
			price: rates.Weekly.Mul(decimal.NewFromInt(int64(weeks))),
			breakdown: types.JSONMap{
				"weeks":       weeks,
				"weekly_rate": rates.Weekly.String(),
			},
		})
	}

	if rates.Weekly != nil && rates.Daily != nil && days > daysPerWeek && days%daysPerWeek != 0 {
		weeks := days / daysPerWeek
		rem := days % daysPerWeek
		price := rates.Weekly.Mul(decimal.NewFromInt(int64(weeks))).
			Add(rates.Daily.Mul(decimal.NewFromInt(int64(rem))))
		out = append(out, candidate{
			unit:  enums.RateUnitMixed,
			price: price,
			breakdown: types.JSONMap{
				"weeks":       weeks,
				"weekly_rate": rates.Weekly.String(),
				"days":        rem,
				"daily_rate":  rates.Daily.String(),
			},
		})
	}

	if rates.Daily != nil {
		out = append(out, candidate{
			unit:  enums.RateUnitDaily,
			price: rates.Daily.Mul(decimal.NewFromInt(int64(days))),
			breakdown: types.JSONMap{
				"days":       days,
				"daily_rate": rates.Daily.String(),
			},
		})
	}

	if rates.Hourly != nil && (w.SameDay() || onlyHourly(rates)) {
		hours := w.Hours()
		out = append(out, candidate{
			unit:  enums.RateUnitHourly,
			price: rates.Hourly.Mul(decimal.NewFromInt(int64(hours))),
			breakdown: types.JSONMap{
				"hours":       hours,
				"hourly_rate": rates.Hourly.String(),
			},
		})
	}

	return out
}

func onlyHourly(rates Rates) bool {
	return rates.Hourly != nil && rates.Daily == nil && rates.Weekly == nil && rates.Monthly == nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}
