package fulfillment

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// LateFee is the computed overdue penalty for one order line.
type LateFee struct {
	IsLate   bool            `json:"is_late"`
	DaysLate int             `json:"days_late"`
	Fee      decimal.Decimal `json:"fee"`
}

// DaysLate counts whole 24h periods between the scheduled and actual return,
// rounding any partial day up. Returns 0 when the return is on time.
func DaysLate(scheduledEnd, actual time.Time) int {
	if !actual.After(scheduledEnd) {
		return 0
	}
	days := int(math.Ceil(actual.Sub(scheduledEnd).Hours() / 24))
	if days < 1 {
		days = 1
	}
	return days
}

// ComputeLateFee prices an overdue return: daysLate times the per-unit daily
// basis times quantity times the configured late percentage.
func ComputeLateFee(scheduledEnd, actual time.Time, dailyBasis decimal.Decimal, quantity int, percent decimal.Decimal) LateFee {
	days := DaysLate(scheduledEnd, actual)
	if days == 0 {
		return LateFee{Fee: decimal.Zero}
	}
	fee := decimal.NewFromInt(int64(days)).
		Mul(dailyBasis).
		Mul(decimal.NewFromInt(int64(quantity))).
		Mul(percent).
		Round(2)
	return LateFee{IsLate: true, DaysLate: days, Fee: fee}
}
