package enums

import "fmt"

// RateUnit is the billing unit a rental line was priced with.
type RateUnit string

const (
	RateUnitHourly  RateUnit = "hourly"
	RateUnitDaily   RateUnit = "daily"
	RateUnitWeekly  RateUnit = "weekly"
	RateUnitMonthly RateUnit = "monthly"
	// RateUnitMixed marks lines priced with a week+day tier combination.
	RateUnitMixed RateUnit = "mixed"
)

var validRateUnits = []RateUnit{
	RateUnitHourly,
	RateUnitDaily,
	RateUnitWeekly,
	RateUnitMonthly,
	RateUnitMixed,
}

// String implements fmt.Stringer.
func (r RateUnit) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RateUnit.
func (r RateUnit) IsValid() bool {
	for _, candidate := range validRateUnits {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRateUnit converts raw input into a RateUnit.
func ParseRateUnit(value string) (RateUnit, error) {
	for _, candidate := range validRateUnits {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rate unit %q", value)
}
