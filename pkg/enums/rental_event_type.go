package enums

import "fmt"

// RentalEventType distinguishes pickup records from return records.
type RentalEventType string

const (
	RentalEventPickup RentalEventType = "pickup"
	RentalEventReturn RentalEventType = "return"
)

var validRentalEventTypes = []RentalEventType{
	RentalEventPickup,
	RentalEventReturn,
}

// String implements fmt.Stringer.
func (r RentalEventType) String() string {
	return string(r)
}

// IsValid reports whether the value is a known RentalEventType.
func (r RentalEventType) IsValid() bool {
	for _, candidate := range validRentalEventTypes {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseRentalEventType converts raw input into a RentalEventType.
func ParseRentalEventType(value string) (RentalEventType, error) {
	for _, candidate := range validRentalEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid rental event type %q", value)
}
