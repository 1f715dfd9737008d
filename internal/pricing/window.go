package pricing

import (
	"math"
	"time"

	pkgerrors "github.com/rentiva/rentiva-backend/pkg/errors"
)

// Window is a validated rental period.
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates the ordering of the rental period. Callers enforce
// not-in-the-past rules where that matters.
func NewWindow(start, end time.Time) (Window, error) {
	if start.IsZero() || end.IsZero() {
		return Window{}, pkgerrors.New(pkgerrors.CodeMissingRentalWindow, "rental start and end are required")
	}
	if !end.After(start) {
		return Window{}, pkgerrors.New(pkgerrors.CodeInvalidDateRange, "rental end must be after rental start")
	}
	return Window{Start: start, End: end}, nil
}

// Hours returns the billable hours, rounded up with a minimum of one.
func (w Window) Hours() int {
	mins := w.End.Sub(w.Start).Minutes()
	hours := int(math.Ceil(mins / 60))
	if hours < 1 {
		return 1
	}
	return hours
}

// Days returns the billable days, rounded up with a minimum of one.
func (w Window) Days() int {
	days := int(math.Ceil(w.End.Sub(w.Start).Hours() / 24))
	if days < 1 {
		return 1
	}
	return days
}

// SameDay reports whether the window starts and ends on the same calendar day.
func (w Window) SameDay() bool {
	sy, sm, sd := w.Start.Date()
	ey, em, ed := w.End.Date()
	return sy == ey && sm == em && sd == ed
}
