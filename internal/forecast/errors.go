package forecast

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Rejection kinds. Every error returned by the validator wraps exactly one.
var (
	ErrInvalidVariable    = errors.New("invalid variable")
	ErrInvalidDateFormat  = errors.New("invalid date format")
	ErrDateOutOfWindow    = errors.New("date out of window")
	ErrInvalidPeriodType  = errors.New("invalid period type")
	ErrInvalidPeriodValue = errors.New("invalid period value")

	ErrMissingCoordinate = errors.New("missing coordinate")
	ErrBadCoordinateSize = errors.New("bad coordinate size")

	ErrQuintileMismatch = errors.New("quintile mismatch")
	ErrShapeMismatch    = errors.New("shape mismatch")
	ErrValueOutOfRange  = errors.New("value out of range")
	ErrMassNotConserved = errors.New("mass not conserved")
)

var reasons = map[error]string{
	ErrInvalidVariable:    "invalid_variable",
	ErrInvalidDateFormat:  "invalid_date_format",
	ErrDateOutOfWindow:    "date_out_of_window",
	ErrInvalidPeriodType:  "invalid_period_type",
	ErrInvalidPeriodValue: "invalid_period_value",
	ErrMissingCoordinate:  "missing_coordinate",
	ErrBadCoordinateSize:  "bad_coordinate_size",
	ErrQuintileMismatch:   "quintile_mismatch",
	ErrShapeMismatch:      "shape_mismatch",
	ErrValueOutOfRange:    "value_out_of_range",
	ErrMassNotConserved:   "mass_not_conserved",
}

// Window is an inclusive acceptance interval for forecast start dates.
type Window struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}

// ValidationError describes why a submission was rejected. Only the fields
// relevant to Kind are populated.
type ValidationError struct {
	Kind  error
	Field string // metadata field or axis name

	Value   string
	Allowed []string
	Tried   []string

	Expected any
	Got      any

	Window *Window
	Count  int // offending cells or points for aggregate checks
	Worst  float64
}

func (e *ValidationError) Error() string {
	switch e.Kind {
	case ErrInvalidVariable, ErrInvalidPeriodValue:
		return fmt.Sprintf("%s: expected one of %v, but got %q", e.Kind, e.Allowed, e.Value)
	case ErrInvalidDateFormat:
		return fmt.Sprintf("%s: %q is not a valid date in the format YYYYMMDD", e.Kind, e.Value)
	case ErrDateOutOfWindow:
		if e.Window == nil {
			return fmt.Sprintf("%s: %s is not an accepted forecast start date", e.Kind, e.Value)
		}
		return fmt.Sprintf("%s: %s may not be submitted now; allowed window is %s to %s",
			e.Kind, e.Value, e.Window.Start.Format(DateLayout), e.Window.End.Format(DateLayout))
	case ErrInvalidPeriodType:
		return fmt.Sprintf("%s: %s is neither a number nor a string", e.Kind, e.Value)
	case ErrMissingCoordinate:
		return fmt.Sprintf("%s: %s not found, tried %s", e.Kind, e.Field, strings.Join(e.Tried, ", "))
	case ErrBadCoordinateSize:
		return fmt.Sprintf("%s: %s has %v points, expected %v", e.Kind, e.Field, e.Got, e.Expected)
	case ErrQuintileMismatch:
		return fmt.Sprintf("%s: %s values %v do not match expected %v", e.Kind, e.Field, e.Got, e.Expected)
	case ErrShapeMismatch:
		return fmt.Sprintf("%s: grid shape is %v, expected %v", e.Kind, e.Got, e.Expected)
	case ErrValueOutOfRange:
		return fmt.Sprintf("%s: %d cells outside [0, 1] (worst %g); NaN is permitted", e.Kind, e.Count, e.Worst)
	case ErrMassNotConserved:
		return fmt.Sprintf("%s: %d points do not sum to 1 along %s (worst sum %g)", e.Kind, e.Count, e.Field, e.Worst)
	default:
		return fmt.Sprint(e.Kind)
	}
}

func (e *ValidationError) Unwrap() error { return e.Kind }

// Reason returns a stable label for the rejection kind wrapped by err,
// or "internal" when err is not a validation failure.
func Reason(err error) string {
	var ve *ValidationError
	if errors.As(err, &ve) {
		if r, ok := reasons[ve.Kind]; ok {
			return r
		}
	}
	return "internal"
}

// IsRejection reports whether err is a validation failure rather than a
// malformed call.
func IsRejection(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
