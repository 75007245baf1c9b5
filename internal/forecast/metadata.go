package forecast

import (
	"slices"
	"time"
)

// DateLayout is the YYYYMMDD layout of forecast start dates.
const DateLayout = "20060102"

// Submission carries the identity fields supplied alongside a grid.
type Submission struct {
	Variable  string
	StartDate string
	Period    PeriodCode
	Team      string
	Model     string
}

// Identity is a submission whose scalar fields passed validation.
type Identity struct {
	Variable  string
	StartDate string
	Period    string
	Team      string
	Model     string
	Start     time.Time
}

// ValidateVariable checks v against the allowed variable names.
func ValidateVariable(v string, allowed []string) error {
	if !slices.Contains(allowed, v) {
		return &ValidationError{Kind: ErrInvalidVariable, Field: "variable", Value: v, Allowed: allowed}
	}
	return nil
}

// ParseStartDate parses an 8-digit YYYYMMDD date.
func ParseStartDate(s string) (time.Time, error) {
	bad := &ValidationError{Kind: ErrInvalidDateFormat, Field: "fc_start_date", Value: s}
	if len(s) != len(DateLayout) {
		return time.Time{}, bad
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return time.Time{}, bad
		}
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, bad
	}
	return t, nil
}

// ValidateMetadata checks the scalar fields in order (variable, date format,
// date policy, period) and stops at the first failure. Team and model names
// are passed through unchecked.
func (v *Validator) ValidateMetadata(sub Submission) (Identity, error) {
	if err := ValidateVariable(sub.Variable, v.rules.Variables); err != nil {
		return Identity{}, err
	}

	start, err := ParseStartDate(sub.StartDate)
	if err != nil {
		return Identity{}, err
	}
	if err := v.dates.CheckStartDate(start); err != nil {
		return Identity{}, err
	}

	period, err := CanonicalPeriod(sub.Period, v.rules.Periods)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		Variable:  sub.Variable,
		StartDate: sub.StartDate,
		Period:    period,
		Team:      sub.Team,
		Model:     sub.Model,
		Start:     start,
	}, nil
}
