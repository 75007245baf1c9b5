package forecast

import (
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
)

type periodKind uint8

const (
	periodInvalid periodKind = iota
	periodInteger
	periodUnsigned
	periodFloat
	periodText
)

// PeriodCode is the lead-time or period selector as supplied by the caller:
// an integer, a float, or text. The zero value is not a valid code.
type PeriodCode struct {
	kind periodKind
	i    int64
	u    uint64
	f    float64
	s    string
	raw  string
}

// PeriodInt wraps an integer period code.
func PeriodInt(v int64) PeriodCode { return PeriodCode{kind: periodInteger, i: v} }

// PeriodUint wraps an unsigned integer period code.
func PeriodUint(v uint64) PeriodCode { return PeriodCode{kind: periodUnsigned, u: v} }

// PeriodFloat wraps a floating point period code.
func PeriodFloat(v float64) PeriodCode { return PeriodCode{kind: periodFloat, f: v} }

// PeriodText wraps a textual period code.
func PeriodText(s string) PeriodCode { return PeriodCode{kind: periodText, s: s} }

// ParsePeriodCode lifts a dynamically typed value into a PeriodCode.
// Go integer and float kinds, strings, and json.Number are accepted.
func ParsePeriodCode(v any) (PeriodCode, error) {
	switch x := v.(type) {
	case int:
		return PeriodInt(int64(x)), nil
	case int8:
		return PeriodInt(int64(x)), nil
	case int16:
		return PeriodInt(int64(x)), nil
	case int32:
		return PeriodInt(int64(x)), nil
	case int64:
		return PeriodInt(x), nil
	case uint:
		return PeriodUint(uint64(x)), nil
	case uint8:
		return PeriodUint(uint64(x)), nil
	case uint16:
		return PeriodUint(uint64(x)), nil
	case uint32:
		return PeriodUint(uint64(x)), nil
	case uint64:
		return PeriodUint(x), nil
	case uintptr:
		return PeriodUint(uint64(x)), nil
	case float32:
		return PeriodFloat(float64(x)), nil
	case float64:
		return PeriodFloat(x), nil
	case string:
		return PeriodText(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return PeriodInt(i), nil
		}
		if f, err := x.Float64(); err == nil {
			return PeriodFloat(f), nil
		}
		return PeriodText(x.String()), nil
	default:
		raw := fmt.Sprintf("%v (%T)", v, v)
		return PeriodCode{raw: raw}, periodTypeError(raw)
	}
}

// String renders the code as supplied, for logs.
func (p PeriodCode) String() string {
	switch p.kind {
	case periodInteger:
		return strconv.FormatInt(p.i, 10)
	case periodUnsigned:
		return strconv.FormatUint(p.u, 10)
	case periodFloat:
		return strconv.FormatFloat(p.f, 'g', -1, 64)
	case periodText:
		return p.s
	default:
		if p.raw != "" {
			return p.raw
		}
		return "<unset>"
	}
}

// Canonical coerces the code to its text token. Numeric codes are truncated
// towards zero.
func (p PeriodCode) Canonical() (string, error) {
	switch p.kind {
	case periodInteger:
		return strconv.FormatInt(p.i, 10), nil
	case periodUnsigned:
		return strconv.FormatUint(p.u, 10), nil
	case periodFloat:
		if math.IsNaN(p.f) || math.IsInf(p.f, 0) || math.Abs(p.f) >= math.MaxInt64 {
			return "", periodTypeError(p.String())
		}
		return strconv.FormatInt(int64(p.f), 10), nil
	case periodText:
		return p.s, nil
	default:
		return "", periodTypeError(p.String())
	}
}

// CanonicalPeriod coerces p and checks the token against allowed.
func CanonicalPeriod(p PeriodCode, allowed []string) (string, error) {
	token, err := p.Canonical()
	if err != nil {
		return "", err
	}
	if !slices.Contains(allowed, token) {
		return "", &ValidationError{Kind: ErrInvalidPeriodValue, Field: "period", Value: token, Allowed: allowed}
	}
	return token, nil
}

func periodTypeError(v string) error {
	return &ValidationError{Kind: ErrInvalidPeriodType, Field: "period", Value: v}
}
