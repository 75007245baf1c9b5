package forecast

import (
	"time"

	"github.com/jonboulle/clockwork"
)

// DatePolicy decides whether a well-formed forecast start date may be
// submitted at this point in time.
type DatePolicy interface {
	CheckStartDate(date time.Time) error
}

// FormatOnly accepts every date that parses.
type FormatOnly struct{}

func (FormatOnly) CheckStartDate(time.Time) error { return nil }

// WeekdayWindow requires start dates on a fixed weekday and only accepts
// them from the start of that day until the end of the day Days later.
type WeekdayWindow struct {
	Weekday time.Weekday
	Days    int
	Clock   clockwork.Clock
}

// NewThursdayWindow accepts Thursday start dates through the following
// Sunday, aligned with the dynamical models' initialisation days.
func NewThursdayWindow(clock clockwork.Clock) WeekdayWindow {
	return WeekdayWindow{Weekday: time.Thursday, Days: 3, Clock: clock}
}

// WindowFor returns the acceptance window for a start date.
func (w WeekdayWindow) WindowFor(date time.Time) Window {
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	last := start.AddDate(0, 0, w.Days)
	end := time.Date(last.Year(), last.Month(), last.Day(), 23, 59, 59, 0, time.UTC)
	return Window{Start: start, End: end}
}

func (w WeekdayWindow) CheckStartDate(date time.Time) error {
	window := w.WindowFor(date)
	if date.Weekday() != w.Weekday {
		return &ValidationError{
			Kind:     ErrDateOutOfWindow,
			Field:    "fc_start_date",
			Value:    date.Format(DateLayout),
			Expected: w.Weekday.String(),
			Got:      date.Weekday().String(),
			Window:   &window,
		}
	}

	clock := w.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if !window.Contains(clock.Now().UTC()) {
		return &ValidationError{
			Kind:   ErrDateOutOfWindow,
			Field:  "fc_start_date",
			Value:  date.Format(DateLayout),
			Window: &window,
		}
	}
	return nil
}
