// Package allowlist holds the set of forecast start dates currently open
// for submission, loaded from a plain text file.
package allowlist

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/forecast-submission-gateway/internal/forecast"
)

// List is a reloadable set of accepted start dates. It is safe for
// concurrent use; Reload swaps the whole set atomically.
type List struct {
	path  string
	dates atomic.Pointer[[]time.Time] // sorted ascending, unique
}

// New returns a list holding dates.
func New(dates []time.Time) *List {
	l := &List{}
	l.set(dates)
	return l
}

// Load reads the allow-list file at path.
func Load(path string) (*List, error) {
	l := &List{path: path}
	if err := l.Reload(); err != nil {
		return nil, err
	}
	return l, nil
}

// Reload re-reads the backing file. On error the current set is kept.
func (l *List) Reload() error {
	if l.path == "" {
		return nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return fmt.Errorf("open allow-list: %w", err)
	}
	defer f.Close()

	dates, err := Parse(f)
	if err != nil {
		return fmt.Errorf("parse allow-list %s: %w", l.path, err)
	}
	l.set(dates)
	return nil
}

// Parse reads whitespace separated YYYYMMDD tokens. Text after '#' on a line
// is ignored.
func Parse(r io.Reader) ([]time.Time, error) {
	var dates []time.Time
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text, _, _ := strings.Cut(sc.Text(), "#")
		for _, tok := range strings.Fields(text) {
			d, err := forecast.ParseStartDate(tok)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", line, err)
			}
			dates = append(dates, d)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return dates, nil
}

func (l *List) set(dates []time.Time) {
	sorted := slices.Clone(dates)
	slices.SortFunc(sorted, func(a, b time.Time) int { return a.Compare(b) })
	sorted = slices.CompactFunc(sorted, func(a, b time.Time) bool { return a.Equal(b) })
	l.dates.Store(&sorted)
}

func (l *List) snapshot() []time.Time {
	if p := l.dates.Load(); p != nil {
		return *p
	}
	return nil
}

// Len returns the number of accepted dates.
func (l *List) Len() int { return len(l.snapshot()) }

// Contains reports whether date is on the list.
func (l *List) Contains(date time.Time) bool {
	_, ok := slices.BinarySearchFunc(l.snapshot(), date, func(a, b time.Time) int { return a.Compare(b) })
	return ok
}

// Bounds returns the earliest and latest accepted dates. ok is false for an
// empty list.
func (l *List) Bounds() (earliest, latest time.Time, ok bool) {
	dates := l.snapshot()
	if len(dates) == 0 {
		return time.Time{}, time.Time{}, false
	}
	return dates[0], dates[len(dates)-1], true
}

// CheckStartDate rejects dates that are not on the list. The error carries
// the list's bounds so callers can report the accepted range.
func (l *List) CheckStartDate(date time.Time) error {
	if l.Contains(date) {
		return nil
	}
	ve := &forecast.ValidationError{
		Kind:  forecast.ErrDateOutOfWindow,
		Field: "fc_start_date",
		Value: date.Format(forecast.DateLayout),
	}
	if first, last, ok := l.Bounds(); ok {
		ve.Window = &forecast.Window{Start: first, End: last}
	}
	return ve
}
