// Package rollup turns a ledger snapshot into the derived reporting views:
// scalar KPIs, a year-to-date cumulative series per category and a monthly
// total per spending type.
//
// Every function in this package is pure. Callers pass a full snapshot and
// receive freshly allocated views; nothing is retained between calls, so the
// functions are safe to call concurrently.
package rollup

import (
	"fmt"
	"strings"
	"time"

	"teampower/internal/core"
)

// DefaultYear is the reporting year used when none is configured.
const DefaultYear = 2025

// Window is a fixed calendar year. Its daily and monthly indexes do not depend
// on the ledger contents.
type Window struct {
	year int
}

// YearMonth identifies one monthly bucket of the window.
type YearMonth struct {
	Year  int
	Month time.Month
}

func NewWindow(year int) Window {
	return Window{year: year}
}

func (w Window) Year() int { return w.year }

// Start returns January 1st of the window year.
func (w Window) Start() core.Date {
	return core.NewDate(w.year, time.January, 1)
}

// End returns December 31st of the window year.
func (w Window) End() core.Date {
	return core.NewDate(w.year, time.December, 31)
}

// Contains reports whether d falls on a day of the window.
func (w Window) Contains(d core.Date) bool {
	return !d.IsZero() && d.Year() == w.year
}

// DayCount is the number of calendar days in the window (365 or 366).
func (w Window) DayCount() int {
	return w.End().YearDay()
}

// Days returns every calendar day of the window in ascending order.
func (w Window) Days() []core.Date {
	days := make([]core.Date, w.DayCount())
	start := w.Start()
	for i := range days {
		days[i] = core.Date{Time: start.AddDate(0, 0, i)}
	}
	return days
}

// Months returns the twelve month buckets of the window in calendar order.
func (w Window) Months() []YearMonth {
	months := make([]YearMonth, 12)
	for i := range months {
		months[i] = YearMonth{Year: w.year, Month: time.Month(i + 1)}
	}
	return months
}

// dayIndex returns the position of d in Days, or -1 outside the window.
func (w Window) dayIndex(d core.Date) int {
	if !w.Contains(d) {
		return -1
	}
	return d.YearDay() - 1
}

// monthIndex returns the position of d's month in Months, or -1 outside the window.
func (w Window) monthIndex(d core.Date) int {
	if !w.Contains(d) {
		return -1
	}
	return int(d.Month()) - 1
}

// String formats the bucket as YYYY-MM.
func (m YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// Start returns the first day of the month.
func (m YearMonth) Start() core.Date {
	return core.NewDate(m.Year, m.Month, 1)
}

func (m YearMonth) MarshalJSON() ([]byte, error) {
	return []byte(`"` + m.String() + `"`), nil
}

func (m *YearMonth) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return fmt.Errorf("invalid month %q: %w", s, err)
	}
	*m = YearMonth{Year: t.Year(), Month: t.Month()}
	return nil
}
