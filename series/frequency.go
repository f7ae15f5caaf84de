package series

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrUnknownFrequency = errors.New("unknown frequency")

const secondsPerDay = 24 * 60 * 60

// Frequency is a calendar sampling frequency. Every period is identified by an anchor date:
//
//	Daily   the calendar day itself
//	Weekly  the Sunday closing a Monday to Sunday week
//	Monthly the last day of the calendar month
//	Yearly  December 31 of the calendar year
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	Monthly
	Yearly
)

// Frequencies lists the supported frequencies in display order
var Frequencies = []Frequency{Daily, Weekly, Monthly, Yearly}

// ParseFrequency accepts either a display label (Daily, Weekly, Monthly, Yearly) or a
// frequency code (D, W, M, ME, Y, YE, A). Matching is case insensitive.
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DAILY", "D":
		return Daily, nil
	case "WEEKLY", "W", "W-SUN":
		return Weekly, nil
	case "MONTHLY", "M", "ME":
		return Monthly, nil
	case "YEARLY", "Y", "YE", "A":
		return Yearly, nil
	}
	return Daily, fmt.Errorf("%q, %w", s, ErrUnknownFrequency)
}

// String returns the display label of the frequency
func (f Frequency) String() string {
	switch f {
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	case Yearly:
		return "Yearly"
	}
	return fmt.Sprintf("Frequency(%d)", int(f))
}

// Code returns the short frequency code
func (f Frequency) Code() string {
	switch f {
	case Daily:
		return "D"
	case Weekly:
		return "W"
	case Monthly:
		return "ME"
	case Yearly:
		return "YE"
	}
	return ""
}

// Valid reports whether f is one of the supported frequencies
func (f Frequency) Valid() bool {
	return f >= Daily && f <= Yearly
}

// MarshalText encodes the frequency with its display label
func (f Frequency) MarshalText() ([]byte, error) {
	if !f.Valid() {
		return nil, fmt.Errorf("%d, %w", int(f), ErrUnknownFrequency)
	}
	return []byte(f.String()), nil
}

// UnmarshalText decodes a display label or frequency code
func (f *Frequency) UnmarshalText(text []byte) error {
	parsed, err := ParseFrequency(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Anchor returns the anchor date of the period containing t at midnight UTC
func (f Frequency) Anchor(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	switch f {
	case Weekly:
		offset := (7 - int(day.Weekday())) % 7
		return day.AddDate(0, 0, offset)
	case Monthly:
		return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(y, time.December, 31, 0, 0, 0, 0, time.UTC)
	}
	return day
}

// Start returns the first day of the period containing t
func (f Frequency) Start(t time.Time) time.Time {
	y, m, d := t.Date()
	switch f {
	case Weekly:
		return f.Anchor(t).AddDate(0, 0, -6)
	case Monthly:
		return time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	case Yearly:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Add steps n periods from the period containing t and returns that period's anchor.
// Negative n steps backwards.
func (f Frequency) Add(t time.Time, n int) time.Time {
	anchor := f.Anchor(t)
	switch f {
	case Weekly:
		return anchor.AddDate(0, 0, 7*n)
	case Monthly:
		// step from the first of the month so month lengths never overflow
		first := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
		return f.Anchor(first.AddDate(0, n, 0))
	case Yearly:
		return anchor.AddDate(n, 0, 0)
	}
	return anchor.AddDate(0, 0, n)
}

// Periods returns the number of periods between the periods containing start and end,
// inclusive of both. Returns 0 if end falls in a period before start.
func (f Frequency) Periods(start, end time.Time) int {
	a := f.Anchor(start)
	b := f.Anchor(end)
	if b.Before(a) {
		return 0
	}
	switch f {
	case Weekly:
		return int(days(a, b)/7) + 1
	case Monthly:
		return (b.Year()-a.Year())*12 + int(b.Month()-a.Month()) + 1
	case Yearly:
		return b.Year() - a.Year() + 1
	}
	return int(days(a, b)) + 1
}

// days counts whole days between two midnight UTC dates. Unix seconds are used since
// time.Duration saturates at roughly 292 years.
func days(a, b time.Time) int64 {
	return (b.Unix() - a.Unix()) / secondsPerDay
}

// Grid returns every period anchor from the period containing start through the period
// containing end, ascending.
func (f Frequency) Grid(start, end time.Time) []time.Time {
	n := f.Periods(start, end)
	grid := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		grid = append(grid, f.Add(start, i))
	}
	return grid
}
