// Package holiday builds holiday tables covering a range of calendar years. The tables mark
// dates where demand is expected to deviate from the usual pattern and are consumed by the
// forecast as event windows.
package holiday

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rickar/cal/v2"
	"github.com/rickar/cal/v2/us"
)

const (
	// RegionUS is the United States federal holiday calendar and the default region
	RegionUS = "US"

	DefaultLowerWindow = 0
	DefaultUpperWindow = 1

	observedSuffix = " (observed)"
)

var ErrUnknownRegion = errors.New("unknown holiday region")

var (
	registryMu sync.RWMutex
	registry   = map[string][]*cal.Holiday{
		RegionUS: us.Holidays,
	}
)

// Register adds or replaces the holiday set of a region. Region names are case insensitive.
func Register(region string, holidays ...*cal.Holiday) {
	registryMu.Lock()
	defer registryMu.Unlock()

	hols := make([]*cal.Holiday, len(holidays))
	copy(hols, holidays)
	registry[normalizeRegion(region)] = hols
}

// Regions returns the registered region names sorted
func Regions() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	regions := make([]string, 0, len(registry))
	for region := range registry {
		regions = append(regions, region)
	}
	sort.Strings(regions)
	return regions
}

func normalizeRegion(region string) string {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		return RegionUS
	}
	return region
}

func lookup(region string) ([]*cal.Holiday, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	hols, exists := registry[normalizeRegion(region)]
	if !exists {
		return nil, fmt.Errorf("%q, %w", region, ErrUnknownRegion)
	}
	return hols, nil
}

// Holiday is a single dated holiday. The window offsets are whole days relative to Date, so
// the holiday affects [Date+LowerWindow, Date+UpperWindow].
type Holiday struct {
	Date        time.Time `json:"date"`
	Name        string    `json:"name"`
	LowerWindow int       `json:"lower_window"`
	UpperWindow int       `json:"upper_window"`
}

// Start returns the first day affected by the holiday
func (h Holiday) Start() time.Time {
	return h.Date.AddDate(0, 0, h.LowerWindow)
}

// End returns the last day affected by the holiday
func (h Holiday) End() time.Time {
	return h.Date.AddDate(0, 0, h.UpperWindow)
}

// Table is a set of holidays sorted by date then name
type Table []Holiday

// YearRange is an inclusive span of calendar years
type YearRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// For returns every holiday of the region that falls within [minYear, maxYear]. Each holiday
// contributes its actual date and, when a weekend rule moves it, an additional observed row.
// Rows are kept by the year of their own date, so an observed day moved across a year
// boundary belongs to the year it lands in. Holidays not in effect for a given year are
// skipped. An empty region selects the US calendar. A reversed year range returns an empty
// table.
func For(minYear, maxYear int, region string) (Table, error) {
	hols, err := lookup(region)
	if err != nil {
		return nil, err
	}

	tbl := Table{}
	if minYear > maxYear {
		return tbl, nil
	}

	inRange := func(day time.Time) bool {
		return day.Year() >= minYear && day.Year() <= maxYear
	}

	// observed days can move into the neighbouring year
	for year := minYear - 1; year <= maxYear+1; year++ {
		for _, hol := range hols {
			if hol == nil {
				continue
			}
			actual, observed := hol.Calc(year)
			if actual.IsZero() {
				continue
			}
			actualDay := toDay(actual)
			if inRange(actualDay) {
				tbl = append(tbl, newHoliday(actualDay, hol.Name))
			}

			if observed.IsZero() {
				continue
			}
			observedDay := toDay(observed)
			if !observedDay.Equal(actualDay) && inRange(observedDay) {
				tbl = append(tbl, newHoliday(observedDay, hol.Name+observedSuffix))
			}
		}
	}
	tbl.sort()
	return tbl, nil
}

// ForRange is For over a YearRange
func ForRange(r YearRange, region string) (Table, error) {
	return For(r.Min, r.Max, region)
}

func newHoliday(date time.Time, name string) Holiday {
	return Holiday{
		Date:        date,
		Name:        name,
		LowerWindow: DefaultLowerWindow,
		UpperWindow: DefaultUpperWindow,
	}
}

// toDay keeps the calendar date of t and drops the time of day and location
func toDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func (t Table) sort() {
	sort.SliceStable(t, func(i, j int) bool {
		if !t[i].Date.Equal(t[j].Date) {
			return t[i].Date.Before(t[j].Date)
		}
		return t[i].Name < t[j].Name
	})
}

// Contains reports whether the calendar day of ts falls within any holiday window
func (t Table) Contains(ts time.Time) bool {
	day := toDay(ts)
	for _, h := range t {
		if !day.Before(h.Start()) && !day.After(h.End()) {
			return true
		}
	}
	return false
}

// Window returns the first and last day affected by the holiday at index i
func (t Table) Window(i int) (time.Time, time.Time) {
	return t[i].Start(), t[i].End()
}

// Names returns the distinct holiday names in the table sorted
func (t Table) Names() []string {
	seen := make(map[string]struct{}, len(t))
	names := make([]string, 0, len(t))
	for _, h := range t {
		if _, exists := seen[h.Name]; exists {
			continue
		}
		seen[h.Name] = struct{}{}
		names = append(names, h.Name)
	}
	sort.Strings(names)
	return names
}

// Range returns the earliest and latest affected days over all holidays. ok is false for an
// empty table.
func (t Table) Range() (start, end time.Time, ok bool) {
	if len(t) == 0 {
		return time.Time{}, time.Time{}, false
	}
	for i, h := range t {
		if i == 0 || h.Start().Before(start) {
			start = h.Start()
		}
		if i == 0 || h.End().After(end) {
			end = h.End()
		}
	}
	return start, end, true
}
