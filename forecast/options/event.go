package options

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-demand-forecaster/feature"
	"github.com/aouyang1/go-demand-forecaster/forecast/util"
	"github.com/aouyang1/go-demand-forecaster/holiday"
)

var (
	ErrStartAfterEnd = errors.New("event start time is after end time")
	ErrUnsetTime     = errors.New("unset event start or end time")
	ErrNoEventName   = errors.New("no event name")
)

// Event represents a span of time [Start, End) to model with its own level shift. Events
// sharing a name share a single coefficient, so a holiday recurring every year is fit once.
type Event struct {
	Name  string    `json:"name"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func NewEvent(name string, start, end time.Time) Event {
	return Event{
		Name:  name,
		Start: start,
		End:   end,
	}
}

func (e *Event) Valid() error {
	if e.Start.IsZero() || e.End.IsZero() {
		return ErrUnsetTime
	}
	if e.Start.After(e.End) {
		return ErrStartAfterEnd
	}
	if e.Name == "" {
		return ErrNoEventName
	}
	return nil
}

// overlaps reports whether the event intersects [start, end)
func (e *Event) overlaps(start, end time.Time) bool {
	return e.Start.Before(end) && e.End.After(start)
}

// HolidayEvents converts a holiday table into events spanning each holiday's window. The
// window end day is inclusive so the event ends at the following midnight.
func HolidayEvents(tbl holiday.Table) []Event {
	events := make([]Event, 0, len(tbl))
	for _, h := range tbl {
		events = append(events, NewEvent(h.Name, h.Start(), h.End().Add(day)))
	}
	return events
}

// EventOptions holds the events to model. Interval is the sampling interval of the training
// data. A sample labelled t covers the period [t+1d-Interval, t+1d) so that daily, weekly,
// monthly and yearly period labels all mark the last day of their period.
type EventOptions struct {
	Events   []Event       `json:"events"`
	Interval time.Duration `json:"interval"`
}

// GenerateFeatures creates one mask per distinct event name marking the samples whose
// period overlaps any occurrence of the event. Invalid events are skipped and returned
// as errors.
func (e EventOptions) GenerateFeatures(t []time.Time) (*feature.Set, []error) {
	interval := e.Interval
	if interval <= 0 {
		interval = day
	}

	eFeat := feature.NewSet()
	masks := make(map[string][]float64)
	var order []string
	var errs []error
	for _, ev := range e.Events {
		if err := ev.Valid(); err != nil {
			errs = append(errs, fmt.Errorf("event %q, %w", ev.Name, err))
			continue
		}
		mask, exists := masks[ev.Name]
		if !exists {
			mask = make([]float64, len(t))
			masks[ev.Name] = mask
			order = append(order, ev.Name)
		}
		for i, tPnt := range t {
			end := tPnt.Add(day)
			if ev.overlaps(end.Add(-interval), end) {
				mask[i] = 1.0
			}
		}
	}
	for _, name := range order {
		eFeat.Set(feature.NewEvent(name), masks[name])
	}
	return eFeat, errs
}

func (e EventOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	noCfg := " None"
	if len(e.Events) > 0 {
		noCfg = ""
	}
	if _, err := fmt.Fprintf(w, "%s%sEvents:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	if len(e.Events) == 0 {
		return nil
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sName\tStart\tEnd\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, ev := range e.Events {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			ev.Name, ev.Start.Format(time.DateOnly), ev.End.Format(time.DateOnly)); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
