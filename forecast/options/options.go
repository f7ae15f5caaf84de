// Package options contains all forecast options for a linear fit of a univariate demand
// series
package options

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/aouyang1/go-demand-forecaster/feature"
	"github.com/aouyang1/go-demand-forecaster/forecast/util"
	"github.com/aouyang1/go-demand-forecaster/linearmodel"
	"github.com/aouyang1/go-demand-forecaster/timedataset"
)

const DefaultRegularization = 0.01

var ErrInvalidWindow = errors.New("training window end must be after start")

// Options configures a forecast by specifying growth, changepoints, seasonality, events and
// the ridge regularization applied to every feature except the intercept.
type Options struct {
	GrowthType         string             `json:"growth_type"`
	ChangepointOptions ChangepointOptions `json:"changepoint_options"`
	SeasonalityOptions SeasonalityOptions `json:"seasonality_options"`
	EventOptions       EventOptions       `json:"event_options"`
	Regularization     float64            `json:"regularization"`
}

// NewDefaultOptions returns a set of default forecast options with linear growth, automatic
// changepoints and automatic seasonality
func NewDefaultOptions() *Options {
	return &Options{
		GrowthType:         feature.GrowthLinear,
		ChangepointOptions: NewDefaultChangepointOptions(),
		SeasonalityOptions: NewDefaultSeasonalityOptions(),
		Regularization:     DefaultRegularization,
	}
}

// NewTrendOptions returns options with only linear growth. These are used to model slowly
// varying quantities such as the residual spread.
func NewTrendOptions() *Options {
	return &Options{
		GrowthType:     feature.GrowthLinear,
		Regularization: DefaultRegularization,
	}
}

// Clone returns a deep copy of the options
func (o *Options) Clone() *Options {
	if o == nil {
		return nil
	}
	out := *o
	out.ChangepointOptions.Changepoints = slices.Clone(o.ChangepointOptions.Changepoints)
	out.SeasonalityOptions.SeasonalityConfigs = slices.Clone(o.SeasonalityOptions.SeasonalityConfigs)
	out.EventOptions.Events = slices.Clone(o.EventOptions.Events)
	return &out
}

func (o *Options) NewRidgeOptions() *linearmodel.RidgeOptions {
	return &linearmodel.RidgeOptions{
		Lambda:       o.Regularization,
		FitIntercept: true,
	}
}

// Configure resolves the automatic options against the training times. It places automatic
// changepoints, selects seasonality and records the sampling interval used by event masks.
func (o *Options) Configure(t []time.Time) {
	ts := timedataset.TimeSlice(t)
	interval, err := ts.EstimateFreq()
	if err != nil {
		interval = day
	}
	o.ChangepointOptions.GenerateAutoChangepoints(t)
	o.SeasonalityOptions.AutoConfigure(interval, ts.Span())
	if o.EventOptions.Interval == 0 {
		o.EventOptions.Interval = interval
	}
}

// GenerateFeatures creates every feature for the given times relative to the training window
func (o *Options) GenerateFeatures(t []time.Time, window Window) (*feature.Set, error) {
	if !window.Valid() {
		return nil, ErrInvalidWindow
	}

	feat := feature.NewSet()
	if o.GrowthType != "" {
		growth := feature.NewGrowth(o.GrowthType)
		if data := growth.Generate(window.Scale(t)); data != nil {
			feat.Set(growth, data)
		} else {
			slog.Warn("skipping unknown growth type", "growth_type", o.GrowthType)
		}
	}
	feat.Update(o.ChangepointOptions.GenerateFeatures(t, window))
	feat.Update(o.SeasonalityOptions.GenerateFeatures(t))

	eFeat, errs := o.EventOptions.GenerateFeatures(t)
	for _, err := range errs {
		slog.Warn("not separately modelling invalid event", "error", err.Error())
	}
	feat.Update(eFeat)
	return feat, nil
}

func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if _, err := fmt.Fprintf(w, "%s%sGrowth: %s    Regularization: %.4f\n",
		prefix, util.IndentExpand(indent, indentGrowth), o.GrowthType, o.Regularization); err != nil {
		return err
	}
	if err := o.SeasonalityOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	if err := o.ChangepointOptions.TablePrint(w, prefix, indent, indentGrowth); err != nil {
		return err
	}
	return o.EventOptions.TablePrint(w, prefix, indent, indentGrowth)
}

// Window is the training time range used to scale time to [0, 1]
type Window struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (w Window) Valid() bool {
	return w.End.After(w.Start)
}

// ScaleOne maps t onto the window where Start is 0 and End is 1
func (w Window) ScaleOne(t time.Time) float64 {
	return t.Sub(w.Start).Seconds() / w.End.Sub(w.Start).Seconds()
}

func (w Window) Scale(t []time.Time) []float64 {
	scaled := make([]float64, len(t))
	for i, tPnt := range t {
		scaled[i] = w.ScaleOne(tPnt)
	}
	return scaled
}
