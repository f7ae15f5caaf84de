package forecaster

import (
	"context"
	"fmt"
	"time"

	"github.com/aouyang1/go-demand-forecaster/forecast/options"
	"github.com/aouyang1/go-demand-forecaster/preparer"
)

// Procedure adapts the Forecaster to the preparer. Every fit starts from a copy of Options
// with the holidays of the fit config added as events and the interval width applied.
type Procedure struct {
	Options *Options
}

func NewProcedure(opt *Options) *Procedure {
	return &Procedure{Options: opt}
}

// Configure returns the options used to fit with cfg
func (p *Procedure) Configure(cfg preparer.FitConfig) *Options {
	var opt *Options
	if p != nil {
		opt = p.Options
	}
	opt = opt.Clone()

	eventOpt := &opt.SeriesOptions.ForecastOptions.EventOptions
	eventOpt.Events = append(eventOpt.Events, options.HolidayEvents(cfg.Holidays)...)
	opt.UncertaintyOptions.IntervalWidth = cfg.IntervalWidth
	return opt
}

// Fit implements preparer.Procedure
func (p *Procedure) Fit(ctx context.Context, t []time.Time, y []float64, cfg preparer.FitConfig) (preparer.Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f, err := New(p.Configure(cfg))
	if err != nil {
		return nil, err
	}
	if err := f.Fit(t, y); err != nil {
		return nil, fmt.Errorf("unable to fit forecaster, %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return &FitModel{Forecaster: f}, nil
}

// FitModel is a fit Forecaster satisfying preparer.Model
type FitModel struct {
	*Forecaster
}

// Predict implements preparer.Model
func (m *FitModel) Predict(t []time.Time) (preparer.Prediction, error) {
	res, err := m.Forecaster.Predict(t)
	if err != nil {
		return preparer.Prediction{}, err
	}
	return preparer.Prediction{
		T:     res.T,
		Yhat:  res.Forecast,
		Lower: res.Lower,
		Upper: res.Upper,
	}, nil
}
