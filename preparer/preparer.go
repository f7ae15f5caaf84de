// Package preparer turns an aggregated demand series into a forecast covering its history
// and a future horizon. The fitting procedure is injected so any model satisfying
// Procedure can be used.
package preparer

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/aouyang1/go-demand-forecaster/holiday"
	"github.com/aouyang1/go-demand-forecaster/series"
	"golang.org/x/sync/errgroup"
)

// MinPoints is the fewest distinct dates a series needs to be forecast
const MinPoints = 2

// Procedure fits a forecasting model to a training series
type Procedure interface {
	Fit(ctx context.Context, t []time.Time, y []float64, cfg FitConfig) (Model, error)
}

// Model is a fitted forecasting model
type Model interface {
	Predict(t []time.Time) (Prediction, error)
}

// FitConfig carries the settings every procedure is configured with
type FitConfig struct {
	IntervalWidth float64
	Holidays      holiday.Table
	Frequency     series.Frequency
}

// Prediction holds the point estimate and uncertainty bounds per requested time
type Prediction struct {
	T     []time.Time
	Yhat  []float64
	Lower []float64
	Upper []float64
}

// Preparer prepares forecasts with a single procedure
type Preparer struct {
	proc        Procedure
	timeout     time.Duration
	region      string
	parallelism int
}

func New(proc Procedure, opts ...Option) *Preparer {
	p := defaultPreparer(proc)
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func validateArgs(confidence float64, periods int, freq series.Frequency) error {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return fmt.Errorf("confidence %v must be within [0, 1], %w", confidence, ErrInvalidArgument)
	}
	if periods < 1 {
		return fmt.Errorf("periods %d must be at least 1, %w", periods, ErrInvalidArgument)
	}
	if !freq.Valid() {
		return fmt.Errorf("frequency %d, %w", freq, ErrInvalidArgument)
	}
	return nil
}

// Forecast fits the procedure to the series and predicts over the history plus periods
// future steps at freq. The holiday table covers the calendar years of the series. Point
// estimates and bounds are each floored at zero.
func (p *Preparer) Forecast(ctx context.Context, s series.Series, confidence float64, periods int, freq series.Frequency) (Output, error) {
	if err := validateArgs(confidence, periods, freq); err != nil {
		return nil, err
	}
	if p == nil || p.proc == nil {
		return nil, ErrNoProcedure
	}

	t, y := trainingData(s)
	if len(t) < MinPoints {
		return nil, &InsufficientDataError{Points: len(t)}
	}

	tbl, err := holiday.For(t[0].Year(), t[len(t)-1].Year(), p.region)
	if err != nil {
		return nil, fmt.Errorf("unable to build holiday table, %w", err)
	}
	cfg := FitConfig{
		IntervalWidth: confidence,
		Holidays:      tbl,
		Frequency:     freq,
	}

	predT := make([]time.Time, 0, len(t)+periods)
	predT = append(predT, t...)
	last := t[len(t)-1]
	for i := 1; i <= periods; i++ {
		predT = append(predT, freq.Add(last, i))
	}

	pred, err := p.fitPredict(ctx, t, y, cfg, predT)
	if err != nil {
		return nil, err
	}
	if err := checkPrediction(pred, len(predT)); err != nil {
		return nil, err
	}

	out := make(Output, len(predT))
	for i, tPnt := range predT {
		out[i] = Row{
			Date:      tPnt,
			Yhat:      math.Max(0, pred.Yhat[i]),
			YhatLower: math.Max(0, pred.Lower[i]),
			YhatUpper: math.Max(0, pred.Upper[i]),
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out, nil
}

// trainingData returns the series times and values ordered by date with repeated dates
// summed
func trainingData(s series.Series) ([]time.Time, []float64) {
	points := make([]series.Point, len(s.Points))
	copy(points, s.Points)
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})

	t := make([]time.Time, 0, len(points))
	y := make([]float64, 0, len(points))
	for _, pnt := range points {
		if n := len(t); n > 0 && t[n-1].Equal(pnt.Date) {
			y[n-1] += pnt.Demand
			continue
		}
		t = append(t, pnt.Date)
		y = append(y, pnt.Demand)
	}
	return t, y
}

type fitResult struct {
	pred Prediction
	err  error
}

// fitPredict runs the procedure in its own goroutine so that deadlines are honoured even
// when the procedure ignores its context
func (p *Preparer) fitPredict(ctx context.Context, t []time.Time, y []float64, cfg FitConfig, predT []time.Time) (Prediction, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return Prediction{}, &ForecastFitError{Cause: err}
	}

	done := make(chan fitResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fitResult{err: fmt.Errorf("%v, %w", r, ErrProcedurePanicked)}
			}
		}()

		model, err := p.proc.Fit(ctx, t, y, cfg)
		if err != nil {
			done <- fitResult{err: fmt.Errorf("unable to fit model, %w", err)}
			return
		}
		if model == nil {
			done <- fitResult{err: fmt.Errorf("procedure returned no model, %w", ErrForecastFit)}
			return
		}
		pred, err := model.Predict(predT)
		if err != nil {
			done <- fitResult{err: fmt.Errorf("unable to predict, %w", err)}
			return
		}
		done <- fitResult{pred: pred}
	}()

	select {
	case <-ctx.Done():
		return Prediction{}, &ForecastFitError{Cause: ctx.Err()}
	case res := <-done:
		if res.err != nil {
			return Prediction{}, &ForecastFitError{Cause: res.err}
		}
		return res.pred, nil
	}
}

func checkPrediction(pred Prediction, n int) error {
	if len(pred.Yhat) != n || len(pred.Lower) != n || len(pred.Upper) != n {
		return fitError("expected %d values but got yhat=%d lower=%d upper=%d, %w",
			n, len(pred.Yhat), len(pred.Lower), len(pred.Upper), ErrPredictionShape)
	}
	if pred.T != nil && len(pred.T) != n {
		return fitError("expected %d times but got %d, %w", n, len(pred.T), ErrPredictionShape)
	}
	for _, vals := range [][]float64{pred.Yhat, pred.Lower, pred.Upper} {
		for i, v := range vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fitError("value %v at %d, %w", v, i, ErrNonFinitePredict)
			}
		}
	}
	return nil
}

// Result is the outcome of one series forecast run by ForecastMany
type Result struct {
	Index  int    `json:"index"`
	Output Output `json:"output"`
	Err    error  `json:"-"`
}

// ForecastMany forecasts every series independently with at most the configured
// parallelism. A failing series does not stop the others; its error is kept on its Result.
// Results are ordered by the index of the input series.
func (p *Preparer) ForecastMany(ctx context.Context, ss []series.Series, confidence float64, periods int, freq series.Frequency) ([]Result, error) {
	if err := validateArgs(confidence, periods, freq); err != nil {
		return nil, err
	}
	if p == nil || p.proc == nil {
		return nil, ErrNoProcedure
	}

	results := make([]Result, len(ss))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(p.parallelism)
	for i, s := range ss {
		g.Go(func() error {
			out, err := p.Forecast(gCtx, s, confidence, periods, freq)
			results[i] = Result{Index: i, Output: out, Err: err}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
