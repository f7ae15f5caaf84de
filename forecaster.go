// Package forecaster fits demand series with a linear decomposition model and produces
// forecasts with an uncertainty band. A second model fit on the rolling standard deviation
// of the series residual sizes the band over time.
package forecaster

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-demand-forecaster/chart"
	"github.com/aouyang1/go-demand-forecaster/forecast"
	"github.com/aouyang1/go-demand-forecaster/stats"
	"github.com/aouyang1/go-demand-forecaster/timedataset"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

var (
	ErrInsufficientResidual = errors.New("insufficient samples from residual after outlier removal")
	ErrEmptyTimeDataset     = errors.New("no timedataset or uninitialized")
	ErrNoOptionsInModel     = errors.New("no options set in model")
	ErrCannotInferInterval  = errors.New("cannot infer interval from training data time")
	ErrUntrainedForecaster  = errors.New("forecaster has not been fit")
)

const (
	MinResidualWindow       = 2
	MinResidualSize         = 2
	MinResidualWindowFactor = 4
)

// Forecaster fits a forecast model and can be used to generate forecasts
type Forecaster struct {
	opt *Options

	seriesForecast      *forecast.Forecast
	uncertaintyForecast *forecast.Forecast

	fitTrainingData *timedataset.TimeDataset
	fitResults      *Results
	residual        []float64
}

// New creates a new instance of a Forecaster using the provided options. If no options are
// provided a default is used.
func New(opt *Options) (*Forecaster, error) {
	f := &Forecaster{
		opt: opt.Clone(),
	}

	seriesForecast, err := forecast.New(f.opt.SeriesOptions.ForecastOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast series, %w", err)
	}
	f.seriesForecast = seriesForecast

	uncertaintyForecast, err := forecast.New(f.opt.UncertaintyOptions.ForecastOptions)
	if err != nil {
		return nil, fmt.Errorf("unable to initialize forecast uncertainty, %w", err)
	}
	f.uncertaintyForecast = uncertaintyForecast
	return f, nil
}

// NewFromModel creates a new instance of Forecaster from a pre-existing model. This should be
// generated from a previous forecaster call to Model().
func NewFromModel(model Model) (*Forecaster, error) {
	if model.Options == nil {
		return nil, ErrNoOptionsInModel
	}
	opt := model.Options.Clone()
	opt.SeriesOptions.ForecastOptions = model.Series.Options.Clone()
	opt.UncertaintyOptions.ForecastOptions = model.Uncertainty.Options.Clone()

	seriesForecast, err := forecast.NewFromModel(model.Series)
	if err != nil {
		return nil, fmt.Errorf("unable to load from series model, %w", err)
	}
	uncertaintyForecast, err := forecast.NewFromModel(model.Uncertainty)
	if err != nil {
		return nil, fmt.Errorf("unable to load from uncertainty model, %w", err)
	}
	return &Forecaster{
		opt:                 opt,
		seriesForecast:      seriesForecast,
		uncertaintyForecast: uncertaintyForecast,
	}, nil
}

// Fit uses the input time and values to fit the series and uncertainty models. NaN values
// are treated as missing.
func (f *Forecaster) Fit(t []time.Time, y []float64) error {
	td, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}
	f.fitTrainingData = td.Copy()

	residual, err := f.fitSeriesWithOutliers(td.T, td.Y)
	if err != nil {
		return err
	}
	f.residual = residual

	if err := f.fitUncertainty(td.T, residual); err != nil {
		return err
	}

	f.fitResults, err = f.Predict(td.T)
	if err != nil {
		return fmt.Errorf("unable to get predicted values from training set, %w", err)
	}
	return nil
}

// fitSeriesWithOutliers fits the series, marking outliers as missing between passes. y is
// modified in place.
func (f *Forecaster) fitSeriesWithOutliers(t []time.Time, y []float64) ([]float64, error) {
	outlierOpt := f.opt.SeriesOptions.OutlierOptions

	numPasses := 0
	if outlierOpt != nil {
		numPasses = outlierOpt.NumPasses
	}

	var residual []float64
	for i := 0; i <= numPasses; i++ {
		if err := f.seriesForecast.Fit(t, y); err != nil {
			return nil, fmt.Errorf("unable to forecast series, %w", err)
		}
		residual = f.seriesForecast.Residuals()

		// no more passes on the final fit
		if outlierOpt == nil || i == numPasses {
			break
		}

		outlierIdxs := stats.DetectOutliers(
			residual,
			outlierOpt.LowerPercentile,
			outlierOpt.UpperPercentile,
			outlierOpt.TukeyFactor,
		)
		if len(outlierIdxs) == 0 {
			break
		}
		for _, idx := range outlierIdxs {
			y[idx] = math.NaN()
		}
	}
	return residual, nil
}

// fitUncertainty fits the rolling standard deviation of the residual. Windows skip over
// missing residuals so they are not necessarily contiguous in time.
func (f *Forecaster) fitUncertainty(t []time.Time, residual []float64) error {
	rt := make([]time.Time, 0, len(residual))
	rv := make([]float64, 0, len(residual))
	for i, val := range residual {
		if math.IsNaN(val) {
			continue
		}
		rt = append(rt, t[i])
		rv = append(rv, val)
	}
	if len(rv) < MinResidualSize {
		return ErrInsufficientResidual
	}

	// limit residual window to a quarter of the residual
	window := f.opt.UncertaintyOptions.ResidualWindow
	if len(rv)/MinResidualWindowFactor < window {
		window = len(rv) / MinResidualWindowFactor
	}
	window = min(max(window, MinResidualWindow), len(rv))
	f.opt.UncertaintyOptions.ResidualWindow = window

	numWindows := len(rv) - window + 1
	var stddevT []time.Time
	var stddevSeries []float64
	if numWindows < MinResidualSize {
		stddev := stat.StdDev(rv, nil)
		stddevT = []time.Time{rt[0], rt[len(rt)-1]}
		stddevSeries = []float64{stddev, stddev}
	} else {
		stddevSeries = make([]float64, numWindows)
		for i := range numWindows {
			stddevSeries[i] = stat.StdDev(rv[i:i+window], nil)
		}
		// shifting by half the residual window since computing the residual series is similar to a
		// finite impulse response filtering having a group delay of window/2.
		start := window / 2
		stddevT = rt[start : start+numWindows]
	}

	if err := f.uncertaintyForecast.Fit(stddevT, stddevSeries); err != nil {
		return fmt.Errorf("unable to forecast uncertainty, %w", err)
	}
	return nil
}

// zscore returns the standard normal quantile bounding the central width of the distribution
func zscore(width float64) float64 {
	if math.IsNaN(width) || width <= 0 {
		return 0
	}
	width = math.Min(width, MaxIntervalWidth)
	return distuv.UnitNormal.Quantile(0.5 + width/2.0)
}

// Predict takes in any set of time samples and generates a forecast, upper, lower values per time point
func (f *Forecaster) Predict(t []time.Time) (*Results, error) {
	if f == nil || f.seriesForecast == nil || f.uncertaintyForecast == nil {
		return nil, ErrUntrainedForecaster
	}
	seriesRes, seriesComp, err := f.seriesForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict series forecasts, %w", err)
	}
	uncertaintyRes, uncertaintyComp, err := f.uncertaintyForecast.Predict(t)
	if err != nil {
		return nil, fmt.Errorf("unable to predict uncertainty forecasts, %w", err)
	}

	z := zscore(f.opt.UncertaintyOptions.IntervalWidth)
	upper := make([]float64, len(seriesRes))
	lower := make([]float64, len(seriesRes))
	for i, val := range seriesRes {
		// the spread of the residual can never be negative
		band := z * math.Max(uncertaintyRes[i], 0.0)
		upper[i] = val + band
		lower[i] = val - band
	}

	return &Results{
		T:                     t,
		Forecast:              seriesRes,
		Upper:                 upper,
		Lower:                 lower,
		SeriesComponents:      seriesComp,
		UncertaintyComponents: uncertaintyComp,
	}, nil
}

// Residuals returns the difference between the final series fit against the training data
func (f *Forecaster) Residuals() []float64 {
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// TrendComponent returns the trend component created by growth and changepoints after fitting
func (f *Forecaster) TrendComponent() []float64 {
	return f.seriesForecast.TrendComponent()
}

// SeasonalityComponent returns the seasonality component after fitting the fourier series
func (f *Forecaster) SeasonalityComponent() []float64 {
	return f.seriesForecast.SeasonalityComponent()
}

// EventComponent returns the holiday and event component after fitting
func (f *Forecaster) EventComponent() []float64 {
	return f.seriesForecast.EventComponent()
}

// SeriesIntercept returns the intercept of the series fit
func (f *Forecaster) SeriesIntercept() float64 {
	return f.seriesForecast.Intercept()
}

// SeriesCoefficients returns all coefficient weight associated with the component label string
func (f *Forecaster) SeriesCoefficients() (map[string]float64, error) {
	return f.seriesForecast.Coefficients()
}

// UncertaintyIntercept returns the intercept of the uncertainty fit
func (f *Forecaster) UncertaintyIntercept() float64 {
	return f.uncertaintyForecast.Intercept()
}

// UncertaintyCoefficients returns all uncertainty coefficient weights associated with the component label string
func (f *Forecaster) UncertaintyCoefficients() (map[string]float64, error) {
	return f.uncertaintyForecast.Coefficients()
}

// Model generates a serializeable representation of the fit options, series model, and uncertainty model. This
// can be used to initialize a new Forecaster for immediate predictions skipping the training step.
func (f *Forecaster) Model() (Model, error) {
	seriesModel, err := f.seriesForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch series model, %w", err)
	}
	uncertaintyModel, err := f.uncertaintyForecast.Model()
	if err != nil {
		return Model{}, fmt.Errorf("unable to fetch uncertainty model, %w", err)
	}

	// the resolved forecast options live with each model
	opt := f.opt.Clone()
	opt.SeriesOptions.ForecastOptions = nil
	opt.UncertaintyOptions.ForecastOptions = nil
	return Model{
		Options:     opt,
		Series:      seriesModel,
		Uncertainty: uncertaintyModel,
	}, nil
}

// SeriesModelEq returns a string representation of the fit series model represented as
// y ~ b + m1x1 + m2x2 ...
func (f *Forecaster) SeriesModelEq() (string, error) {
	return f.seriesForecast.ModelEq()
}

// UncertaintyModelEq returns a string representation of the fit uncertainty model represented as
// y ~ b + m1x1 + m2x2 ...
func (f *Forecaster) UncertaintyModelEq() (string, error) {
	return f.uncertaintyForecast.ModelEq()
}

// TrainingData returns the training data used to fit the current forecaster model
func (f *Forecaster) TrainingData() *timedataset.TimeDataset {
	return f.fitTrainingData
}

// FitResults returns the results of the fit which includes the forecast, upper, and lower values
func (f *Forecaster) FitResults() *Results {
	return f.fitResults
}

// PlotOpts sets the horizon to forecast out. By default will use 10% of the training size assuming
// even intervals between points and the most common interval is used as the horizon interval.
type PlotOpts struct {
	HorizonCnt      int
	HorizonInterval time.Duration
}

// PlotFit uses the Apache Echarts library to write an html page showing the resulting fit,
// model components, and fit residual
func (f *Forecaster) PlotFit(w io.Writer, opt *PlotOpts) error {
	td := f.TrainingData()
	if td.Len() == 0 || f.fitResults == nil {
		return ErrEmptyTimeDataset
	}
	if td.Len() < 2 {
		return ErrCannotInferInterval
	}

	horizonCnt := td.Len() / 10
	horizonInterval, err := timedataset.TimeSlice(td.T).EstimateFreq()
	if err != nil {
		return fmt.Errorf("%w, %w", ErrCannotInferInterval, err)
	}
	if opt != nil {
		horizonCnt = opt.HorizonCnt
		horizonInterval = opt.HorizonInterval
	}
	horizonCnt = max(horizonCnt, 1)

	lastTime := td.T[td.Len()-1]
	horizon := make([]time.Time, 0, horizonCnt)
	zpad := make([]float64, 0, horizonCnt)
	for i := range horizonCnt {
		horizon = append(horizon, lastTime.Add(time.Duration(i+1)*horizonInterval))
		zpad = append(zpad, math.NaN())
	}

	forecastRes, err := f.Predict(horizon)
	if err != nil {
		return fmt.Errorf("unable to predict with horizon, %w", err)
	}

	t := append(append([]time.Time{}, td.T...), horizon...)
	actual := append(append([]float64{}, td.Y...), zpad...)
	yhat := append(append([]float64{}, f.fitResults.Forecast...), forecastRes.Forecast...)
	upper := append(append([]float64{}, f.fitResults.Upper...), forecastRes.Upper...)
	lower := append(append([]float64{}, f.fitResults.Lower...), forecastRes.Lower...)

	trendComp := append(f.TrendComponent(), forecastRes.SeriesComponents.Trend...)
	seasonComp := append(f.SeasonalityComponent(), forecastRes.SeriesComponents.Seasonality...)
	eventComp := append(f.EventComponent(), forecastRes.SeriesComponents.Event...)
	residuals := append(f.Residuals(), zpad...)

	return chart.Render(w, "Forecast Fit",
		chart.Fit("Forecast Fit", t, actual, yhat, upper, lower),
		chart.LineTSeries(
			"Forecast Components",
			[]string{"Trend", "Seasonality", "Event"},
			t,
			[][]float64{trendComp, seasonComp, eventComp},
		),
		chart.LineTSeries(
			"Forecast Residual",
			[]string{"Residual"},
			t,
			[][]float64{residuals},
		),
	)
}
