package forecast

import (
	"bytes"
	"math"
	"testing"
	"time"

	"github.com/aouyang1/go-demand-forecaster/feature"
	"github.com/aouyang1/go-demand-forecaster/forecast/options"
	"github.com/aouyang1/go-demand-forecaster/timedataset"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func exactOptions() *options.Options {
	opt := options.NewTrendOptions()
	opt.Regularization = 0
	return opt
}

func weeklyOptions() *options.Options {
	opt := exactOptions()
	opt.GrowthType = ""
	opt.SeasonalityOptions.SeasonalityConfigs = []options.SeasonalityConfig{
		options.NewWeeklySeasonalityConfig(3),
	}
	return opt
}

func TestFitConstant(t *testing.T) {
	n := 60
	tTrain := timedataset.GenerateDays(n, date(2023, 1, 1))
	y := timedataset.GenerateConstY(n, 10)

	f, err := New(nil)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tTrain, y))

	tFuture := timedataset.GenerateDays(7, date(2023, 3, 2))
	pred, comp, err := f.Predict(tFuture)
	require.Nil(t, err)
	assert.InDeltaSlice(t, timedataset.GenerateConstY(7, 10), pred, 1e-6)
	assert.Len(t, comp.Trend, 7)

	assert.InDelta(t, 10.0, f.Intercept(), 1e-6)
	assert.InDeltaSlice(t, make([]float64, n), f.Residuals(), 1e-6)
	assert.InDelta(t, 0.0, f.Scores().MSE, 1e-9)
	assert.InDelta(t, 0.0, f.Scores().MAPE, 1e-6)
}

func TestFitLinearTrend(t *testing.T) {
	n := 60
	tTrain := timedataset.GenerateDays(n, date(2023, 1, 1))
	y := make([]float64, n)
	for i := range y {
		y[i] = 5 + 0.5*float64(i)
	}

	f, err := New(exactOptions())
	require.Nil(t, err)
	require.Nil(t, f.Fit(tTrain, y))

	pred, comp, err := f.Predict([]time.Time{date(2023, 3, 12)})
	require.Nil(t, err)
	assert.InDelta(t, 5+0.5*70, pred[0], 1e-6)
	assert.InDelta(t, pred[0], comp.Trend[0], 1e-9)
	assert.Equal(t, []float64{0}, comp.Seasonality)
	assert.Equal(t, []float64{0}, comp.Event)

	coef, err := f.Coefficients()
	require.Nil(t, err)
	assert.InDelta(t, 0.5*float64(n-1), coef[feature.Linear().String()], 1e-6)
	assert.InDelta(t, 1.0, f.Scores().R2, 1e-9)

	eq, err := f.ModelEq()
	require.Nil(t, err)
	assert.Equal(t, "y ~ 5.00+29.50*growth_linear", eq)
}

func TestFitWeeklySeasonality(t *testing.T) {
	n := 56
	tTrain := timedataset.GenerateDays(n, date(2023, 1, 1))
	y := timedataset.GenerateConstY(n, 10).Add(timedataset.GenerateWaveY(tTrain, 3, 7, 1, 0))

	f, err := New(weeklyOptions())
	require.Nil(t, err)
	require.Nil(t, f.Fit(tTrain, y))

	assert.InDeltaSlice(t, timedataset.GenerateConstY(n, 10), f.TrendComponent(), 1e-6)
	assert.InDeltaSlice(t, timedataset.GenerateWaveY(tTrain, 3, 7, 1, 0), f.SeasonalityComponent(), 1e-6)
	assert.InDeltaSlice(t, make([]float64, n), f.EventComponent(), 1e-9)

	tFuture := timedataset.GenerateDays(14, date(2023, 2, 26))
	expected := timedataset.GenerateConstY(14, 10).Add(timedataset.GenerateWaveY(tFuture, 3, 7, 1, 0))
	pred, _, err := f.Predict(tFuture)
	require.Nil(t, err)
	assert.InDeltaSlice(t, expected, pred, 1e-6)

	assert.Len(t, f.FeatureLabels(), 6)
}

func TestFitEvent(t *testing.T) {
	n := 90
	tTrain := timedataset.GenerateDays(n, date(2023, 1, 1))
	y := timedataset.GenerateConstY(n, 10).
		SetConst(tTrain, 30, date(2023, 1, 10), date(2023, 1, 12)).
		SetConst(tTrain, 30, date(2023, 2, 20), date(2023, 2, 22))

	opt := exactOptions()
	opt.EventOptions.Events = []options.Event{
		options.NewEvent("promo", date(2023, 1, 10), date(2023, 1, 12)),
		options.NewEvent("promo", date(2023, 2, 20), date(2023, 2, 22)),
		options.NewEvent("promo", date(2023, 4, 15), date(2023, 4, 16)),
	}

	f, err := New(opt)
	require.Nil(t, err)
	require.Nil(t, f.Fit(tTrain, y))

	coef, err := f.Coefficients()
	require.Nil(t, err)
	assert.InDelta(t, 20.0, coef[feature.NewEvent("promo").String()], 1e-6)

	pred, comp, err := f.Predict([]time.Time{date(2023, 4, 14), date(2023, 4, 15), date(2023, 4, 16)})
	require.Nil(t, err)
	assert.InDeltaSlice(t, []float64{10, 30, 10}, pred, 1e-6)
	assert.InDeltaSlice(t, []float64{0, 20, 0}, comp.Event, 1e-6)
}

func TestFitSkipsNaN(t *testing.T) {
	n := 30
	tTrain := timedataset.GenerateDays(n, date(2023, 1, 1))
	y := timedataset.GenerateConstY(n, 4)
	y[3] = math.NaN()
	y[17] = math.NaN()

	f, err := New(exactOptions())
	require.Nil(t, err)
	require.Nil(t, f.Fit(tTrain, y))

	res := f.Residuals()
	require.Len(t, res, n)
	assert.True(t, math.IsNaN(res[3]))
	assert.True(t, math.IsNaN(res[17]))
	assert.InDelta(t, 0.0, res[0], 1e-6)
	assert.InDelta(t, 4.0, f.Intercept(), 1e-6)
}

func TestFitErrors(t *testing.T) {
	tTrain := timedataset.GenerateDays(3, date(2023, 1, 1))

	testData := map[string]struct {
		t   []time.Time
		y   []float64
		err error
	}{
		"single point": {
			t:   tTrain[:1],
			y:   []float64{1},
			err: ErrInsufficientTrainingData,
		},
		"only one non NaN": {
			t:   tTrain,
			y:   []float64{math.NaN(), 2, math.NaN()},
			err: ErrInsufficientTrainingData,
		},
		"length mismatch": {
			t:   tTrain,
			y:   []float64{1, 2},
			err: timedataset.ErrDatasetLenMismatch,
		},
		"no data": {
			err: timedataset.ErrNoTrainingData,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			f, err := New(nil)
			require.Nil(t, err)
			assert.ErrorIs(t, f.Fit(td.t, td.y), td.err)
		})
	}
}

func TestUntrained(t *testing.T) {
	var nilForecast *Forecast
	assert.ErrorIs(t, nilForecast.Fit(nil, nil), ErrUninitializedForecast)
	_, _, err := nilForecast.Predict(nil)
	assert.ErrorIs(t, err, ErrUninitializedForecast)
	assert.Nil(t, nilForecast.Residuals())
	assert.Equal(t, Scores{}, nilForecast.Scores())

	f, err := New(nil)
	require.Nil(t, err)
	_, _, err = f.Predict([]time.Time{date(2023, 1, 1)})
	assert.ErrorIs(t, err, ErrUntrainedForecast)
	_, err = f.Model()
	assert.ErrorIs(t, err, ErrUntrainedForecast)
	_, err = f.Coefficients()
	assert.ErrorIs(t, err, ErrNoModelCoefficients)
	_, err = f.ModelEq()
	assert.ErrorIs(t, err, ErrUntrainedForecast)
}

func TestNewDoesNotMutateOptions(t *testing.T) {
	opt := options.NewDefaultOptions()
	f, err := New(opt)
	require.Nil(t, err)

	n := 60
	require.Nil(t, f.Fit(timedataset.GenerateDays(n, date(2023, 1, 1)), timedataset.GenerateConstY(n, 1)))
	assert.Nil(t, opt.ChangepointOptions.Changepoints)
	assert.Nil(t, opt.SeasonalityOptions.SeasonalityConfigs)
	assert.NotEmpty(t, f.Options().ChangepointOptions.Changepoints)
}

func TestModelRoundTrip(t *testing.T) {
	n := 56
	tTrain := timedataset.GenerateDays(n, date(2023, 1, 1))
	y := timedataset.GenerateConstY(n, 10).Add(timedataset.GenerateWaveY(tTrain, 3, 7, 1, 0))

	f, err := New(weeklyOptions())
	require.Nil(t, err)
	require.Nil(t, f.Fit(tTrain, y))

	m, err := f.Model()
	require.Nil(t, err)
	assert.Equal(t, options.Window{Start: tTrain[0], End: tTrain[n-1]}, m.Window)

	out, err := json.Marshal(m)
	require.Nil(t, err)

	var decoded Model
	require.Nil(t, json.Unmarshal(out, &decoded))

	loaded, err := NewFromModel(decoded)
	require.Nil(t, err)

	tFuture := timedataset.GenerateDays(10, date(2023, 3, 1))
	expected, _, err := f.Predict(tFuture)
	require.Nil(t, err)
	actual, _, err := loaded.Predict(tFuture)
	require.Nil(t, err)
	assert.InDeltaSlice(t, expected, actual, 1e-9)

	var buf bytes.Buffer
	require.Nil(t, m.TablePrint(&buf, "", "  "))
	assert.Contains(t, buf.String(), "Training Window: 2023-01-01 to 2023-02-25")
	assert.Contains(t, buf.String(), "Intercept: 10.000")

	_, err = NewFromModel(Model{})
	assert.ErrorIs(t, err, ErrUninitializedForecast)
}
