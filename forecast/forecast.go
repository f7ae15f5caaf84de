// Package forecast fits a single linear decomposition of a demand series into trend,
// seasonality and holiday event components
package forecast

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aouyang1/go-demand-forecaster/feature"
	"github.com/aouyang1/go-demand-forecaster/forecast/options"
	"github.com/aouyang1/go-demand-forecaster/linearmodel"
	"github.com/aouyang1/go-demand-forecaster/timedataset"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var (
	ErrUninitializedForecast    = errors.New("uninitialized forecast")
	ErrInsufficientTrainingData = errors.New("insufficient training data after removing NaNs")
	ErrNoModelCoefficients      = errors.New("no model coefficients from fit")
	ErrUntrainedForecast        = errors.New("forecast has not been trained yet")
	ErrCoefficientLenMismatch   = errors.New("number of coefficients does not match feature labels")
)

// Forecast represents a single forecast model of a time series. This is a linear model of an
// intercept, growth, changepoint, seasonality and event features fit with ridge regression.
type Forecast struct {
	opt    *options.Options
	scores *Scores

	fLabels *feature.Labels
	window  options.Window

	residual        []float64
	trainComponents Components

	coef      []float64
	intercept float64
	trained   bool
}

// New creates a new forecast instance with the given options. If none are provided, a default
// is used. The options are copied since fitting resolves automatic settings in place.
func New(opt *options.Options) (*Forecast, error) {
	if opt == nil {
		opt = options.NewDefaultOptions()
	}
	return &Forecast{opt: opt.Clone()}, nil
}

// NewFromModel creates a new forecast instance given a forecast Model to initialize. This
// instance can be used for inference immediately and does not need to be trained again.
func NewFromModel(model Model) (*Forecast, error) {
	if model.Options == nil {
		return nil, ErrUninitializedForecast
	}
	labels, err := model.Weights.FeatureLabels()
	if err != nil {
		return nil, fmt.Errorf("unable to decode feature labels, %w", err)
	}
	return &Forecast{
		opt:       model.Options.Clone(),
		fLabels:   feature.NewLabels(labels),
		window:    model.Window,
		intercept: model.Weights.Intercept,
		coef:      model.Weights.Coefficients(),
		scores:    model.Scores,
		trained:   true,
	}, nil
}

// Fit takes the input training data and fits a forecast model. NaN observations are
// excluded from the fit but kept in the residual.
func (f *Forecast) Fit(t []time.Time, y []float64) error {
	if f == nil {
		return ErrUninitializedForecast
	}

	trainingData, err := timedataset.NewUnivariateDataset(t, y)
	if err != nil {
		return fmt.Errorf("unable to create training dataset, %w", err)
	}
	clean := trainingData.DropNaN()
	if clean.Len() <= 1 {
		return ErrInsufficientTrainingData
	}

	f.window = options.Window{
		Start: clean.T[0],
		End:   clean.T[clean.Len()-1],
	}
	f.opt.Configure(clean.T)

	x, err := f.opt.GenerateFeatures(clean.T, f.window)
	if err != nil {
		return fmt.Errorf("unable to generate features, %w", err)
	}
	f.fLabels = x.Labels()

	var design mat.Matrix
	if xMx := x.Matrix(f.fLabels, clean.Len()); xMx != nil {
		design = xMx
	}

	model, err := linearmodel.NewRidgeRegression(f.opt.NewRidgeOptions())
	if err != nil {
		return fmt.Errorf("unable to initialize ridge regression, %w", err)
	}
	if err := model.Fit(design, mat.NewDense(clean.Len(), 1, clean.Y)); err != nil {
		return fmt.Errorf("unable to fit ridge regression, %w", err)
	}
	f.intercept = model.Intercept()
	f.coef = model.Coef()
	f.trained = true

	predicted, comp, err := f.Predict(trainingData.T)
	if err != nil {
		return err
	}
	f.trainComponents = comp

	scores, err := NewScores(predicted, trainingData.Y)
	if err != nil {
		return err
	}
	f.scores = scores

	residual := make([]float64, trainingData.Len())
	floats.SubTo(residual, trainingData.Y, predicted)
	f.residual = residual
	return nil
}

// Predict takes a slice of times in any order and produces the predicted value for those
// times given a pre-trained model along with the per component breakdown.
func (f *Forecast) Predict(t []time.Time) ([]float64, Components, error) {
	if f == nil {
		return nil, Components{}, ErrUninitializedForecast
	}
	if !f.trained {
		return nil, Components{}, ErrUntrainedForecast
	}
	if f.fLabels.Len() != len(f.coef) {
		return nil, Components{}, fmt.Errorf("%d labels and %d coefficients, %w", f.fLabels.Len(), len(f.coef), ErrCoefficientLenMismatch)
	}

	n := len(t)
	comp := Components{
		Trend:       make([]float64, n),
		Seasonality: make([]float64, n),
		Event:       make([]float64, n),
	}
	floats.AddConst(f.intercept, comp.Trend)
	if n == 0 {
		return []float64{}, comp, nil
	}

	x, err := f.opt.GenerateFeatures(t, f.window)
	if err != nil {
		return nil, Components{}, fmt.Errorf("unable to generate features, %w", err)
	}

	for i, label := range f.fLabels.Labels() {
		data, exists := x.Get(label)
		if !exists || f.coef[i] == 0 {
			continue
		}
		switch label.Type() {
		case feature.FeatureTypeSeasonality:
			floats.AddScaled(comp.Seasonality, f.coef[i], data)
		case feature.FeatureTypeEvent:
			floats.AddScaled(comp.Event, f.coef[i], data)
		default:
			floats.AddScaled(comp.Trend, f.coef[i], data)
		}
	}

	res := make([]float64, n)
	floats.AddTo(res, comp.Trend, comp.Seasonality)
	floats.Add(res, comp.Event)
	return res, comp, nil
}

// FeatureLabels returns the slice of feature labels in the order of the coefficients
func (f *Forecast) FeatureLabels() []feature.Feature {
	if f == nil {
		return nil
	}
	return f.fLabels.Labels()
}

// Coefficients returns a forecast model map of coefficients keyed by the string
// representation of each feature label
func (f *Forecast) Coefficients() (map[string]float64, error) {
	if f == nil {
		return nil, ErrUninitializedForecast
	}

	labels := f.fLabels.Labels()
	if len(labels) == 0 || len(f.coef) == 0 {
		return nil, ErrNoModelCoefficients
	}
	coef := make(map[string]float64, len(labels))
	for i, label := range labels {
		coef[label.String()] = f.coef[i]
	}
	return coef, nil
}

// Intercept returns the intercept of the forecast model
func (f *Forecast) Intercept() float64 {
	if f == nil {
		return 0
	}
	return f.intercept
}

// Options returns the resolved options of the forecast
func (f *Forecast) Options() *options.Options {
	if f == nil {
		return nil
	}
	return f.opt.Clone()
}

// Model returns the serializeable format of the forecast model composing of the
// forecast options, intercept, coefficients with their feature labels, and the
// model fit scores
func (f *Forecast) Model() (Model, error) {
	if f == nil {
		return Model{}, ErrUninitializedForecast
	}
	if !f.trained {
		return Model{}, ErrUntrainedForecast
	}

	labels := f.fLabels.Labels()
	fws := make([]FeatureWeight, 0, len(f.coef))
	for i, c := range f.coef {
		fws = append(fws, NewFeatureWeight(labels[i], c))
	}
	return Model{
		Window:  f.window,
		Options: f.opt.Clone(),
		Scores:  f.scores,
		Weights: Weights{
			Intercept: f.intercept,
			Coef:      fws,
		},
	}, nil
}

// ModelEq returns a string representation of the model linear equation in the format of
// y ~ b + m1x1 + m2x2 + ...
func (f *Forecast) ModelEq() (string, error) {
	if f == nil {
		return "", ErrUninitializedForecast
	}
	if !f.trained {
		return "", ErrUntrainedForecast
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("y ~ %.2f", f.intercept))
	for i, label := range f.fLabels.Labels() {
		w := f.coef[i]
		if w == 0 {
			continue
		}
		sb.WriteString(fmt.Sprintf("%+.2f*%s", w, label))
	}
	return sb.String(), nil
}

// Scores returns the fit scores for evaluating how well the resulting model
// fit the training data
func (f *Forecast) Scores() Scores {
	if f == nil || f.scores == nil {
		return Scores{}
	}
	return *f.scores
}

// Residuals returns a slice of values representing the difference between the
// training data and the fit data
func (f *Forecast) Residuals() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.residual))
	copy(res, f.residual)
	return res
}

// TrendComponent represents the intercept, growth and changepoint contribution over the
// training data
func (f *Forecast) TrendComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Trend))
	copy(res, f.trainComponents.Trend)
	return res
}

// SeasonalityComponent represents the overall seasonal component of the model
func (f *Forecast) SeasonalityComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Seasonality))
	copy(res, f.trainComponents.Seasonality)
	return res
}

// EventComponent represents the holiday and event contribution over the training data
func (f *Forecast) EventComponent() []float64 {
	if f == nil {
		return nil
	}
	res := make([]float64, len(f.trainComponents.Event))
	copy(res, f.trainComponents.Event)
	return res
}
