package forecast

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
)

var ErrResLenMismatch = errors.New("predicted and actual have different lengths")

// Scores tracks the fit scores
type Scores struct {
	MSE  float64 `json:"mean_squared_error"`
	MAPE float64 `json:"mean_absolute_percent_error"`
	R2   float64 `json:"r_squared"`
}

// NewScores calculates the fit scores given the predicted and actual input slice values
func NewScores(predicted, actual []float64) (*Scores, error) {
	mse, err := MSE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean squared error, %w", err)
	}
	mape, err := MAPE(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute mean absolute percent error, %w", err)
	}
	rs, err := RSquared(predicted, actual)
	if err != nil {
		return nil, fmt.Errorf("unable to compute r-squared, %w", err)
	}

	return &Scores{
		MSE:  mse,
		MAPE: mape,
		R2:   rs,
	}, nil
}

// finitePairs returns the predicted and actual values where neither is NaN
func finitePairs(predicted, actual []float64) ([]float64, []float64, error) {
	if len(predicted) != len(actual) {
		return nil, nil, fmt.Errorf("expected %d, but got %d, %w", len(actual), len(predicted), ErrResLenMismatch)
	}
	p := make([]float64, 0, len(predicted))
	a := make([]float64, 0, len(actual))
	for i := range actual {
		if math.IsNaN(actual[i]) || math.IsNaN(predicted[i]) {
			continue
		}
		p = append(p, predicted[i])
		a = append(a, actual[i])
	}
	return p, a, nil
}

// MSE computes the mean squared error over the non NaN pairs. A score of 0 means a perfect
// match with no errors.
func MSE(predicted, actual []float64) (float64, error) {
	p, a, err := finitePairs(predicted, actual)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 0, nil
	}

	var mse float64
	for i := range a {
		mse += (a[i] - p[i]) * (a[i] - p[i])
	}
	return mse / float64(len(a)), nil
}

// MAPE calculates the mean absolute percent error over the non NaN pairs with a non zero
// actual value. Periods without demand are common, so they are skipped rather than
// dividing by zero.
func MAPE(predicted, actual []float64) (float64, error) {
	p, a, err := finitePairs(predicted, actual)
	if err != nil {
		return 0, err
	}

	var mape float64
	var cnt int
	for i := range a {
		if a[i] == 0 {
			continue
		}
		mape += math.Abs((a[i] - p[i]) / a[i])
		cnt++
	}
	if cnt == 0 {
		return 0, nil
	}
	return mape / float64(cnt), nil
}

// RSquared computes the r squared value between the predicted and actual where 1.0 means perfect
// fit and 0 represents no relationship. A constant actual series that is matched exactly
// scores 1.0.
func RSquared(predicted, actual []float64) (float64, error) {
	p, a, err := finitePairs(predicted, actual)
	if err != nil {
		return 0, err
	}
	if len(a) == 0 {
		return 1.0, nil
	}
	r2 := stat.RSquaredFrom(p, a, nil)
	if math.IsNaN(r2) || math.IsInf(r2, 0) {
		var sse float64
		for i := range a {
			sse += (a[i] - p[i]) * (a[i] - p[i])
		}
		if sse == 0 {
			return 1.0, nil
		}
		return 0.0, nil
	}
	return r2, nil
}
