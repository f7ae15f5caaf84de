// Package feature describes the regressors of a forecast model and assembles them into
// design matrices.
package feature

import (
	"errors"
	"fmt"
	"strconv"
)

var ErrUnknownFeatureType = errors.New("unknown feature type")

type FeatureType string

const (
	FeatureTypeGrowth      FeatureType = "growth"
	FeatureTypeChangepoint FeatureType = "changepoint"
	FeatureTypeSeasonality FeatureType = "seasonality"
	FeatureTypeEvent       FeatureType = "event"
)

// Feature is a single named regressor. String must be unique within a model as it is used
// to match coefficients to generated data.
type Feature interface {
	String() string
	Get(string) (string, bool)
	Type() FeatureType
	Decode() map[string]string
}

// Data is a feature paired with its generated values
type Data struct {
	F    Feature
	Data []float64
}

// FromLabels rebuilds a feature of the given type from its decoded labels
func FromLabels(ftype FeatureType, labels map[string]string) (Feature, error) {
	switch ftype {
	case FeatureTypeGrowth:
		return NewGrowth(labels["name"]), nil
	case FeatureTypeChangepoint:
		return NewChangepoint(labels["name"], ChangepointComp(labels["changepoint_component"])), nil
	case FeatureTypeSeasonality:
		order, err := strconv.Atoi(labels["order"])
		if err != nil {
			return nil, fmt.Errorf("invalid seasonality order %q, %w", labels["order"], err)
		}
		return NewSeasonality(labels["name"], FourierComp(labels["fourier_component"]), order), nil
	case FeatureTypeEvent:
		return NewEvent(labels["name"]), nil
	}
	return nil, fmt.Errorf("%q, %w", ftype, ErrUnknownFeatureType)
}
