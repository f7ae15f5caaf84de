package forecaster

import (
	"time"

	"github.com/aouyang1/go-demand-forecaster/forecast"
)

// Results holds the forecast and uncertainty band per time along with the breakdown of
// both models into their components
type Results struct {
	T                     []time.Time         `json:"time"`
	Forecast              []float64           `json:"forecast"`
	Upper                 []float64           `json:"upper"`
	Lower                 []float64           `json:"lower"`
	SeriesComponents      forecast.Components `json:"series_components"`
	UncertaintyComponents forecast.Components `json:"uncertainty_components"`
}
