package feature

import (
	"fmt"
	"strings"
)

type ChangepointComp string

const (
	ChangepointCompBias  ChangepointComp = "bias"
	ChangepointCompSlope ChangepointComp = "slope"
)

// Changepoint marks a point in time where the trend may change. The bias component is a
// step and the slope component a ramp beginning at the changepoint.
type Changepoint struct {
	Name            string          `json:"name"`
	ChangepointComp ChangepointComp `json:"changepoint_component"`
}

func NewChangepoint(name string, comp ChangepointComp) *Changepoint {
	return &Changepoint{name, comp}
}

func (c Changepoint) String() string {
	return fmt.Sprintf("chpnt_%s_%s", c.Name, c.ChangepointComp)
}

func (c Changepoint) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return c.Name, true
	case "changepoint_component":
		return string(c.ChangepointComp), true
	}
	return "", false
}

func (c Changepoint) Type() FeatureType {
	return FeatureTypeChangepoint
}

func (c Changepoint) Decode() map[string]string {
	return map[string]string{
		"name":                  c.Name,
		"changepoint_component": string(c.ChangepointComp),
	}
}

// Generate computes the component values given scaled time and the scaled changepoint
// location
func (c Changepoint) Generate(scaled []float64, at float64) []float64 {
	out := make([]float64, len(scaled))
	for i, s := range scaled {
		if s < at {
			continue
		}
		switch c.ChangepointComp {
		case ChangepointCompBias:
			out[i] = 1.0
		case ChangepointCompSlope:
			out[i] = s - at
		}
	}
	return out
}
