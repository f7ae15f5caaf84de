package feature

import (
	"fmt"
	"strings"
)

const (
	GrowthLinear = "linear"
)

// Growth is a trend regressor over time scaled so the training window spans [0, 1]
type Growth struct {
	Name string `json:"name"`
}

func NewGrowth(name string) *Growth {
	return &Growth{name}
}

func Linear() *Growth {
	return NewGrowth(GrowthLinear)
}

// String returns the string representation of the growth feature
func (g Growth) String() string {
	return fmt.Sprintf("growth_%s", g.Name)
}

// Get returns the value of an arbitrary label and returns the value along with whether
// the label exists
func (g Growth) Get(label string) (string, bool) {
	switch strings.ToLower(label) {
	case "name":
		return g.Name, true
	}
	return "", false
}

// Type returns the type of this feature
func (g Growth) Type() FeatureType {
	return FeatureTypeGrowth
}

// Decode converts the feature into a map of label values
func (g Growth) Decode() map[string]string {
	return map[string]string{"name": g.Name}
}

// Generate returns the growth values for the scaled time. Unknown growth types produce nil.
func (g Growth) Generate(scaled []float64) []float64 {
	switch g.Name {
	case GrowthLinear:
		out := make([]float64, len(scaled))
		copy(out, scaled)
		return out
	}
	return nil
}
