// Package stats holds robust statistics used while fitting forecasts
package stats

import (
	"math"
	"sort"
)

// DetectOutliers returns the indices of values outside the Tukey fences built from the
// lower and upper percentiles of y. The fence width is the inner range scaled by
// tukeyFactor. NaN values are ignored.
func DetectOutliers(y []float64, lowerPerc, upperPerc, tukeyFactor float64) []int {
	lowerPerc = math.Max(lowerPerc, 0.0)
	upperPerc = math.Min(upperPerc, 1.0)
	tukeyFactor = math.Max(tukeyFactor, 0.0)

	sorted := make([]float64, 0, len(y))
	for _, val := range y {
		if !math.IsNaN(val) {
			sorted = append(sorted, val)
		}
	}
	if len(sorted) == 0 || lowerPerc >= upperPerc {
		return nil
	}
	sort.Float64s(sorted)

	last := len(sorted) - 1
	lowerIdx := min(int(math.Floor(float64(last)*lowerPerc)), last)
	upperIdx := min(int(math.Ceil(float64(last)*upperPerc)), last)

	lower := sorted[lowerIdx]
	upper := sorted[upperIdx]
	innerRange := upper - lower
	lower -= innerRange * tukeyFactor
	upper += innerRange * tukeyFactor

	var outlierIdx []int
	for i, val := range y {
		if math.IsNaN(val) {
			continue
		}
		if val > upper || val < lower {
			outlierIdx = append(outlierIdx, i)
		}
	}
	return outlierIdx
}
