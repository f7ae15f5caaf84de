package stats

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectOutliers(t *testing.T) {
	testData := map[string]struct {
		y         []float64
		lowerPerc float64
		upperPerc float64
		tukey     float64
		expected  []int
	}{
		"no values": {
			lowerPerc: 0.25, upperPerc: 0.75, tukey: 1.5,
		},
		"constant series has no outliers": {
			y:         []float64{10, 10, 10, 10, 10},
			lowerPerc: 0.25, upperPerc: 0.75, tukey: 1.5,
		},
		"single spike": {
			y:         []float64{1, 2, 1, 2, 1, 2, 1, 50, 2, 1, 2},
			lowerPerc: 0.25, upperPerc: 0.75, tukey: 1.5,
			expected: []int{7},
		},
		"spike and dip": {
			y:         []float64{-40, 1, 2, 1, 2, 1, 2, 1, 2, 60},
			lowerPerc: 0.25, upperPerc: 0.75, tukey: 1.5,
			expected: []int{0, 9},
		},
		"nan values ignored": {
			y:         []float64{1, math.NaN(), 2, 1, 2, 1, 2, 100},
			lowerPerc: 0.25, upperPerc: 0.75, tukey: 1.5,
			expected: []int{7},
		},
		"full range never flags": {
			y:         []float64{1, 2, 100},
			lowerPerc: -1, upperPerc: 2, tukey: 0,
		},
		"inverted percentiles": {
			y:         []float64{1, 2, 100},
			lowerPerc: 0.8, upperPerc: 0.2, tukey: 1.5,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			res := DetectOutliers(td.y, td.lowerPerc, td.upperPerc, td.tukey)
			assert.Equal(t, td.expected, res)
		})
	}
}
