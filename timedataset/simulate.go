package timedataset

import (
	"math"
	"math/rand/v2"
	"time"

	"gonum.org/v1/gonum/floats"
)

const day = 24 * time.Hour

// GenerateT returns n evenly spaced time points beginning at start
func GenerateT(n int, interval time.Duration, start time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.Add(interval*time.Duration(i)))
	}
	return t
}

// GenerateDays returns n consecutive calendar days beginning at start
func GenerateDays(n int, start time.Time) []time.Time {
	t := make([]time.Time, 0, n)
	for i := 0; i < n; i++ {
		t = append(t, start.AddDate(0, 0, i))
	}
	return t
}

// Series is a synthetic demand series which can be composed by adding components
type Series []float64

func (s Series) Add(src Series) Series {
	floats.Add(s, src)
	return s
}

// SetConst overwrites every value in [start, end) with val
func (s Series) SetConst(t []time.Time, val float64, start, end time.Time) Series {
	for i := range s {
		if !t[i].Before(start) && t[i].Before(end) {
			s[i] = val
		}
	}
	return s
}

// MaskWithWeekend zeroes every weekday value keeping only Saturdays and Sundays
func (s Series) MaskWithWeekend(t []time.Time) Series {
	for i := range s {
		switch t[i].Weekday() {
		case time.Saturday, time.Sunday:
			continue
		default:
			s[i] = 0.0
		}
	}
	return s
}

// ClampNonNegative floors every value at zero as demand can never be negative
func (s Series) ClampNonNegative() Series {
	for i, val := range s {
		if val < 0 {
			s[i] = 0
		}
	}
	return s
}

func GenerateConstY(n int, val float64) Series {
	y := make([]float64, n)
	for i := range y {
		y[i] = val
	}
	return Series(y)
}

// GenerateWaveY generates a sine wave with the period expressed in days
func GenerateWaveY(t []time.Time, amp, periodDays, order, offsetDays float64) Series {
	y := make([]float64, len(t))
	for i, tPnt := range t {
		days := float64(tPnt.Unix())/day.Seconds() + offsetDays
		y[i] = amp * math.Sin(2.0*math.Pi*order/periodDays*days)
	}
	return Series(y)
}

// GenerateNoise generates gaussian noise with the given standard deviation from a seeded
// source so generated series are reproducible
func GenerateNoise(n int, stddev float64, seed uint64) Series {
	rng := rand.New(rand.NewPCG(seed, seed))
	y := make([]float64, n)
	for i := range y {
		y[i] = rng.NormFloat64() * stddev
	}
	return Series(y)
}

// GenerateChange generates a jump of bias at chpt followed by a trend of slope per day
func GenerateChange(t []time.Time, chpt time.Time, bias, slope float64) Series {
	y := make([]float64, len(t))
	for i, tPnt := range t {
		if !tPnt.Before(chpt) {
			y[i] = bias + slope*tPnt.Sub(chpt).Hours()/24.0
		}
	}
	return Series(y)
}
