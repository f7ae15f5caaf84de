// Package series aggregates demand records of one warehouse and product into a regular,
// zero filled time series at a calendar frequency.
package series

import (
	"time"

	"github.com/aouyang1/go-demand-forecaster/record"
)

// Point is the total demand of one period, labelled by the period anchor
type Point struct {
	Date   time.Time `json:"date"`
	Demand float64   `json:"demand"`
}

// Series is the aggregated demand of a single warehouse and product. Points are strictly
// ascending and contiguous at the series frequency.
type Series struct {
	Warehouse   string    `json:"warehouse"`
	ProductCode string    `json:"product_code"`
	Frequency   Frequency `json:"frequency"`
	Points      []Point   `json:"points"`
}

// Aggregate filters records to the warehouse and product, using exact case sensitive
// matches, and sums their demand into every period between the earliest and latest
// matching dates. Periods without records carry zero demand. No match yields an empty
// series rather than an error.
func Aggregate(records []record.DemandRecord, warehouse, product string, freq Frequency) Series {
	s := Series{
		Warehouse:   warehouse,
		ProductCode: product,
		Frequency:   freq,
		Points:      []Point{},
	}

	var minDate, maxDate time.Time
	sums := make(map[time.Time]float64)
	for _, rec := range records {
		if rec.WarehouseID != warehouse || rec.ProductCode != product {
			continue
		}
		day := record.Day(rec.Date)
		if minDate.IsZero() || day.Before(minDate) {
			minDate = day
		}
		if maxDate.IsZero() || day.After(maxDate) {
			maxDate = day
		}
		sums[freq.Anchor(day)] += float64(rec.OrderDemand)
	}
	if len(sums) == 0 {
		return s
	}

	grid := freq.Grid(minDate, maxDate)
	s.Points = make([]Point, 0, len(grid))
	for _, anchor := range grid {
		s.Points = append(s.Points, Point{Date: anchor, Demand: sums[anchor]})
	}
	return s
}

// Empty reports whether the series has no points
func (s Series) Empty() bool {
	return len(s.Points) == 0
}

// Len returns the number of periods in the series
func (s Series) Len() int {
	return len(s.Points)
}

// Times returns the period anchors of the series
func (s Series) Times() []time.Time {
	t := make([]time.Time, len(s.Points))
	for i, p := range s.Points {
		t[i] = p.Date
	}
	return t
}

// Values returns the period demand of the series
func (s Series) Values() []float64 {
	y := make([]float64, len(s.Points))
	for i, p := range s.Points {
		y[i] = p.Demand
	}
	return y
}

// YearRange returns the first and last calendar years touched by the series. ok is false
// for an empty series.
func (s Series) YearRange() (minYear, maxYear int, ok bool) {
	if s.Empty() {
		return 0, 0, false
	}
	minYear = s.Points[0].Date.Year()
	maxYear = minYear
	for _, p := range s.Points[1:] {
		y := p.Date.Year()
		if y < minYear {
			minYear = y
		}
		if y > maxYear {
			maxYear = y
		}
	}
	return minYear, maxYear, true
}

// Total returns the summed demand over all periods
func (s Series) Total() float64 {
	var total float64
	for _, p := range s.Points {
		total += p.Demand
	}
	return total
}
