// Package chart renders demand series and forecasts as Apache ECharts line charts
package chart

import (
	"fmt"
	"io"
	"math"
	"time"

	"github.com/aouyang1/go-demand-forecaster/preparer"
	"github.com/aouyang1/go-demand-forecaster/series"
	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// missing is rendered by echarts as a gap in the line
const missing = "-"

func newLine(title, subtitle string) *charts.Line {
	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(
			opts.Title{
				Title:    title,
				Subtitle: subtitle,
			},
		),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Top: "bottom"}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "480px"}),
	)
	return line
}

func axis(t []time.Time) []string {
	labels := make([]string, len(t))
	for i, tPnt := range t {
		labels[i] = tPnt.Format(time.DateOnly)
	}
	return labels
}

func lineData(y []float64) []opts.LineData {
	data := make([]opts.LineData, len(y))
	for i, val := range y {
		if math.IsNaN(val) {
			data[i] = opts.LineData{Value: missing}
			continue
		}
		data[i] = opts.LineData{Value: val}
	}
	return data
}

// LineTSeries generates an echart multi-line chart for some arbitrary time/value combination. Each
// of y must have the same length as the input time slice. NaN values are drawn as gaps.
func LineTSeries(title string, seriesName []string, t []time.Time, y [][]float64) *charts.Line {
	line := newLine(title, "")
	line.SetXAxis(axis(t))
	for i, name := range seriesName {
		if i >= len(y) {
			break
		}
		line.AddSeries(name, lineData(y[i]))
	}
	return line
}

func seriesTitle(s series.Series) string {
	return fmt.Sprintf("Demand for %s at %s", s.ProductCode, s.Warehouse)
}

// View plots the aggregated demand of a series
func View(s series.Series) *charts.Line {
	line := newLine(seriesTitle(s), fmt.Sprintf("%s demand", s.Frequency))
	line.SetXAxis(axis(s.Times())).
		AddSeries("Demand", lineData(s.Values()))
	return line
}

// Forecast plots the historical demand with the forecast and its uncertainty band. Output
// rows beyond the history are the projection.
func Forecast(s series.Series, out preparer.Output, confidence float64) *charts.Line {
	t := out.Dates()
	actual := make([]float64, len(out))
	yhat := make([]float64, len(out))
	upper := make([]float64, len(out))
	lower := make([]float64, len(out))

	hist := make(map[time.Time]float64, s.Len())
	for _, p := range s.Points {
		hist[p.Date] = p.Demand
	}
	for i, row := range out {
		if val, exists := hist[row.Date]; exists {
			actual[i] = val
		} else {
			actual[i] = math.NaN()
		}
		yhat[i] = row.Yhat
		upper[i] = row.YhatUpper
		lower[i] = row.YhatLower
	}

	line := newLine(
		seriesTitle(s),
		fmt.Sprintf("%s forecast with %.0f%% interval", s.Frequency, confidence*100),
	)
	line.SetXAxis(axis(t)).
		AddSeries("Actual", lineData(actual)).
		AddSeries("Forecast", lineData(yhat)).
		AddSeries("Upper", lineData(upper), charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"})).
		AddSeries("Lower", lineData(lower), charts.WithLineStyleOpts(opts.LineStyle{Type: "dashed"}))
	return line
}

// Fit plots training values against a model fit and its band
func Fit(title string, t []time.Time, actual, forecast, upper, lower []float64) *charts.Line {
	return LineTSeries(
		title,
		[]string{"Actual", "Forecast", "Upper", "Lower"},
		t,
		[][]float64{actual, forecast, upper, lower},
	)
}

// Render writes every chart as a single html page
func Render(w io.Writer, title string, c ...components.Charter) error {
	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(c...)
	return page.Render(w)
}
