package forecaster

import (
	"fmt"
	"io"

	"github.com/aouyang1/go-demand-forecaster/forecast/options"
	"github.com/aouyang1/go-demand-forecaster/forecast/util"
)

const (
	DefaultResidualWindow = 100
	DefaultIntervalWidth  = 0.8

	// MaxIntervalWidth caps the interval width so that the band stays finite
	MaxIntervalWidth = 0.9999
)

// OutlierOptions configures the passes removing outliers from the training data. Each pass
// refits the series and drops the points whose residual falls outside the Tukey fences of
// the lower and upper percentiles.
type OutlierOptions struct {
	NumPasses       int     `json:"num_passes"`
	UpperPercentile float64 `json:"upper_percentile"`
	LowerPercentile float64 `json:"lower_percentile"`
	TukeyFactor     float64 `json:"tukey_factor"`
}

func NewOutlierOptions() *OutlierOptions {
	return &OutlierOptions{
		NumPasses:       3,
		UpperPercentile: 0.9,
		LowerPercentile: 0.1,
		TukeyFactor:     1.0,
	}
}

// SeriesOptions configures the model of the demand series
type SeriesOptions struct {
	ForecastOptions *options.Options `json:"forecast_options"`
	OutlierOptions  *OutlierOptions  `json:"outlier_options"`
}

// UncertaintyOptions configures the model of the residual spread which produces the
// uncertainty band. IntervalWidth is the probability mass covered by the band.
type UncertaintyOptions struct {
	ForecastOptions *options.Options `json:"forecast_options"`
	ResidualWindow  int              `json:"residual_window"`
	IntervalWidth   float64          `json:"interval_width"`
}

// Options configures both the series and uncertainty models of a Forecaster
type Options struct {
	SeriesOptions      *SeriesOptions      `json:"series_options"`
	UncertaintyOptions *UncertaintyOptions `json:"uncertainty_options"`
}

// NewDefaultOptions fits the series with linear growth, automatic changepoints and automatic
// seasonality without outlier removal. The uncertainty is modelled with a linear trend.
func NewDefaultOptions() *Options {
	return &Options{
		SeriesOptions: &SeriesOptions{
			ForecastOptions: options.NewDefaultOptions(),
		},
		UncertaintyOptions: &UncertaintyOptions{
			ForecastOptions: options.NewTrendOptions(),
			ResidualWindow:  DefaultResidualWindow,
			IntervalWidth:   DefaultIntervalWidth,
		},
	}
}

// Clone returns a deep copy of the options filling any unset sections with defaults
func (o *Options) Clone() *Options {
	def := NewDefaultOptions()
	if o == nil {
		return def
	}

	out := &Options{
		SeriesOptions:      def.SeriesOptions,
		UncertaintyOptions: def.UncertaintyOptions,
	}
	if o.SeriesOptions != nil {
		series := *o.SeriesOptions
		if series.ForecastOptions == nil {
			series.ForecastOptions = def.SeriesOptions.ForecastOptions
		} else {
			series.ForecastOptions = series.ForecastOptions.Clone()
		}
		if series.OutlierOptions != nil {
			outlier := *series.OutlierOptions
			series.OutlierOptions = &outlier
		}
		out.SeriesOptions = &series
	}
	if o.UncertaintyOptions != nil {
		uncertainty := *o.UncertaintyOptions
		if uncertainty.ForecastOptions == nil {
			uncertainty.ForecastOptions = def.UncertaintyOptions.ForecastOptions
		} else {
			uncertainty.ForecastOptions = uncertainty.ForecastOptions.Clone()
		}
		out.UncertaintyOptions = &uncertainty
	}
	return out
}

func (o *Options) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	if o.SeriesOptions != nil && o.SeriesOptions.OutlierOptions != nil {
		oo := o.SeriesOptions.OutlierOptions
		if _, err := fmt.Fprintf(w, "%s%sOutlier Passes: %d    Percentiles: [%.2f, %.2f]    Tukey Factor: %.2f\n",
			prefix, util.IndentExpand(indent, indentGrowth),
			oo.NumPasses, oo.LowerPercentile, oo.UpperPercentile, oo.TukeyFactor); err != nil {
			return err
		}
	}
	if o.UncertaintyOptions != nil {
		if _, err := fmt.Fprintf(w, "%s%sResidual Window: %d    Interval Width: %.3f\n",
			prefix, util.IndentExpand(indent, indentGrowth),
			o.UncertaintyOptions.ResidualWindow, o.UncertaintyOptions.IntervalWidth); err != nil {
			return err
		}
	}
	return nil
}
