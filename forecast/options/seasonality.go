package options

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-demand-forecaster/feature"
	"github.com/aouyang1/go-demand-forecaster/forecast/util"
)

const (
	LabelSeasWeekly = "weekly"
	LabelSeasYearly = "yearly"

	DefaultWeeklyOrders = 3
	DefaultYearlyOrders = 10

	day        = 24 * time.Hour
	week       = 7 * day
	yearPeriod = time.Duration(365.25 * float64(day))
)

// SeasonalityOptions configures the Fourier series to fit for. With Auto set the configs
// are chosen from the sampling interval and span of the training data.
type SeasonalityOptions struct {
	Auto               bool                `json:"auto"`
	SeasonalityConfigs []SeasonalityConfig `json:"seasonality_configs"`
}

// NewDefaultSeasonalityOptions enables automatic weekly and yearly seasonality
func NewDefaultSeasonalityOptions() SeasonalityOptions {
	return SeasonalityOptions{Auto: true}
}

func (s SeasonalityOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	noCfg := " None"
	if len(s.SeasonalityConfigs) > 0 {
		noCfg = ""
	}
	if _, err := fmt.Fprintf(w, "%s%sSeasonality:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	if len(s.SeasonalityConfigs) == 0 {
		return nil
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sName\tPeriod\tOrders\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, seasCfg := range s.SeasonalityConfigs {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t%d\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			seasCfg.Name, seasCfg.Period, seasCfg.Orders); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// AutoConfigure selects seasonality from the sampling interval and the training span.
// Weekly seasonality needs at least daily sampling over two weeks and yearly seasonality
// needs sub-yearly sampling over two years. Orders are capped so that the highest harmonic
// stays above the sampling limit.
func (s *SeasonalityOptions) AutoConfigure(interval, span time.Duration) {
	if !s.Auto {
		return
	}
	var cfgs []SeasonalityConfig
	if interval > 0 && interval <= day && span >= 2*week {
		cfgs = append(cfgs, NewWeeklySeasonalityConfig(capOrders(DefaultWeeklyOrders, week, interval)))
	}
	if interval > 0 && interval < yearPeriod/2 && span >= 2*yearPeriod-2*day {
		cfgs = append(cfgs, NewYearlySeasonalityConfig(capOrders(DefaultYearlyOrders, yearPeriod, interval)))
	}
	s.SeasonalityConfigs = cfgs
	s.removeInvalid()
}

func capOrders(orders int, period, interval time.Duration) int {
	nyquist := int(math.Floor(period.Seconds() / (2.0 * interval.Seconds())))
	return min(orders, nyquist)
}

func (s *SeasonalityOptions) removeInvalid() {
	valid := make([]SeasonalityConfig, 0, len(s.SeasonalityConfigs))
	seen := make(map[string]struct{})
	for _, cfg := range s.SeasonalityConfigs {
		if cfg.Name == "" || cfg.Orders <= 0 || cfg.Period <= 0 {
			continue
		}
		if _, exists := seen[cfg.Name]; exists {
			continue
		}
		seen[cfg.Name] = struct{}{}
		valid = append(valid, cfg)
	}
	if len(valid) == 0 {
		s.SeasonalityConfigs = nil
		return
	}
	sort.Slice(valid, func(i, j int) bool {
		return valid[i].Period < valid[j].Period
	})
	s.SeasonalityConfigs = valid
}

// GenerateFeatures creates the sine and cosine terms of every configured order. Time is
// measured in days since the unix epoch so that phases align with the calendar regardless
// of the training window.
func (s SeasonalityOptions) GenerateFeatures(t []time.Time) *feature.Set {
	feat := feature.NewSet()
	if len(s.SeasonalityConfigs) == 0 {
		return feat
	}

	days := make([]float64, len(t))
	for i, tPnt := range t {
		days[i] = float64(tPnt.Unix()) / day.Seconds()
	}

	for _, cfg := range s.SeasonalityConfigs {
		periodDays := cfg.Period.Hours() / 24.0
		for order := 1; order <= cfg.Orders; order++ {
			sin := feature.NewSeasonality(cfg.Name, feature.FourierCompSin, order)
			cos := feature.NewSeasonality(cfg.Name, feature.FourierCompCos, order)
			feat.Set(sin, sin.Generate(days, periodDays))
			feat.Set(cos, cos.Generate(days, periodDays))
		}
	}
	return feat
}

// SeasonalityConfig represents a single seasonality configuration to model. This will generate
// Fourier series of the specified period and number of orders. E.g. a period of 7 days
// with 3 orders will create 6 Fourier series of order 1, 2, 3 for the sine/cosine components.
type SeasonalityConfig struct {
	Name   string        `json:"name"`
	Orders int           `json:"orders"`
	Period time.Duration `json:"period"`
}

// NewSeasonalityConfig creates a new seasonality config given a name, period and orders
func NewSeasonalityConfig(name string, period time.Duration, orders int) SeasonalityConfig {
	if orders < 0 {
		orders = 0
	}
	return SeasonalityConfig{
		Name:   name,
		Orders: orders,
		Period: period,
	}
}

// NewWeeklySeasonalityConfig creates a weekly seasonality config given a specified number of orders
func NewWeeklySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasWeekly, week, orders)
}

// NewYearlySeasonalityConfig creates a yearly seasonality config given a specified number of orders
func NewYearlySeasonalityConfig(orders int) SeasonalityConfig {
	return NewSeasonalityConfig(LabelSeasYearly, yearPeriod, orders)
}
