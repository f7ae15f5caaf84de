package options

import (
	"fmt"
	"io"
	"math"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-demand-forecaster/feature"
	"github.com/aouyang1/go-demand-forecaster/forecast/util"
)

const (
	DefaultMaxAutoChangepoints = 25
	DefaultAutoRange           = 0.8
)

// Changepoint describes a point in time that will change the ongoing trend
type Changepoint struct {
	T    time.Time `json:"time"`
	Name string    `json:"name"`
}

func NewChangepoint(name string, t time.Time) Changepoint {
	return Changepoint{t, name}
}

// ChangepointOptions configures the trend changepoints. With Auto set, changepoints are
// evenly placed over the first AutoRange fraction of the training window, one for every
// four observations up to AutoNumChangepoints. Regularization keeps unused changepoints
// near zero.
type ChangepointOptions struct {
	Changepoints        []Changepoint `json:"changepoints"`
	EnableBias          bool          `json:"enable_bias"`
	Auto                bool          `json:"auto"`
	AutoNumChangepoints int           `json:"auto_num_changepoints"`
	AutoRange           float64       `json:"auto_range"`
}

// NewDefaultChangepointOptions generates a set of default changepoint options
func NewDefaultChangepointOptions() ChangepointOptions {
	return ChangepointOptions{
		Auto:                true,
		AutoNumChangepoints: DefaultMaxAutoChangepoints,
		AutoRange:           DefaultAutoRange,
	}
}

func (c ChangepointOptions) TablePrint(w io.Writer, prefix, indent string, indentGrowth int) error {
	noCfg := " None"
	if len(c.Changepoints) > 0 {
		noCfg = ""
	}
	if _, err := fmt.Fprintf(w, "%s%sChangepoints:%s\n", prefix, util.IndentExpand(indent, indentGrowth), noCfg); err != nil {
		return err
	}
	if len(c.Changepoints) == 0 {
		return nil
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sName\tDate\t\n", prefix, util.IndentExpand(indent, indentGrowth+1)); err != nil {
		return err
	}
	for _, chpt := range c.Changepoints {
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%s\t\n",
			prefix, util.IndentExpand(indent, indentGrowth+1),
			chpt.Name, chpt.T.Format(time.DateOnly)); err != nil {
			return err
		}
	}
	return tbl.Flush()
}

// GenerateAutoChangepoints replaces the configured changepoints with evenly spaced ones over
// the training times when Auto is set
func (c *ChangepointOptions) GenerateAutoChangepoints(t []time.Time) []Changepoint {
	if !c.Auto {
		return c.Changepoints
	}

	maxNum := c.AutoNumChangepoints
	if maxNum <= 0 {
		maxNum = DefaultMaxAutoChangepoints
	}
	autoRange := c.AutoRange
	if autoRange <= 0 || autoRange > 1 {
		autoRange = DefaultAutoRange
	}

	histSize := int(math.Floor(float64(len(t)) * autoRange))
	n := min(maxNum, len(t)/4, histSize-1)
	if n <= 0 {
		c.Changepoints = nil
		return nil
	}

	chpts := make([]Changepoint, 0, n)
	step := float64(histSize-1) / float64(n)
	for i := 1; i <= n; i++ {
		idx := int(math.Round(step * float64(i)))
		chpts = append(chpts, NewChangepoint(fmt.Sprintf("auto_%02d", i-1), t[idx]))
	}
	c.Changepoints = chpts
	return chpts
}

// GenerateFeatures creates the slope and optional bias features of every changepoint within
// the training window
func (c ChangepointOptions) GenerateFeatures(t []time.Time, window Window) *feature.Set {
	feat := feature.NewSet()
	scaled := window.Scale(t)
	for i, chpt := range c.Changepoints {
		// changepoints beyond training are never fit
		if chpt.T.After(window.End) {
			continue
		}
		name := chpt.Name
		if name == "" {
			name = fmt.Sprintf("%02d", i)
		}
		at := window.ScaleOne(chpt.T)

		slope := feature.NewChangepoint(name, feature.ChangepointCompSlope)
		feat.Set(slope, slope.Generate(scaled, at))

		if c.EnableBias {
			bias := feature.NewChangepoint(name, feature.ChangepointCompBias)
			feat.Set(bias, bias.Generate(scaled, at))
		}
	}
	return feat
}
