package preparer

import (
	"runtime"
	"time"

	"github.com/aouyang1/go-demand-forecaster/holiday"
)

// Option configures a Preparer
type Option func(*Preparer)

// WithTimeout bounds each fit and predict. A zero or negative duration disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(p *Preparer) {
		p.timeout = d
	}
}

// WithRegion selects the holiday calendar passed to the procedure
func WithRegion(region string) Option {
	return func(p *Preparer) {
		p.region = region
	}
}

// WithParallelism bounds the number of concurrent fits run by ForecastMany
func WithParallelism(n int) Option {
	return func(p *Preparer) {
		if n > 0 {
			p.parallelism = n
		}
	}
}

func defaultPreparer(proc Procedure) *Preparer {
	return &Preparer{
		proc:        proc,
		region:      holiday.RegionUS,
		parallelism: runtime.GOMAXPROCS(0),
	}
}
