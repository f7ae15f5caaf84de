package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/pkg/profile"
	"github.com/spf13/cobra"

	forecaster "github.com/aouyang1/go-demand-forecaster"
	"github.com/aouyang1/go-demand-forecaster/chart"
	"github.com/aouyang1/go-demand-forecaster/preparer"
	"github.com/aouyang1/go-demand-forecaster/record"
	"github.com/aouyang1/go-demand-forecaster/series"
)

var ErrUnknownProfile = errors.New("unknown profile mode")

// recordingProcedure keeps the last model it fit so it can be exported after the forecast
type recordingProcedure struct {
	*forecaster.Procedure

	mu   sync.Mutex
	last *forecaster.FitModel
}

func (p *recordingProcedure) Fit(ctx context.Context, t []time.Time, y []float64, cfg preparer.FitConfig) (preparer.Model, error) {
	m, err := p.Procedure.Fit(ctx, t, y, cfg)
	if err != nil {
		return nil, err
	}
	if fm, ok := m.(*forecaster.FitModel); ok {
		p.mu.Lock()
		p.last = fm
		p.mu.Unlock()
	}
	return m, nil
}

func (p *recordingProcedure) Last() *forecaster.FitModel {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

type forecastFlags struct {
	selectionFlags

	confidence float64
	periods    int
	all        bool
	out        string
	modelOut   string
	fitOut     string
	describe   bool
	profile    string
}

// ProductForecast is one entry of a warehouse wide forecast
type ProductForecast struct {
	Product string          `json:"product"`
	Output  preparer.Output `json:"output,omitempty"`
	Error   string          `json:"error,omitempty"`
}

func startProfile(mode, dir string) (interface{ Stop() }, error) {
	opts := []func(*profile.Profile){profile.ProfilePath(dir), profile.Quiet}
	switch mode {
	case "":
		return nil, nil
	case "cpu":
		opts = append(opts, profile.CPUProfile)
	case "mem":
		opts = append(opts, profile.MemProfile)
	default:
		return nil, fmt.Errorf("%q, %w", mode, ErrUnknownProfile)
	}
	return profile.Start(opts...), nil
}

func forecastCmd(a *app) *cobra.Command {
	var f forecastFlags
	cmd := &cobra.Command{
		Use:   "forecast",
		Short: "Forecast the demand of a warehouse and product",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("confidence") {
				f.confidence = a.cfg.Forecast.Confidence
			}
			if !cmd.Flags().Changed("periods") {
				f.periods = a.cfg.Forecast.Periods
			}
			if !f.all && f.product == "" {
				return fmt.Errorf("a --product or --all is required, %w", preparer.ErrInvalidArgument)
			}

			prof, err := startProfile(f.profile, ".")
			if err != nil {
				return err
			}
			if prof != nil {
				defer prof.Stop()
			}

			freq, err := f.freq(a)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}

			proc := &recordingProcedure{Procedure: forecaster.NewProcedure(nil)}
			p := preparer.New(proc,
				preparer.WithTimeout(a.cfg.Forecast.Timeout),
				preparer.WithRegion(a.cfg.Forecast.Region),
				preparer.WithParallelism(a.cfg.Forecast.Parallelism),
			)

			if f.all {
				return forecastAll(cmd, a, p, store.View(), store.Products(f.warehouse), freq, f)
			}

			s := series.Aggregate(store.View(), f.warehouse, f.product, freq)
			start := time.Now()
			out, err := p.Forecast(cmd.Context(), s, f.confidence, f.periods, freq)
			if err != nil {
				return err
			}
			a.logger.Info("forecast complete",
				slog.String("warehouse", f.warehouse),
				slog.String("product", f.product),
				slog.Int("history", s.Len()),
				slog.Int("periods", f.periods),
				slog.Duration("elapsed", time.Since(start)),
			)

			if err := exportModel(cmd, proc.Last(), f); err != nil {
				return err
			}
			if f.out == "" {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			return createFile(f.out, func(w io.Writer) error {
				return chart.Render(w, "Demand Forecast", chart.Forecast(s, out, f.confidence))
			})
		},
	}

	f.selectionFlags.register(cmd)
	cmd.Flags().Float64Var(&f.confidence, "confidence", 0, "interval width between 0 and 1, defaults to the config")
	cmd.Flags().IntVar(&f.periods, "periods", 0, "number of future periods, defaults to the config")
	cmd.Flags().BoolVar(&f.all, "all", false, "forecast every product of the warehouse")
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "write an html chart instead of json")
	cmd.Flags().StringVar(&f.modelOut, "model-out", "", "write the fit model as json")
	cmd.Flags().StringVar(&f.fitOut, "fit-out", "", "write an html page of the fit and its components")
	cmd.Flags().BoolVar(&f.describe, "describe", false, "print the fit model to stderr")
	cmd.Flags().StringVar(&f.profile, "profile", "", "cpu or mem, writes the profile to the working directory")
	return cmd
}

func exportModel(cmd *cobra.Command, fm *forecaster.FitModel, f forecastFlags) error {
	if f.modelOut == "" && f.fitOut == "" && !f.describe {
		return nil
	}
	if fm == nil {
		return fmt.Errorf("no model was fit, %w", preparer.ErrForecastFit)
	}
	m, err := fm.Model()
	if err != nil {
		return err
	}

	if f.describe {
		if err := m.TablePrint(cmd.ErrOrStderr()); err != nil {
			return err
		}
	}
	if f.modelOut != "" {
		err := createFile(f.modelOut, func(w io.Writer) error {
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(m)
		})
		if err != nil {
			return err
		}
	}
	if f.fitOut != "" {
		return createFile(f.fitOut, func(w io.Writer) error {
			return fm.PlotFit(w, nil)
		})
	}
	return nil
}

func forecastAll(cmd *cobra.Command, a *app, p *preparer.Preparer, records []record.DemandRecord, products []string, freq series.Frequency, f forecastFlags) error {
	ss := make([]series.Series, len(products))
	for i, product := range products {
		ss[i] = series.Aggregate(records, f.warehouse, product, freq)
	}

	results, err := p.ForecastMany(cmd.Context(), ss, f.confidence, f.periods, freq)
	if err != nil {
		return err
	}

	out := make([]ProductForecast, len(results))
	var failed int
	for i, res := range results {
		out[i] = ProductForecast{Product: products[res.Index], Output: res.Output}
		if res.Err != nil {
			failed++
			out[i].Error = res.Err.Error()
		}
	}
	a.logger.Info("warehouse forecast complete",
		slog.String("warehouse", f.warehouse),
		slog.Int("products", len(products)),
		slog.Int("failed", failed),
	)
	return writeJSON(cmd.OutOrStdout(), out)
}
