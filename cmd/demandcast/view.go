package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand-forecaster/chart"
	"github.com/aouyang1/go-demand-forecaster/series"
)

type selectionFlags struct {
	warehouse string
	product   string
	frequency string
}

func (s *selectionFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&s.warehouse, "warehouse", "w", "", "warehouse id")
	cmd.Flags().StringVarP(&s.product, "product", "p", "", "product code")
	cmd.Flags().StringVarP(&s.frequency, "frequency", "f", "", "Daily, Weekly, Monthly or Yearly, defaults to the config")
	cmd.MarkFlagRequired("warehouse")
}

func (s *selectionFlags) freq(a *app) (series.Frequency, error) {
	raw := s.frequency
	if raw == "" {
		raw = a.cfg.Forecast.Frequency
	}
	return series.ParseFrequency(raw)
}

func viewCmd(a *app) *cobra.Command {
	var sel selectionFlags
	var out string
	cmd := &cobra.Command{
		Use:   "view",
		Short: "Aggregate the demand of a warehouse and product",
		RunE: func(cmd *cobra.Command, args []string) error {
			freq, err := sel.freq(a)
			if err != nil {
				return err
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}

			s := series.Aggregate(store.View(), sel.warehouse, sel.product, freq)
			if out == "" {
				return writeJSON(cmd.OutOrStdout(), s)
			}
			return createFile(out, func(w io.Writer) error {
				return chart.Render(w, "Demand", chart.View(s))
			})
		},
	}
	sel.register(cmd)
	cmd.MarkFlagRequired("product")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write an html chart instead of json")
	return cmd
}
