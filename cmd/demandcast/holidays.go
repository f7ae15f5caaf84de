package main

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand-forecaster/holiday"
)

func holidaysCmd(a *app) *cobra.Command {
	var from, to int
	var region string
	cmd := &cobra.Command{
		Use:   "holidays",
		Short: "Print the holiday table of a year range",
		RunE: func(cmd *cobra.Command, args []string) error {
			if region == "" {
				region = a.cfg.Forecast.Region
			}
			tbl, err := holiday.For(from, to, region)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), tbl)
		},
	}
	year := time.Now().Year()
	cmd.Flags().IntVar(&from, "from", year, "first year")
	cmd.Flags().IntVar(&to, "to", year, "last year")
	cmd.Flags().StringVar(&region, "region", "", "holiday region, defaults to the config")
	return cmd
}
