package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand-forecaster/internal/dashboard"
)

func listCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list [warehouse]",
		Short: "List warehouses, or the products of one warehouse",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := a.openStore()
			if err != nil {
				return err
			}
			if len(args) == 0 {
				return writeJSON(cmd.OutOrStdout(), dashboard.WarehousesResponse{Warehouses: store.Warehouses()})
			}

			warehouse := args[0]
			if !store.HasWarehouse(warehouse) {
				return fmt.Errorf("%q, %w", warehouse, dashboard.ErrUnknownWarehouse)
			}
			return writeJSON(cmd.OutOrStdout(), dashboard.ProductsResponse{
				Warehouse: warehouse,
				Products:  store.Products(warehouse),
			})
		},
	}
}
