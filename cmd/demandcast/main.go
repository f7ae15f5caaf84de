// Command demandcast serves the demand dashboard and runs views and forecasts from the
// command line.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/aouyang1/go-demand-forecaster/internal/config"
	"github.com/aouyang1/go-demand-forecaster/internal/telemetry"
	"github.com/aouyang1/go-demand-forecaster/record"
)

type app struct {
	configPath string
	dataPath   string
	logLevel   string
	logFormat  string

	cfg    *config.Config
	logger *slog.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "demandcast",
		Short:         "Visualize and forecast warehouse product demand",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "YAML config file, defaults to $"+config.EnvConfigPath)
	rootCmd.PersistentFlags().StringVarP(&a.dataPath, "data", "d", "", "demand csv or xlsx file, overrides the config")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "json or text")

	rootCmd.AddCommand(serveCmd(a))
	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(viewCmd(a))
	rootCmd.AddCommand(forecastCmd(a))
	rootCmd.AddCommand(holidaysCmd(a))
	return rootCmd
}

func (a *app) setup(logOut io.Writer) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dataPath != "" {
		cfg.Data.Path = a.dataPath
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}

	logger, err := telemetry.NewLogger(cfg.Logging.Level, cfg.Logging.Format, logOut)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger
	return nil
}

func (a *app) openStore() (*record.Store, error) {
	store, err := record.OpenStore(a.cfg.Data.Path)
	if err != nil {
		return nil, err
	}
	a.logger.Info("loaded demand records",
		slog.String("path", a.cfg.Data.Path),
		slog.Int("records", store.Len()),
		slog.Int("warehouses", len(store.Warehouses())),
	)
	return store, nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// createFile opens path for writing, closing it once fn returns
func createFile(path string, fn func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s, %w", path, err)
	}
	if err := fn(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
