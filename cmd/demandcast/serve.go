package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	forecaster "github.com/aouyang1/go-demand-forecaster"
	"github.com/aouyang1/go-demand-forecaster/internal/dashboard"
	"github.com/aouyang1/go-demand-forecaster/internal/telemetry"
)

func serveCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the interactive dashboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}
			store, err := a.openStore()
			if err != nil {
				return err
			}

			tp, err := telemetry.NewTracerProvider(a.cfg.Tracing.ServiceName, a.cfg.Tracing.Enabled, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tp.Shutdown(ctx); err != nil {
					a.logger.Warn("unable to flush traces", slog.String("error", err.Error()))
				}
			}()

			srv, err := dashboard.New(a.cfg, store, forecaster.NewProcedure(nil),
				dashboard.WithLogger(a.logger),
				dashboard.WithMetrics(telemetry.NewMetrics()),
				dashboard.WithTracer(tp.Tracer()),
			)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "listen port, overrides the config")
	return cmd
}
