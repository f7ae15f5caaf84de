// Package dashboard serves the demand dashboard: an html page with the selection form and
// chart, plus a json api over the same view and forecast operations.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/time/rate"

	"github.com/aouyang1/go-demand-forecaster/internal/config"
	"github.com/aouyang1/go-demand-forecaster/internal/session"
	"github.com/aouyang1/go-demand-forecaster/internal/telemetry"
	"github.com/aouyang1/go-demand-forecaster/preparer"
	"github.com/aouyang1/go-demand-forecaster/record"
	"github.com/aouyang1/go-demand-forecaster/series"
)

var ErrNoProcedure = errors.New("no forecasting procedure")

// Server wires the session store, forecast preparer and telemetry behind a chi router
type Server struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	sessions *session.Manager
	preparer *preparer.Preparer
	limiter  *rate.Limiter
	validate *validator.Validate
	defaults defaults
}

type Option func(*Server)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Server) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Server) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New builds a server over the loaded records. Every visitor works on its own clone of
// store.
func New(cfg *config.Config, store *record.Store, proc preparer.Procedure, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if proc == nil {
		return nil, ErrNoProcedure
	}
	if _, err := series.ParseFrequency(cfg.Forecast.Frequency); err != nil {
		return nil, fmt.Errorf("unable to use default frequency, %w", err)
	}

	s := &Server{
		cfg:      cfg,
		logger:   telemetry.Discard(),
		metrics:  telemetry.NewMetrics(),
		tracer:   noop.NewTracerProvider().Tracer(telemetry.TracerName),
		validate: newValidator(),
		defaults: defaults{
			frequency:  cfg.Forecast.Frequency,
			confidence: cfg.Forecast.Confidence,
			periods:    cfg.Forecast.Periods,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("component", "dashboard"))

	s.sessions = session.NewManager(store, cfg.Session.Size, cfg.Session.TTL)
	s.sessions.OnEvict = func(id string) {
		s.logger.Debug("session evicted", slog.String("session", id))
	}
	s.preparer = preparer.New(proc,
		preparer.WithTimeout(cfg.Forecast.Timeout),
		preparer.WithRegion(cfg.Forecast.Region),
		preparer.WithParallelism(cfg.Forecast.Parallelism),
	)
	if cfg.RateLimit.Enabled {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit.RPS), cfg.RateLimit.Burst)
	}
	s.metrics.RecordsLoaded.Set(float64(store.Len()))
	return s, nil
}

// Router returns the http handler of the dashboard
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.observe)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.healthz)
	r.Method(http.MethodGet, "/metrics", s.metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)
		r.Get("/", s.index)

		r.Route("/api", func(r chi.Router) {
			r.Use(render.SetContentType(render.ContentTypeJSON))
			r.Get("/warehouses", s.warehouses)
			r.Get("/warehouses/{warehouse}/products", s.products)
			r.Get("/series", s.series)
			r.With(s.rateLimit).Get("/forecast", s.forecast)
		})
	})
	return r
}

// observe traces, times and counts every request
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := s.tracer.Start(r.Context(), "http "+r.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
			),
		)
		defer span.End()

		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r.WithContext(ctx))

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		span.SetName("http " + r.Method + " " + route)
		span.SetAttributes(attribute.Int("http.status_code", status))

		elapsed := time.Since(start)
		s.metrics.ObserveRequest(route, fmt.Sprint(status), elapsed)
		s.metrics.ActiveSessions.Set(float64(s.sessions.Len()))
		s.logger.LogAttrs(ctx, slog.LevelDebug, "request served",
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("elapsed", elapsed),
		)
	})
}

// allow reports whether a forecast may run now
func (s *Server) allow() bool {
	if s.limiter == nil || s.limiter.Allow() {
		return true
	}
	s.metrics.RateLimited.Inc()
	return false
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.allow() {
			s.fail(w, r, ErrRateLimited)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Serve listens on the configured address until ctx is canceled, then drains in-flight
// requests within the shutdown timeout
func (s *Server) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.cfg.Server.Addr(),
		Handler:      s.Router(),
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("dashboard listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("unable to serve dashboard, %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.Server.ShutdownTimeout)
	defer cancel()
	s.logger.Info("dashboard shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("unable to shut down dashboard, %w", err)
	}
	s.sessions.Purge()
	return nil
}
