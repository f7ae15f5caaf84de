package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/aouyang1/go-demand-forecaster/internal/session"
	"github.com/aouyang1/go-demand-forecaster/internal/telemetry"
	"github.com/aouyang1/go-demand-forecaster/preparer"
	"github.com/aouyang1/go-demand-forecaster/record"
	"github.com/aouyang1/go-demand-forecaster/series"
)

type HealthResponse struct {
	Status   string `json:"status"`
	Sessions int    `json:"sessions"`
}

type WarehousesResponse struct {
	Warehouses []string `json:"warehouses"`
}

type ProductsResponse struct {
	Warehouse string   `json:"warehouse"`
	Products  []string `json:"products"`
}

type ForecastResponse struct {
	Series     series.Series   `json:"series"`
	Confidence float64         `json:"confidence"`
	Periods    int             `json:"periods"`
	Forecast   preparer.Output `json:"forecast"`
	Future     preparer.Output `json:"future"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, HealthResponse{Status: "ok", Sessions: s.sessions.Len()})
}

func (s *Server) store(r *http.Request) (*record.Store, error) {
	sess, ok := session.FromContext(r.Context())
	if !ok {
		return nil, ErrNoSession
	}
	return sess.Store, nil
}

// catalog returns the visitor's records when a session exists and the shared base records
// otherwise. Listing routes use it so they never create a session.
func (s *Server) catalog(r *http.Request) *record.Store {
	if sess, ok := session.Peek(r.Context()); ok {
		return sess.Store
	}
	return s.sessions.Base()
}

func (s *Server) warehouses(w http.ResponseWriter, r *http.Request) {
	store := s.catalog(r)
	render.JSON(w, r, WarehousesResponse{Warehouses: store.Warehouses()})
}

func (s *Server) products(w http.ResponseWriter, r *http.Request) {
	store := s.catalog(r)
	warehouse := chi.URLParam(r, "warehouse")
	if !store.HasWarehouse(warehouse) {
		s.fail(w, r, fmt.Errorf("%q, %w", warehouse, ErrUnknownWarehouse))
		return
	}
	render.JSON(w, r, ProductsResponse{Warehouse: warehouse, Products: store.Products(warehouse)})
}

// aggregate validates a selection against the session records and builds its series. A
// product carried only by other warehouses gives an empty series.
func (s *Server) aggregate(ctx context.Context, store *record.Store, sel Selection) (series.Series, error) {
	_, span := s.tracer.Start(ctx, "aggregate")
	defer span.End()
	span.SetAttributes(
		attribute.String("warehouse", sel.Warehouse),
		attribute.String("product", sel.Product),
		attribute.String("frequency", sel.Frequency),
	)

	if !store.HasWarehouse(sel.Warehouse) {
		return series.Series{}, fmt.Errorf("%q, %w", sel.Warehouse, ErrUnknownWarehouse)
	}
	if !store.KnownProduct(sel.Product) {
		return series.Series{}, fmt.Errorf("%q, %w", sel.Product, ErrUnknownProduct)
	}
	ser := series.Aggregate(store.View(), sel.Warehouse, sel.Product, sel.Freq())
	span.SetAttributes(attribute.Int("points", ser.Len()))
	return ser, nil
}

func (s *Server) series(w http.ResponseWriter, r *http.Request) {
	store, err := s.store(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	sel := parseSelection(r.URL.Query(), s.defaults)
	if err := s.validate.Struct(sel); err != nil {
		s.fail(w, r, err)
		return
	}
	ser, err := s.aggregate(r.Context(), store, sel)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, ser)
}

// runForecast forecasts a validated query and records its outcome
func (s *Server) runForecast(ctx context.Context, store *record.Store, fq ForecastQuery) (series.Series, preparer.Output, error) {
	ser, err := s.aggregate(ctx, store, fq.Selection)
	if err != nil {
		return ser, nil, err
	}

	ctx, span := s.tracer.Start(ctx, "forecast")
	defer span.End()
	span.SetAttributes(
		attribute.Float64("confidence", fq.Confidence),
		attribute.Int("periods", fq.Periods),
	)

	start := time.Now()
	out, err := s.preparer.Forecast(ctx, ser, fq.Confidence, fq.Periods, fq.Freq())
	s.metrics.ObserveForecast(fq.Freq().String(), outcome(err), time.Since(start))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return ser, nil, err
	}
	span.SetAttributes(attribute.Int("rows", len(out)))
	return ser, out, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return telemetry.OutcomeOK
	case errors.Is(err, preparer.ErrInvalidArgument):
		return telemetry.OutcomeInvalid
	case errors.Is(err, preparer.ErrInsufficientData):
		return telemetry.OutcomeInsufficientData
	case errors.Is(err, context.DeadlineExceeded):
		return telemetry.OutcomeTimeout
	default:
		return telemetry.OutcomeFitError
	}
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) {
	store, err := s.store(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	fq, err := parseForecastQuery(r.URL.Query(), s.defaults)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.validate.Struct(fq); err != nil {
		s.fail(w, r, err)
		return
	}

	ser, out, err := s.runForecast(r.Context(), store, fq)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, ForecastResponse{
		Series:     ser,
		Confidence: fq.Confidence,
		Periods:    fq.Periods,
		Forecast:   out,
		Future:     out.Future(fq.Periods),
	})
}
