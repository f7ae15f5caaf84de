package dashboard

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/aouyang1/go-demand-forecaster/internal/config"
	"github.com/aouyang1/go-demand-forecaster/internal/session"
	"github.com/aouyang1/go-demand-forecaster/preparer"
	"github.com/aouyang1/go-demand-forecaster/record"
)

type meanModel struct {
	mean float64
}

func (m meanModel) Predict(t []time.Time) (preparer.Prediction, error) {
	pred := preparer.Prediction{
		Yhat:  make([]float64, len(t)),
		Lower: make([]float64, len(t)),
		Upper: make([]float64, len(t)),
	}
	for i := range t {
		pred.Yhat[i] = m.mean
		pred.Lower[i] = m.mean - 1
		pred.Upper[i] = m.mean + 1
	}
	return pred, nil
}

// meanProcedure forecasts the training mean with a unit band
type meanProcedure struct{}

func (meanProcedure) Fit(ctx context.Context, t []time.Time, y []float64, cfg preparer.FitConfig) (preparer.Model, error) {
	var sum float64
	for _, v := range y {
		sum += v
	}
	return meanModel{mean: sum / float64(len(y))}, nil
}

type slowProcedure struct{}

func (slowProcedure) Fit(ctx context.Context, t []time.Time, y []float64, cfg preparer.FitConfig) (preparer.Model, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

type failingProcedure struct{}

func (failingProcedure) Fit(ctx context.Context, t []time.Time, y []float64, cfg preparer.FitConfig) (preparer.Model, error) {
	return nil, errors.New("singular matrix at column 3")
}

func day(d int) time.Time {
	return time.Date(2016, 1, d, 0, 0, 0, 0, time.UTC)
}

func testStore() *record.Store {
	var recs []record.DemandRecord
	for d := 1; d <= 10; d++ {
		recs = append(recs, record.DemandRecord{WarehouseID: "Whse_A", ProductCode: "P1", ProductCategory: "C1", Date: day(d), OrderDemand: 5})
	}
	recs = append(recs,
		record.DemandRecord{WarehouseID: "Whse_A", ProductCode: "P2", ProductCategory: "C1", Date: day(3), OrderDemand: 7},
		record.DemandRecord{WarehouseID: "Whse_B", ProductCode: "P3", ProductCategory: "C2", Date: day(2), OrderDemand: 1},
		record.DemandRecord{WarehouseID: "Whse_B", ProductCode: "P3", ProductCategory: "C2", Date: day(4), OrderDemand: 2},
	)
	return record.NewStore(recs)
}

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.RateLimit.Enabled = false
	return cfg
}

func newTestServer(t *testing.T, cfg *config.Config, proc preparer.Procedure, opts ...Option) *Server {
	t.Helper()
	s, err := New(cfg, testStore(), proc, opts...)
	require.Nil(t, err)
	return s
}

func get(t *testing.T, h http.Handler, target string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestNew(t *testing.T) {
	_, err := New(testConfig(), testStore(), nil)
	assert.ErrorIs(t, err, ErrNoProcedure)

	cfg := testConfig()
	cfg.Forecast.Frequency = "hourly"
	_, err = New(cfg, testStore(), meanProcedure{})
	assert.Error(t, err)

	s, err := New(nil, testStore(), meanProcedure{})
	require.Nil(t, err)
	assert.NotNil(t, s.limiter)
}

func TestHealthAndMetrics(t *testing.T) {
	h := newTestServer(t, testConfig(), meanProcedure{}).Router()

	rec := get(t, h, "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decode[HealthResponse](t, rec).Status)

	get(t, h, "/api/warehouses")
	rec = get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `demandcast_http_requests_total{code="200",route="/api/warehouses"} 1`)
	assert.Contains(t, rec.Body.String(), "demandcast_records_loaded 13")
}

func TestWarehousesAndProducts(t *testing.T) {
	h := newTestServer(t, testConfig(), meanProcedure{}).Router()

	rec := get(t, h, "/api/warehouses")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Whse_A", "Whse_B"}, decode[WarehousesResponse](t, rec).Warehouses)
	assert.Empty(t, rec.Result().Cookies())

	rec = get(t, h, "/api/warehouses/Whse_A/products")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, ProductsResponse{Warehouse: "Whse_A", Products: []string{"P1", "P2"}}, decode[ProductsResponse](t, rec))

	rec = get(t, h, "/api/warehouses/Whse_Z/products")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, http.StatusNotFound, decode[Problem](t, rec).Status)
}

func TestSeries(t *testing.T) {
	h := newTestServer(t, testConfig(), meanProcedure{}).Router()

	testData := map[string]struct {
		query  string
		status int
		points int
		fields []string
	}{
		"daily":                   {query: "warehouse=Whse_A&product=P1&frequency=Daily", status: http.StatusOK, points: 10},
		"default frequency":       {query: "warehouse=Whse_A&product=P1", status: http.StatusOK, points: 10},
		"weekly code":             {query: "warehouse=Whse_A&product=P1&frequency=W-SUN", status: http.StatusOK, points: 2},
		"product elsewhere":       {query: "warehouse=Whse_A&product=P3&frequency=Daily", status: http.StatusOK, points: 0},
		"unknown product":         {query: "warehouse=Whse_A&product=P9&frequency=Daily", status: http.StatusNotFound},
		"unknown warehouse":       {query: "warehouse=Whse_Z&product=P1&frequency=Daily", status: http.StatusNotFound},
		"unknown frequency":       {query: "warehouse=Whse_A&product=P1&frequency=hourly", status: http.StatusBadRequest, fields: []string{"frequency"}},
		"missing product":         {query: "warehouse=Whse_A&frequency=Daily", status: http.StatusBadRequest, fields: []string{"product"}},
		"missing every selection": {query: "frequency=Daily", status: http.StatusBadRequest, fields: []string{"warehouse", "product"}},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rec := get(t, h, "/api/series?"+td.query)
			require.Equal(t, td.status, rec.Code, rec.Body.String())
			if td.status != http.StatusOK {
				p := decode[Problem](t, rec)
				var fields []string
				for _, fe := range p.Errors {
					fields = append(fields, fe.Field)
				}
				assert.Equal(t, td.fields, fields)
				return
			}
			var body struct {
				Points []struct {
					Demand float64 `json:"demand"`
				} `json:"points"`
			}
			require.Nil(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Len(t, body.Points, td.points)
		})
	}
}

func TestForecast(t *testing.T) {
	h := newTestServer(t, testConfig(), meanProcedure{}).Router()

	rec := get(t, h, "/api/forecast?warehouse=Whse_A&product=P1&frequency=Daily&confidence=0.9&periods=5")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[ForecastResponse](t, rec)
	assert.Equal(t, 0.9, resp.Confidence)
	assert.Equal(t, 5, resp.Periods)
	require.Len(t, resp.Forecast, 15)
	require.Len(t, resp.Future, 5)
	assert.Equal(t, day(11), resp.Future[0].Date)
	assert.Equal(t, day(15), resp.Future[4].Date)
	for i, row := range resp.Forecast {
		assert.InDelta(t, 5.0, row.Yhat, 1e-9)
		assert.InDelta(t, 4.0, row.YhatLower, 1e-9)
		assert.InDelta(t, 6.0, row.YhatUpper, 1e-9)
		if i > 0 {
			assert.True(t, row.Date.After(resp.Forecast[i-1].Date))
		}
	}
	assert.Equal(t, 10, resp.Series.Len())
}

func TestForecastErrors(t *testing.T) {
	fast := testConfig()
	slow := testConfig()
	slow.Forecast.Timeout = 20 * time.Millisecond

	testData := map[string]struct {
		cfg    *config.Config
		proc   preparer.Procedure
		query  string
		status int
		detail string
	}{
		"single point": {
			cfg: fast, proc: meanProcedure{},
			query:  "warehouse=Whse_A&product=P2&frequency=Daily",
			status: http.StatusUnprocessableEntity,
			detail: "insufficient data",
		},
		"empty intersection": {
			cfg: fast, proc: meanProcedure{},
			query:  "warehouse=Whse_B&product=P1&frequency=Daily",
			status: http.StatusUnprocessableEntity,
		},
		"confidence out of range": {
			cfg: fast, proc: meanProcedure{},
			query:  "warehouse=Whse_A&product=P1&confidence=1.5",
			status: http.StatusBadRequest,
		},
		"confidence not a number": {
			cfg: fast, proc: meanProcedure{},
			query:  "warehouse=Whse_A&product=P1&confidence=high",
			status: http.StatusBadRequest,
			detail: "confidence",
		},
		"zero periods": {
			cfg: fast, proc: meanProcedure{},
			query:  "warehouse=Whse_A&product=P1&periods=0",
			status: http.StatusBadRequest,
		},
		"fit failure": {
			cfg: fast, proc: failingProcedure{},
			query:  "warehouse=Whse_A&product=P1",
			status: http.StatusInternalServerError,
			detail: "forecast fit failed",
		},
		"timeout": {
			cfg: slow, proc: slowProcedure{},
			query:  "warehouse=Whse_A&product=P1",
			status: http.StatusGatewayTimeout,
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			h := newTestServer(t, td.cfg, td.proc).Router()
			rec := get(t, h, "/api/forecast?"+td.query)
			require.Equal(t, td.status, rec.Code, rec.Body.String())
			p := decode[Problem](t, rec)
			assert.Equal(t, td.status, p.Status)
			assert.Equal(t, "/api/forecast", p.Instance)
			assert.NotEmpty(t, p.RequestID)
			assert.Contains(t, p.Detail, td.detail)
			assert.NotContains(t, p.Detail, "singular")
		})
	}
}

func TestForecastRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.RateLimit = config.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1}
	s := newTestServer(t, cfg, meanProcedure{})
	h := s.Router()

	target := "/api/forecast?warehouse=Whse_A&product=P1"
	assert.Equal(t, http.StatusOK, get(t, h, target).Code)

	rec := get(t, h, target)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))

	// series requests are never limited
	assert.Equal(t, http.StatusOK, get(t, h, "/api/series?warehouse=Whse_A&product=P1").Code)

	rec = get(t, h, "/?warehouse=Whse_A&product=P1&mode=forecast")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestIndex(t *testing.T) {
	h := newTestServer(t, testConfig(), meanProcedure{}).Router()

	testData := map[string]struct {
		query    string
		status   int
		contains []string
	}{
		"form only": {
			query:    "",
			status:   http.StatusOK,
			contains: []string{"<form", `<option value="Whse_A">`, `<option value="Daily" selected>`},
		},
		"products of selected warehouse": {
			query:    "warehouse=Whse_B",
			status:   http.StatusOK,
			contains: []string{`<option value="Whse_B" selected>`, `<option value="P3">`},
		},
		"view": {
			query:    "warehouse=Whse_A&product=P1&frequency=Weekly",
			status:   http.StatusOK,
			contains: []string{"Demand for P1 at Whse_A", "Weekly demand"},
		},
		"empty view": {
			query:    "warehouse=Whse_A&product=P3",
			status:   http.StatusOK,
			contains: []string{"No demand recorded"},
		},
		"forecast": {
			query:    "warehouse=Whse_A&product=P1&mode=forecast&confidence=0.95&periods=3",
			status:   http.StatusOK,
			contains: []string{"Daily forecast with 95% interval", "2016-01-13"},
		},
		"unknown mode": {
			query:  "warehouse=Whse_A&product=P1&mode=table",
			status: http.StatusBadRequest,
		},
		"insufficient data": {
			query:    "warehouse=Whse_A&product=P2&mode=forecast",
			status:   http.StatusUnprocessableEntity,
			contains: []string{"insufficient data"},
		},
	}

	for name, td := range testData {
		t.Run(name, func(t *testing.T) {
			rec := get(t, h, "/?"+td.query)
			require.Equal(t, td.status, rec.Code, rec.Body.String())
			for _, c := range td.contains {
				assert.Contains(t, rec.Body.String(), c)
			}
		})
	}
}

func TestSessionReuse(t *testing.T) {
	s := newTestServer(t, testConfig(), meanProcedure{})
	h := s.Router()

	rec := get(t, h, "/api/series?warehouse=Whse_A&product=P1")
	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, session.CookieName, cookies[0].Name)

	for _, target := range []string{"/api/warehouses", "/api/series?warehouse=Whse_A&product=P1"} {
		req := httptest.NewRequest(http.MethodGet, target, nil)
		req.AddCookie(cookies[0])
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, target)
		assert.Empty(t, rec.Result().Cookies())
	}
	assert.Equal(t, 1, s.sessions.Len())
}

func TestSessionsCreatedOnSelection(t *testing.T) {
	s := newTestServer(t, testConfig(), meanProcedure{})
	h := s.Router()

	// health checks, metric scrapes and catalog reads never take a session slot
	for _, target := range []string{"/healthz", "/metrics", "/", "/api/warehouses", "/api/warehouses/Whse_A/products"} {
		for i := 0; i < 5; i++ {
			rec := get(t, h, target)
			require.Equal(t, http.StatusOK, rec.Code, target)
			assert.Empty(t, rec.Result().Cookies(), target)
		}
	}
	assert.Equal(t, 0, s.sessions.Len())

	rec := get(t, h, "/?warehouse=Whse_A&product=P1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, rec.Result().Cookies(), 1)
	assert.Equal(t, 1, s.sessions.Len())
}

func TestTracing(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer tp.Shutdown(context.Background())

	h := newTestServer(t, testConfig(), meanProcedure{}, WithTracer(tp.Tracer("test"))).Router()
	require.Equal(t, http.StatusOK, get(t, h, "/api/forecast?warehouse=Whse_A&product=P1").Code)

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	assert.Equal(t, []string{"aggregate", "forecast", "http GET /api/forecast"}, names)
}

func TestInjectForm(t *testing.T) {
	page := []byte("<html><body><div></div></body></html>")
	out := injectForm(page, []byte("<form></form>"))
	assert.Equal(t, "<html><body><form></form><div></div></body></html>", string(out))

	out = injectForm([]byte("<div></div>"), []byte("<form></form>"))
	assert.True(t, strings.HasPrefix(string(out), "<form>"))
}
