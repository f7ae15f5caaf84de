package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "demandcast"

// Forecast outcomes recorded by ObserveForecast
const (
	OutcomeOK               = "ok"
	OutcomeInsufficientData = "insufficient_data"
	OutcomeFitError         = "fit_error"
	OutcomeTimeout          = "timeout"
	OutcomeInvalid          = "invalid"
)

// Metrics holds the dashboard collectors on a private registry so multiple servers, as in
// tests, never collide on registration.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequests     *prometheus.CounterVec
	HTTPDuration     *prometheus.HistogramVec
	Forecasts        *prometheus.CounterVec
	ForecastDuration prometheus.Histogram
	RateLimited      prometheus.Counter
	ActiveSessions   prometheus.Gauge
	RecordsLoaded    prometheus.Gauge
}

func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code",
		}, []string{"route", "code"}),
		HTTPDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		Forecasts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "forecasts_total",
			Help:      "Forecast requests by outcome",
		}, []string{"frequency", "outcome"}),
		ForecastDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "forecast_duration_seconds",
			Help:      "Time spent fitting and predicting a forecast",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 12),
		}),
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limited_total",
			Help:      "Forecast requests rejected by the rate limiter",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_sessions",
			Help:      "Sessions currently holding a data handle",
		}),
		RecordsLoaded: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "records_loaded",
			Help:      "Consolidated demand records in the loaded dataset",
		}),
	}
}

// ObserveRequest records one served request
func (m *Metrics) ObserveRequest(route, code string, elapsed time.Duration) {
	m.HTTPRequests.WithLabelValues(route, code).Inc()
	m.HTTPDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// ObserveForecast records the outcome of one forecast
func (m *Metrics) ObserveForecast(frequency, outcome string, elapsed time.Duration) {
	m.Forecasts.WithLabelValues(frequency, outcome).Inc()
	m.ForecastDuration.Observe(elapsed.Seconds())
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
