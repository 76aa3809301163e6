package telemetry

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/global"
	export "go.opentelemetry.io/otel/sdk/export/metric"
	"go.opentelemetry.io/otel/sdk/metric/aggregator/histogram"
	controller "go.opentelemetry.io/otel/sdk/metric/controller/basic"
	processor "go.opentelemetry.io/otel/sdk/metric/processor/basic"
	selector "go.opentelemetry.io/otel/sdk/metric/selector/simple"
)

// Outcomes recorded for upstream calls and cache lookups.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeRetry = "retry"

	CacheHit    = "hit"
	CacheMiss   = "miss"
	CacheShared = "shared"
	CacheStored = "stored"
)

// Setup installs a Prometheus-backed meter provider as the global one and
// returns the exporter, which doubles as the /metrics handler.
func Setup() (*prometheus.Exporter, error) {
	config := prometheus.Config{}
	c := controller.New(
		processor.New(
			selector.NewWithHistogramDistribution(
				histogram.WithExplicitBoundaries(config.DefaultHistogramBoundaries),
			),
			export.CumulativeExportKindSelector(),
			processor.WithMemory(true),
		),
	)
	exporter, err := prometheus.New(config, c)
	if err != nil {
		return nil, err
	}
	global.SetMeterProvider(exporter.MeterProvider())

	return exporter, nil
}

// Metrics groups the instruments of the service. A nil *Metrics records
// nothing.
type Metrics struct {
	upstream  metric.Int64Counter
	lookups   metric.Int64Counter
	refresh   metric.Float64ValueRecorder
	completed metric.Int64Counter
}

func NewMetrics(meter metric.Meter) *Metrics {
	must := metric.Must(meter)

	return &Metrics{
		upstream: must.NewInt64Counter(
			"issueblog/upstream/requests",
			metric.WithDescription("Calls to the issue tracker API, by endpoint and outcome"),
		),
		lookups: must.NewInt64Counter(
			"issueblog/cache/lookups",
			metric.WithDescription("Snapshot cache lookups, by result"),
		),
		refresh: must.NewFloat64ValueRecorder(
			"issueblog/cache/refresh_ms",
			metric.WithDescription("Duration of full snapshot refreshes in milliseconds"),
		),
		completed: must.NewInt64Counter(
			"http/server/completed_count",
			metric.WithDescription("Count of completed requests, by HTTP method and response status"),
		),
	}
}

// Default builds Metrics on the global meter provider.
func Default(name string) *Metrics {
	return NewMetrics(global.Meter(name))
}

func (m *Metrics) Upstream(ctx context.Context, endpoint, outcome string) {
	if m == nil {
		return
	}
	m.upstream.Add(ctx, 1,
		attribute.String("endpoint", endpoint),
		attribute.String("outcome", outcome),
	)
}

func (m *Metrics) CacheLookup(ctx context.Context, result string) {
	if m == nil {
		return
	}
	m.lookups.Add(ctx, 1, attribute.String("result", result))
}

func (m *Metrics) Refresh(ctx context.Context, repo string, d time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.refresh.Record(ctx, float64(d)/float64(time.Millisecond),
		attribute.String("repo", repo),
		attribute.String("outcome", outcome),
	)
}

// Middleware counts completed requests by method and status.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if m == nil {
			return
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		m.completed.Add(r.Context(), 1,
			attribute.String("method", r.Method),
			attribute.String("status", strconv.Itoa(status)),
		)
	})
}
