package telemetry

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	ctx := context.Background()

	assert.NotPanics(t, func() {
		m.Upstream(ctx, "issues.list", OutcomeOK)
		m.CacheLookup(ctx, CacheHit)
		m.Refresh(ctx, "blog", time.Second, errors.New("boom"))
	})
}

func TestMiddlewarePassesThrough(t *testing.T) {
	m := Default("telemetry-test")

	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestSetupServesMetrics(t *testing.T) {
	exporter, err := Setup()
	if err != nil {
		t.Fatalf("setup: %v", err)
	}

	m := Default("telemetry-test")
	m.CacheLookup(context.Background(), CacheMiss)

	rec := httptest.NewRecorder()
	exporter.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
