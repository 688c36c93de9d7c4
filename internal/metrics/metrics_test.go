package metrics_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fd1az/lendscope/internal/metrics"
)

func TestPrometheusServer_ExposesMeters(t *testing.T) {
	mp, err := metrics.NewMetricProvider(
		metrics.WithServiceName("lendscope-test"),
		metrics.WithProviderConfig(metrics.ProviderCfg{Provider: metrics.PrometheusProvider}),
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer mp.Shutdown(context.Background())

	counter, err := mp.Meter("test").Int64Counter("rpc_batches_total")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	counter.Add(context.Background(), 3)

	srv := metrics.NewPrometheusServer(metrics.WithPort("0"))
	if srv.Addr != ":0" {
		t.Errorf("unexpected addr %q", srv.Addr)
	}

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "rpc_batches_total") {
		t.Error("expected counter in prometheus output")
	}
}
