package v1_test

import (
	"context"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	v1 "pharmaerp/internal/infrastructure/http/v1"
	"pharmaerp/internal/infrastructure/http/v1/middleware"
	"pharmaerp/internal/infrastructure/telemetry"
)

func TestMetricsEndpoint(t *testing.T) {
	metrics := telemetry.NewMetrics("pharmaerp")
	e := newAPI(t, func(cfg *v1.RouterConfig) {
		cfg.Metrics = metrics
		cfg.MetricsPath = "/internal/metrics"
	})

	resp, _ := e.do(t, http.MethodGet, "/api/v1/invoices/"+e.batch.ID.String(), nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp, _ = e.do(t, http.MethodGet, "/no/such/route", nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	raw, err := http.Get(e.server.URL + "/internal/metrics")
	require.NoError(t, err)
	defer raw.Body.Close()
	body, err := io.ReadAll(raw.Body)
	require.NoError(t, err)

	text := string(body)
	assert.Contains(t, text, `pharmaerp_http_requests_total{method="GET",route="/api/v1/invoices/:id",status="404"} 1`)
	assert.Contains(t, text, `route="unmatched"`)
	assert.NotContains(t, text, "/no/such/route")
}

func TestCORSPreflight(t *testing.T) {
	e := newAPI(t, func(cfg *v1.RouterConfig) {
		cfg.CORSOrigins = []string{"https://pos.example.com"}
	})

	req, err := http.NewRequest(http.MethodOptions, e.server.URL+"/api/v1/invoices", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "https://pos.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", middleware.HeaderIdempotencyKey)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, "https://pos.example.com", resp.Header.Get("Access-Control-Allow-Origin"))

	req.Header.Set("Origin", "https://evil.example.com")
	resp2, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp2.StatusCode)
}

func TestTracingSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	previous := otel.GetTracerProvider()
	otel.SetTracerProvider(provider)
	t.Cleanup(func() {
		otel.SetTracerProvider(previous)
		_ = provider.Shutdown(context.Background())
	})

	e := newAPI(t, func(cfg *v1.RouterConfig) { cfg.Tracing = true })

	resp, _ := e.do(t, http.MethodGet, "/api/v1/invoices/"+e.batch.ID.String(), nil, middleware.HeaderRequestID, "req-42")
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	_, _ = e.do(t, http.MethodGet, "/health/live", nil)

	spans := recorder.Ended()
	require.Len(t, spans, 1, "health probes are not traced")

	span := spans[0]
	assert.Equal(t, span.SpanContext().TraceID().String(), resp.Header.Get(middleware.HeaderTraceID))

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "req-42", attrs["http.request_id"])
	assert.Equal(t, e.userID.String(), attrs["enduser.id"])
	assert.Equal(t, "true", attrs["enduser.verified"])
}
