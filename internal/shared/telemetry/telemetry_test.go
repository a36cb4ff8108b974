package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

func TestInit_MetricsWithoutTraceExport(t *testing.T) {
	ctx := context.Background()

	p, err := Init(ctx, Config{ServiceName: "ledgerly-test", Environment: "test"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

	counter, err := otel.Meter("ledgerly/test").Int64Counter("telemetry.test.events")
	require.NoError(t, err)
	counter.Add(ctx, 3)

	rr := httptest.NewRecorder()
	p.MetricsHandler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "telemetry_test_events")
	assert.Contains(t, rr.Body.String(), "go_goroutines")
	assert.Contains(t, rr.Body.String(), `service_name="ledgerly-test"`)
}

func TestShutdown_Empty(t *testing.T) {
	p := &Provider{}
	assert.NoError(t, p.Shutdown(context.Background()))
}
