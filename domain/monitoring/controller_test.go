package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/akeren/sheet-waitlist/config/router"
	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func healthOf(t *testing.T, backend Backend, cache Cache) HealthStatus {
	t.Helper()
	t.Setenv("METRICS_ENABLED", "false")

	rs := router.CreateRouterService(log.NewLoggerWithJSONOutput(), nil, &router.RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewMonitoringControllerFactory("rest", backend, cache).CreateController())

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Data HealthStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return body.Data
}

func TestHealthCheck_ReportsBackendAndCache(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })

	status := healthOf(t, ok, ok)

	assert.Equal(t, "rest", status.Backend)
	assert.Equal(t, 1, status.Waitlist)
	assert.Equal(t, 1, status.Cache)
}

func TestHealthCheck_UnhealthyBackend(t *testing.T) {
	down := pingFunc(func(context.Context) error { return errors.New("circuit breaker is open") })

	status := healthOf(t, down, nil)

	assert.Equal(t, 0, status.Waitlist)
	assert.Equal(t, 0, status.Cache)
}
