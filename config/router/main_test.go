package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/pkg/ratelimit"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type envelope struct {
	Code    int             `json:"code"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func newTestRouterService(t *testing.T, env map[string]string) *RouterService {
	t.Helper()

	defaults := map[string]string{
		"METRICS_ENABLED":        "false",
		"TRUSTED_PROXIES":        "",
		"CORS_ALLOWED_ORIGIN":    "",
		"MAX_REQUEST_BODY_BYTES": "",
		"HSTS_ENABLED":           "",
		"APP_ENV":                "",
	}
	for key, value := range env {
		defaults[key] = value
	}
	for key, value := range defaults {
		t.Setenv(key, value)
	}

	rs := CreateRouterService(log.NewLoggerWithJSONOutput(), nil, &RouterConfig{
		RateLimitRequests: 1000,
		RateLimitWindow:   time.Minute,
		RequestTimeout:    5 * time.Second,
	})
	rs.MountController(NewRESTController("TestController", "/", func(rs *RouterService, c *RESTController) {
		rs.AddGetHandler(c, nil, "ip", func(ctx *RequestContext) *ServiceResult {
			return OKResult(ctx.ClientIP(), "ok")
		})
		rs.AddPostHandler(c, nil, "echo", func(ctx *RequestContext) *ServiceResult {
			var payload map[string]any
			if err := ctx.ShouldBindJSON(&payload); err != nil {
				return BadRequestResult("bad", nil)
			}
			return CreatedResult(payload, "created")
		})
		rs.AddGetHandler(c, nil, "broken", func(*RequestContext) *ServiceResult { return nil })
	}))
	return rs
}

func serve(rs *RouterService, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, req)

	var body envelope
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return w, body
}

func clientIPWith(t *testing.T, trustedProxies string) string {
	t.Helper()

	rs := newTestRouterService(t, map[string]string{"TRUSTED_PROXIES": trustedProxies})
	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.RemoteAddr = "10.0.0.2:1234"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")

	w, body := serve(rs, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var ip string
	require.NoError(t, json.Unmarshal(body.Data, &ip))
	return ip
}

func TestTrustedProxies(t *testing.T) {
	assert.Equal(t, "10.0.0.2", clientIPWith(t, ""), "forwarded headers ignored without trusted proxies")
	assert.Equal(t, "1.1.1.1", clientIPWith(t, "*"))
	assert.Equal(t, "1.1.1.1", clientIPWith(t, "10.0.0.0/8, 192.168.0.0/16"))
}

func TestMaxBodySize_Returns413(t *testing.T) {
	rs := newTestRouterService(t, map[string]string{"MAX_REQUEST_BODY_BYTES": "10"})

	req := httptest.NewRequest(http.MethodPost, "/echo", bytes.NewReader(bytes.Repeat([]byte{'a'}, 50)))
	req.Header.Set("Content-Type", "application/json")

	w, body := serve(rs, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Equal(t, "Request payload too large", body.Message)
}

func TestSecurityHeaders(t *testing.T) {
	rs := newTestRouterService(t, map[string]string{"APP_ENV": "production"})

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	w, _ := serve(rs, req)

	assert.Equal(t, "nosniff", w.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))
	assert.Empty(t, w.Header().Get("Strict-Transport-Security"), "plain http gets no HSTS")

	req = httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Forwarded-Proto", "https")
	w, _ = serve(rs, req)
	assert.Equal(t, hstsValue, w.Header().Get("Strict-Transport-Security"))
}

func TestCORS_PreflightFromAllowedOrigin(t *testing.T) {
	rs := newTestRouterService(t, map[string]string{"CORS_ALLOWED_ORIGIN": "https://landing.example, https://www.landing.example"})

	req := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	req.Header.Set("Origin", "https://www.landing.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	w, _ := serve(rs, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://www.landing.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "POST, OPTIONS", w.Header().Get("Access-Control-Allow-Methods"))
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))
}

func TestCORS_DisallowedOrigin(t *testing.T) {
	rs := newTestRouterService(t, map[string]string{"CORS_ALLOWED_ORIGIN": "https://landing.example"})

	preflight := httptest.NewRequest(http.MethodOptions, "/echo", nil)
	preflight.Header.Set("Origin", "https://evil.example")
	w, _ := serve(rs, preflight)
	assert.Equal(t, http.StatusForbidden, w.Code)

	post := httptest.NewRequest(http.MethodPost, "/echo", strings.NewReader(`{}`))
	post.Header.Set("Content-Type", "application/json")
	post.Header.Set("Origin", "https://evil.example")
	w, _ = serve(rs, post)
	assert.Equal(t, http.StatusCreated, w.Code, "the browser enforces CORS on the response")
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestRateLimit_PerRouteLimiter(t *testing.T) {
	rs := newTestRouterService(t, nil)
	rs.MountController(NewRESTController("Limited", "limited", func(rs *RouterService, c *RESTController) {
		rs.AddPostHandler(c, ratelimit.NewInMemoryRateLimiter(1, time.Minute), "", func(*RequestContext) *ServiceResult {
			return OKResult(nil, "ok")
		})
	}))

	w, _ := serve(rs, httptest.NewRequest(http.MethodPost, "/limited", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "1", w.Header().Get("X-RateLimit-Limit"))

	w, body := serve(rs, httptest.NewRequest(http.MethodPost, "/limited", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
	assert.Equal(t, "Too Many Requests", body.Message)

	w, _ = serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	assert.Equal(t, http.StatusOK, w.Code, "other routes keep the default budget")
}

func TestNilResultIsInternalError(t *testing.T) {
	rs := newTestRouterService(t, nil)

	w, body := serve(rs, httptest.NewRequest(http.MethodGet, "/broken", nil))

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, http.StatusInternalServerError, body.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	rs := newTestRouterService(t, nil)

	w, body := serve(rs, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Route not found", body.Message)

	w, _ = serve(rs, httptest.NewRequest(http.MethodDelete, "/echo", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestCorrelationIDEchoed(t *testing.T) {
	rs := newTestRouterService(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ip", nil)
	req.Header.Set("X-Correlation-ID", "signup-42")
	w, _ := serve(rs, req)
	assert.Equal(t, "signup-42", w.Header().Get("X-Correlation-ID"))

	w, _ = serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))
	assert.NotEmpty(t, w.Header().Get("X-Correlation-ID"))
}

func TestMetrics_RegistererSharedWithEndpoint(t *testing.T) {
	rs := newTestRouterService(t, map[string]string{"METRICS_ENABLED": "true"})
	reg := rs.MetricsRegisterer()
	require.NotNil(t, reg)

	counter := prometheus.NewCounter(prometheus.CounterOpts{Name: "router_test_total", Help: "test"})
	reg.MustRegister(counter)
	counter.Inc()

	serve(rs, httptest.NewRequest(http.MethodGet, "/ip", nil))

	w := httptest.NewRecorder()
	rs.GetEngine().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Contains(t, w.Body.String(), "router_test_total 1")
	assert.Contains(t, w.Body.String(), `sheet_waitlist_http_requests_total{method="GET",route="/ip",status="200"} 1`)
}

func TestMetrics_DisabledHasNoRegisterer(t *testing.T) {
	rs := newTestRouterService(t, nil)
	assert.Nil(t, rs.MetricsRegisterer())
}

func TestCreatedResult(t *testing.T) {
	result := CreatedResult(map[string]string{"email": "a@b.io"}, "Thanks for joining the waitlist!")

	assert.Equal(t, http.StatusCreated, result.StatusCode)
	assert.Equal(t, "Thanks for joining the waitlist!", result.Message)
}
