package router

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/pkg/ratelimit"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const defaultPort = "8080"

type RouterConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
}

// RouterService owns the gin engine, the HTTP server and the default rate
// limiter. Controllers register their routes on it when mounted.
type RouterService struct {
	engine          *gin.Engine
	server          *http.Server
	logger          *log.Logger
	policy          httpPolicy
	requestTimeout  time.Duration
	rateLimiter     ratelimit.RateLimiter
	redisClient     *redis.Client
	metricsRegistry *prometheus.Registry
}

// CreateRouterService builds the engine and its middleware chain. A nil
// redisClient, or one that fails its ping, keeps rate limits in memory.
func CreateRouterService(logger *log.Logger, redisClient *redis.Client, routerConfig *RouterConfig) *RouterService {
	if mode := utils.Env("GIN_MODE"); mode != "" {
		gin.SetMode(mode)
	}

	rs := &RouterService{
		engine:         gin.New(),
		logger:         logger,
		policy:         loadHTTPPolicy(),
		requestTimeout: routerConfig.RequestTimeout,
		redisClient:    pingedOrNil(logger, redisClient),
	}
	rs.rateLimiter = ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: routerConfig.RateLimitRequests,
		Window:   routerConfig.RateLimitWindow,
		Redis:    rs.redisClient,
		Logger:   logger,
	})

	engine := rs.engine
	engine.Use(gin.Recovery())
	if utils.IsTracingEnabled() {
		engine.Use(otelgin.Middleware(utils.OTelServiceName()))
	}

	// ClientIP feeds the rate limit keys, so X-Forwarded-For is only honoured
	// from proxies listed in TRUSTED_PROXIES.
	if err := engine.SetTrustedProxies(rs.policy.trustedProxies); err != nil {
		logger.Error("Invalid TRUSTED_PROXIES; trusting none", "error", err)
		_ = engine.SetTrustedProxies(nil)
	}

	// /metrics is registered before the rest of the chain and skips it.
	rs.mountMetrics()

	engine.Use(
		rs.correlationIDMiddleware(),
		rs.requestLoggingMiddleware(),
		rs.securityHeadersMiddleware(),
		rs.corsMiddleware(),
		rs.maxBodySizeMiddleware(),
		rs.timeoutMiddleware(),
	)

	engine.HandleMethodNotAllowed = true
	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, NotFoundResult("Route not found"))
	})
	engine.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, ErrorResult(http.StatusMethodNotAllowed, "Method not allowed", nil))
	})

	rs.server = &http.Server{
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       routerConfig.RequestTimeout,
		WriteTimeout:      routerConfig.RequestTimeout,
		IdleTimeout:       60 * time.Second,
	}

	logger.Info("Router ready",
		"rate_limit", routerConfig.RateLimitRequests,
		"rate_window", routerConfig.RateLimitWindow.String(),
		"shared_limits", rs.redisClient != nil,
	)
	return rs
}

func pingedOrNil(logger *log.Logger, client *redis.Client) *redis.Client {
	if client == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis ping failed; rate limits stay in memory", "error", err)
		return nil
	}
	return client
}

func (rs *RouterService) GetEngine() *gin.Engine {
	return rs.engine
}

// MetricsRegisterer returns nil when metrics are disabled.
func (rs *RouterService) MetricsRegisterer() prometheus.Registerer {
	if rs.metricsRegistry == nil {
		return nil
	}
	return rs.metricsRegistry
}

func (rs *RouterService) MountController(controller *RESTController) {
	controller.routes(rs, controller)
	rs.logger.Info("Controller mounted", "name", controller.name, "path", controller.mountPoint)
}

// RunHTTPServer blocks until Shutdown. APP_PORT defaults to 8080.
func (rs *RouterService) RunHTTPServer() error {
	rs.server.Addr = ":" + utils.EnvOr("APP_PORT", defaultPort)
	rs.logger.Info("HTTP server listening", "addr", rs.server.Addr)

	if err := rs.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}

func (rs *RouterService) Shutdown(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}

// Cleanup stops the default limiter's background work.
func (rs *RouterService) Cleanup() {
	if err := rs.rateLimiter.Close(); err != nil {
		rs.logger.Error("Failed to close rate limiter", "error", err)
	}
}
