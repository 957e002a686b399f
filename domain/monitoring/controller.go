package monitoring

import (
	"context"
	"time"

	"github.com/akeren/sheet-waitlist/config/router"
	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/pkg/constants"
)

const healthCheckTimeout = 3 * time.Second

type Cache interface {
	Ping(ctx context.Context) error
}

// Backend is the waitlist storage as seen by the health check.
type Backend interface {
	Ping(ctx context.Context) error
}

type HealthStatus struct {
	Backend  string `json:"backend"`
	Waitlist int    `json:"waitlist"` // 1 = healthy, 0 = unhealthy
	Cache    int    `json:"cache"`    // 1 = healthy, 0 = unhealthy/not configured
	Uptime   int    `json:"uptime"`   // uptime in seconds
}

type MonitoringController struct {
	backendName string
	backend     Backend
	cache       Cache
	startTime   time.Time
}

func NewMonitoringController(backendName string, backend Backend, cache Cache) *router.RESTController {
	ctrl := &MonitoringController{
		backendName: backendName,
		backend:     backend,
		cache:       cache,
		startTime:   time.Now(),
	}

	return router.NewRESTController(
		"MonitoringController",
		"/",
		func(routerService *router.RouterService, controller *router.RESTController) {
			monitoringRateLimiter := routerService.RateLimiter(constants.MonitoringRequestsPerMinute, time.Minute)

			routerService.AddGetHandler(controller, monitoringRateLimiter, "", ctrl.monitor)
			routerService.AddGetHandler(controller, monitoringRateLimiter, "health", ctrl.healthCheck)
		},
	)
}

func (ctrl *MonitoringController) healthCheck(c *router.RequestContext) *router.ServiceResult {
	logger := router.GetLogger(c)
	logger.Info("Health check endpoint called")

	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	return router.OKResult(ctrl.performHealthChecks(ctx, logger), "sheet-waitlist health check completed")
}

func (ctrl *MonitoringController) monitor(*router.RequestContext) *router.ServiceResult {
	return router.OKResult("Monitoring endpoint is operational.", "Monitoring successful")
}

func (ctrl *MonitoringController) performHealthChecks(ctx context.Context, logger *log.Logger) HealthStatus {
	status := HealthStatus{
		Backend: ctrl.backendName,
		Uptime:  int(time.Since(ctrl.startTime).Seconds()),
	}

	checkBackendConnectivity(ctx, ctrl, &status, logger)

	checkCacheConnectivity(ctx, ctrl, &status, logger)

	return status
}

func checkCacheConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.cache != nil {
		if ctrl.cache.Ping(ctx) == nil {
			status.Cache = 1
			logger.Info("Cache health check passed")
		} else {
			status.Cache = 0
			logger.Error("Cache health check failed")
		}
	} else {
		status.Cache = 0 // Cache not configured
		logger.Info("Cache not configured, cache health check skipped")
	}
}

// checkBackendConnectivity does not touch the spreadsheet itself; sheet
// backends only report whether their circuit is closed.
func checkBackendConnectivity(ctx context.Context, ctrl *MonitoringController, status *HealthStatus, logger *log.Logger) {
	if ctrl.backend == nil {
		status.Waitlist = 0
		logger.Error("Waitlist backend not configured")
		return
	}

	if err := ctrl.backend.Ping(ctx); err != nil {
		status.Waitlist = 0
		logger.Error("Waitlist backend health check failed", "backend", ctrl.backendName, "error", err)
		return
	}

	status.Waitlist = 1
	logger.Info("Waitlist backend health check passed", "backend", ctrl.backendName)
}
