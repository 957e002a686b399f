package router

import (
	"net/http"
	"path"
	"time"

	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	"github.com/akeren/sheet-waitlist/pkg/ratelimit"
	"github.com/gin-gonic/gin"
)

type RequestContext = gin.Context

// HandlerFunction returns the envelope to write. A nil result is a handler
// bug and is answered with a 500.
type HandlerFunction func(*RequestContext) *ServiceResult

// RESTController groups routes under a mount point. Its routes are added when
// the controller is mounted, so they can use the router's Redis and logger.
type RESTController struct {
	name       string
	mountPoint string
	routes     func(*RouterService, *RESTController)
}

func NewRESTController(name, mountPoint string, routes func(*RouterService, *RESTController)) *RESTController {
	return &RESTController{
		name:       name,
		mountPoint: path.Clean("/" + mountPoint),
		routes:     routes,
	}
}

// RateLimiter builds a limiter that shares this router's Redis when it has
// one, for routes that need a tighter budget than the default.
func (rs *RouterService) RateLimiter(requests int, window time.Duration) ratelimit.RateLimiter {
	return ratelimit.NewRateLimiter(&ratelimit.RateLimitConfig{
		Requests: requests,
		Window:   window,
		Redis:    rs.redisClient,
		Logger:   rs.logger,
	})
}

// AddPostHandler registers handler under the controller's mount point. A nil
// limiter applies the router default.
func (rs *RouterService) AddPostHandler(controller *RESTController, limiter ratelimit.RateLimiter, relativePath string, handler HandlerFunction) {
	rs.handle(http.MethodPost, controller, limiter, relativePath, handler)
}

func (rs *RouterService) AddGetHandler(controller *RESTController, limiter ratelimit.RateLimiter, relativePath string, handler HandlerFunction) {
	rs.handle(http.MethodGet, controller, limiter, relativePath, handler)
}

func (rs *RouterService) handle(method string, controller *RESTController, limiter ratelimit.RateLimiter, relativePath string, handler HandlerFunction) {
	if limiter == nil {
		limiter = rs.rateLimiter
	}

	route := path.Join(controller.mountPoint, relativePath)
	rs.engine.Handle(method, route, rs.rateLimit(method+" "+route, limiter), writeResult(handler))
	rs.logger.Debug("Route registered", "controller", controller.name, "method", method, "path", route)
}

func writeResult(handler HandlerFunction) gin.HandlerFunc {
	return func(c *gin.Context) {
		result := handler(c)
		if result == nil {
			GetLogger(c).Error("Handler returned no result", "route", c.FullPath())
			result = InternalServerErrorResult(apperrors.GenericFailureMessage)
		}
		c.JSON(result.StatusCode, result)
	}
}
