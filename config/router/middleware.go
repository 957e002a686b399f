package router

import (
	"context"
	"math"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/pkg/ratelimit"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"github.com/gin-gonic/gin"
)

const (
	// A signup is two short fields; anything near this size is not a form post.
	defaultMaxBodyBytes = 16 << 10
	hstsValue           = "max-age=31536000; includeSubDomains"
	corsMaxAgeSeconds   = "600"
)

// httpPolicy is the env-driven part of the middleware chain, read once when
// the router is built.
type httpPolicy struct {
	allowedOrigins []string
	trustedProxies []string
	maxBodyBytes   int64
	hsts           bool
}

// loadHTTPPolicy reads CORS_ALLOWED_ORIGIN, TRUSTED_PROXIES,
// MAX_REQUEST_BODY_BYTES and HSTS_ENABLED. HSTS defaults to on in production.
func loadHTTPPolicy() httpPolicy {
	appEnv := strings.ToLower(utils.Env("APP_ENV"))

	policy := httpPolicy{
		allowedOrigins: utils.EnvList("CORS_ALLOWED_ORIGIN"),
		trustedProxies: utils.EnvList("TRUSTED_PROXIES"),
		maxBodyBytes:   int64(utils.EnvPositiveInt("MAX_REQUEST_BODY_BYTES", defaultMaxBodyBytes)),
		hsts:           utils.EnvBool("HSTS_ENABLED", appEnv == "production" || appEnv == "prod"),
	}
	if slices.Equal(policy.trustedProxies, []string{"*"}) {
		policy.trustedProxies = []string{"0.0.0.0/0", "::/0"}
	}
	return policy
}

func (p httpPolicy) originAllowed(origin string) bool {
	return origin != "" && (slices.Contains(p.allowedOrigins, "*") || slices.Contains(p.allowedOrigins, origin))
}

// correlationIDMiddleware tags the request context with an ID and a logger
// carrying it, and echoes the ID back so a signup can be traced in the logs.
func (rs *RouterService) correlationIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Correlation-ID")
		if id == "" {
			id = log.GenerateCorrelationID()
		}

		ctx := context.WithValue(c.Request.Context(), log.CorrelatedIDKey, id)
		ctx = context.WithValue(ctx, log.LoggerKeyForContext, rs.logger.WithCorrelationID(ctx))
		c.Request = c.Request.WithContext(ctx)
		c.Header("X-Correlation-ID", id)
		c.Next()
	}
}

func (rs *RouterService) requestLoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		GetLogger(c).Info("HTTP request",
			"method", c.Request.Method,
			"route", c.FullPath(),
			"status", c.Writer.Status(),
			"latency_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
	}
}

// securityHeadersMiddleware sets headers for a JSON API that only answers
// form posts: nothing may be framed, sniffed, cached or referred onward.
func (rs *RouterService) securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Cache-Control", "no-store")

		if rs.policy.hsts && (c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https")) {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}

// corsMiddleware lets the landing page on an allowed origin post the signup
// form with fetch. No cookies are involved, so credentials stay off. Requests
// without an Origin are not cross-origin and pass untouched.
func (rs *RouterService) corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		if origin == "" {
			c.Next()
			return
		}

		h := c.Writer.Header()
		h.Add("Vary", "Origin")

		if !rs.policy.originAllowed(origin) {
			if c.Request.Method == http.MethodOptions {
				GetLogger(c).Warn("CORS preflight from disallowed origin", "origin", origin)
				c.AbortWithStatusJSON(http.StatusForbidden, ErrorResult(http.StatusForbidden, "Origin not allowed", nil))
				return
			}
			c.Next()
			return
		}

		h.Set("Access-Control-Allow-Origin", origin)
		h.Set("Access-Control-Expose-Headers", "X-Correlation-ID, Retry-After")

		if c.Request.Method == http.MethodOptions {
			h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
			h.Set("Access-Control-Allow-Headers", "Content-Type, Accept, X-Correlation-ID")
			h.Set("Access-Control-Max-Age", corsMaxAgeSeconds)
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (rs *RouterService) maxBodySizeMiddleware() gin.HandlerFunc {
	limit := rs.policy.maxBodyBytes

	return func(c *gin.Context) {
		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				ErrorResult(http.StatusRequestEntityTooLarge, "Request payload too large", nil))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}

// timeoutMiddleware bounds the request context so the token exchange and the
// Sheets calls give up with it. Handlers still run on the request goroutine;
// the server's write timeout covers a handler that ignores its context.
func (rs *RouterService) timeoutMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), rs.requestTimeout)
		defer cancel()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		if ctx.Err() == context.DeadlineExceeded && !c.Writer.Written() {
			GetLogger(c).Warn("Request timed out", "timeout", rs.requestTimeout.String())
			c.AbortWithStatusJSON(http.StatusRequestTimeout, ErrorResult(http.StatusRequestTimeout, "Request timeout", nil))
		}
	}
}

// rateLimit is attached per route. Keys combine the route and the client IP
// so routes sharing one Redis never share a window.
func (rs *RouterService) rateLimit(route string, limiter ratelimit.RateLimiter) gin.HandlerFunc {
	limit, window := limiter.GetLimitDetails()
	limitHeader := strconv.Itoa(limit)
	retryAfter := strconv.Itoa(max(1, int(math.Ceil(window.Seconds()))))

	return func(c *gin.Context) {
		c.Header("X-RateLimit-Limit", limitHeader)
		c.Header("X-RateLimit-Window", window.String())

		limited, err := limiter.IsLimited(c.Request.Context(), route+":"+c.ClientIP())
		if err != nil {
			// A limiter outage must not take signups down with it.
			GetLogger(c).Error("Rate limiter unavailable; allowing request", "route", route, "error", err)
			c.Next()
			return
		}
		if limited {
			GetLogger(c).Warn("Rate limit exceeded", "route", route, "client_ip", c.ClientIP())
			c.Header("Retry-After", retryAfter)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, TooManyRequestsResult(RateLimitResponse{
				Limit:      limit,
				Window:     window.String(),
				RetryAfter: retryAfter,
			}))
			return
		}
		c.Next()
	}
}
