package constants

import "time"

// RFC 3339 date-time format string.
const RFC3339DateTimeFormat = "2006-01-02T15:04:05Z07:00"

const (
	// DefaultRateLimitRequests is the default number of requests allowed per time window
	DefaultRateLimitRequests = 100
	// DefaultRateLimitWindowMinutes is the default time window for rate limiting
	DefaultRateLimitWindowMinutes = 1

	// WaitlistJoinRequestsPerMinute applies per client IP to POST /v1/waitlist.
	WaitlistJoinRequestsPerMinute = 30
	// MonitoringRequestsPerMinute applies per client IP to the health endpoints.
	MonitoringRequestsPerMinute = 10
)

// Waitlist storage backends, selected with WAITLIST_BACKEND.
const (
	BackendREST     = "rest"
	BackendSession  = "session"
	BackendDatabase = "database"

	DefaultBackend = BackendREST
)

// DefaultEmailLockTTL bounds how long one signup may hold its email lock.
const DefaultEmailLockTTL = 30 * time.Second

// DefaultRateLimitWindow returns the default rate limit window duration
func DefaultRateLimitWindow() time.Duration {
	return time.Duration(DefaultRateLimitWindowMinutes) * time.Minute
}
