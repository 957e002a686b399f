package config

import (
	"testing"
	"time"

	"github.com/akeren/sheet-waitlist/pkg/constants"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearAppConfigEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"RATE_LIMIT_REQUESTS", "RATE_LIMIT_WINDOW", "REQUEST_TIMEOUT", "WAITLIST_LOCK_TTL"} {
		t.Setenv(key, "")
	}
}

func TestNewAppConfig_Defaults(t *testing.T) {
	clearAppConfigEnv(t)

	cfg, err := NewAppConfig()
	require.NoError(t, err)

	assert.Equal(t, constants.DefaultRateLimitRequests, cfg.RateLimitRequests)
	assert.Equal(t, constants.DefaultRateLimitWindow(), cfg.RateLimitWindow)
	assert.Equal(t, 30*time.Second, cfg.RequestTimeout)
	assert.Equal(t, constants.DefaultEmailLockTTL, cfg.EmailLockTTL)
}

func TestNewAppConfig_Overrides(t *testing.T) {
	clearAppConfigEnv(t)
	t.Setenv("RATE_LIMIT_REQUESTS", "12")
	t.Setenv("WAITLIST_LOCK_TTL", "5s")

	cfg, err := NewAppConfig()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.RateLimitRequests)
	assert.Equal(t, 5*time.Second, cfg.EmailLockTTL)
}

func TestNewAppConfig_RejectsBadLockTTL(t *testing.T) {
	clearAppConfigEnv(t)
	t.Setenv("WAITLIST_LOCK_TTL", "forever")

	_, err := NewAppConfig()

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeConfiguration, apperrors.GetErrorType(err))
	assert.Contains(t, err.Error(), "WAITLIST_LOCK_TTL")
}
