package config

import (
	"context"
	"testing"

	"github.com/akeren/sheet-waitlist/internal/log"
	pkgredis "github.com/akeren/sheet-waitlist/pkg/redis"
	"github.com/stretchr/testify/assert"
)

func TestNewRedisConfig_ReadsEnv(t *testing.T) {
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_HOST", "redis.internal")
	t.Setenv("REDIS_PORT", "")
	t.Setenv("REDIS_PASSWORD", "'pw'")
	t.Setenv("REDIS_DB", "3")

	cfg := NewRedisConfig()

	assert.Equal(t, "redis.internal:6379", cfg.Addr())
	assert.Equal(t, "pw", cfg.Password)
	assert.Equal(t, 3, cfg.DB)
}

func TestConnectRedis_NilWhenUnconfigured(t *testing.T) {
	assert.Nil(t, ConnectRedis(context.Background(), log.NewLoggerWithJSONOutput(), &pkgredis.Config{}))
}

func TestConnectRedis_NilWhenUnreachable(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	conn := ConnectRedis(ctx, log.NewLoggerWithJSONOutput(), &pkgredis.Config{Host: "127.0.0.1", Port: "1"})

	assert.Nil(t, conn)
	CloseRedis(conn, log.NewLoggerWithJSONOutput())
}
