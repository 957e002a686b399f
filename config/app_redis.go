package config

import (
	"context"

	"github.com/akeren/sheet-waitlist/internal/log"
	pkgredis "github.com/akeren/sheet-waitlist/pkg/redis"
	"github.com/akeren/sheet-waitlist/pkg/utils"
)

// NewRedisConfig reads REDIS_URL, or REDIS_HOST with its port, password and
// database number.
func NewRedisConfig() *pkgredis.Config {
	return &pkgredis.Config{
		URL:      utils.Env("REDIS_URL"),
		Host:     utils.Env("REDIS_HOST"),
		Port:     utils.EnvOr("REDIS_PORT", "6379"),
		Password: utils.Env("REDIS_PASSWORD"),
		DB:       utils.EnvPositiveInt("REDIS_DB", 0),
	}
}

// ConnectRedis returns nil when Redis is not configured or does not answer.
// Rate limits and the email lock then stay within this process.
func ConnectRedis(ctx context.Context, logger *log.Logger, cfg *pkgredis.Config) *pkgredis.Connection {
	if cfg.URL == "" && cfg.Host == "" {
		logger.Info("Redis not configured; rate limits and email locks are per process")
		return nil
	}

	conn, err := pkgredis.Connect(ctx, cfg)
	if err != nil {
		logger.Error("Redis unavailable; rate limits and email locks are per process", "error", err)
		return nil
	}

	logger.Info("Redis connected")
	return conn
}

func CloseRedis(conn *pkgredis.Connection, logger *log.Logger) {
	if conn == nil {
		return
	}
	if err := conn.Close(); err != nil {
		logger.Error("Failed to close Redis connection", "error", err)
		return
	}
	logger.Info("Redis connection closed")
}
