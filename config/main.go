package config

import (
	"context"
	"time"

	"github.com/akeren/sheet-waitlist/config/router"
	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/internal/models"
	"github.com/akeren/sheet-waitlist/internal/sheets"
	"github.com/akeren/sheet-waitlist/pkg/constants"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	pkgredis "github.com/akeren/sheet-waitlist/pkg/redis"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

const defaultRequestTimeout = 30 * time.Second

type ApplicationConfig struct {
	// DB is only opened for the database backend.
	DB              *gorm.DB
	SheetStore      sheets.Store
	Sheets          *SheetsConfig
	// Redis is nil when not configured or unreachable.
	Redis           *pkgredis.Connection
	RouterService   *router.RouterService
	Logger          *log.Logger
	Config          *AppConfig
	TracingShutdown func(context.Context) error
}

type AppConfig struct {
	RateLimitRequests int
	RateLimitWindow   time.Duration
	RequestTimeout    time.Duration
	EmailLockTTL      time.Duration
}

// NewAppConfig reads the request limits and the email lock TTL. Counts fall
// back to their defaults when malformed; durations must parse.
func NewAppConfig() (*AppConfig, error) {
	cfg := &AppConfig{
		RateLimitRequests: utils.EnvPositiveInt("RATE_LIMIT_REQUESTS", constants.DefaultRateLimitRequests),
	}

	durations := []struct {
		key      string
		fallback time.Duration
		dst      *time.Duration
	}{
		{"RATE_LIMIT_WINDOW", constants.DefaultRateLimitWindow(), &cfg.RateLimitWindow},
		{"REQUEST_TIMEOUT", defaultRequestTimeout, &cfg.RequestTimeout},
		{"WAITLIST_LOCK_TTL", constants.DefaultEmailLockTTL, &cfg.EmailLockTTL},
	}
	for _, d := range durations {
		v, err := utils.EnvDuration(d.key, d.fallback)
		if err != nil {
			return nil, apperrors.NewConfigurationError("invalid duration setting", err)
		}
		*d.dst = v
	}

	return cfg, nil
}

// Backend names the configured waitlist storage.
func (ac *ApplicationConfig) Backend() string {
	if ac.Sheets == nil {
		return constants.DefaultBackend
	}
	return ac.Sheets.Backend
}

// RedisClient is nil without a Redis connection.
func (ac *ApplicationConfig) RedisClient() *redis.Client {
	if ac.Redis == nil {
		return nil
	}
	return ac.Redis.Client()
}

func (ac *ApplicationConfig) Cleanup() {
	if ac.TracingShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := ac.TracingShutdown(ctx); err != nil {
			ac.Logger.Error("Failed to flush traces", "error", err)
		}
	}

	CloseDatabase(ac.DB, ac.Logger)

	if ac.RouterService != nil {
		ac.RouterService.Cleanup()
	}

	CloseRedis(ac.Redis, ac.Logger)

	ac.Logger.Info("Application cleanup completed")
}

// LoadApplicationConfiguration builds everything the server needs for the
// configured backend. The database is opened, and optionally migrated, only
// for the database backend.
func LoadApplicationConfiguration(logger *log.Logger, autoMigrate bool) (*ApplicationConfig, error) {
	LoadEnvFile(logger)
	ctx := context.Background()

	if autoMigrate {
		if err := CheckAutoMigrate(AppEnv()); err != nil {
			return nil, err
		}
	}

	appConfig, err := NewAppConfig()
	if err != nil {
		return nil, err
	}

	sheetsCfg, err := NewSheetsConfig()
	if err != nil {
		return nil, err
	}

	tracingShutdown, err := SetupTracing(ctx, logger)
	if err != nil {
		return nil, err
	}

	store, err := sheetsCfg.NewStore(ctx, logger)
	if err != nil {
		return nil, err
	}

	var db *gorm.DB
	switch {
	case sheetsCfg.Backend == constants.BackendDatabase:
		if db, err = NewDatabase(logger, nil); err != nil {
			return nil, err
		}
		if autoMigrate {
			if err := AutoMigrate(logger, db, models.ModelRegistry...); err != nil {
				CloseDatabase(db, logger)
				return nil, err
			}
		}
	case autoMigrate:
		logger.Warn("--auto-migrate ignored; backend has no database", "backend", sheetsCfg.Backend)
	}

	redisConn := ConnectRedis(ctx, logger, NewRedisConfig())

	var redisClient *redis.Client
	if redisConn != nil {
		redisClient = redisConn.Client()
	}

	routerService := router.CreateRouterService(logger, redisClient, &router.RouterConfig{
		RateLimitRequests: appConfig.RateLimitRequests,
		RateLimitWindow:   appConfig.RateLimitWindow,
		RequestTimeout:    appConfig.RequestTimeout,
	})

	logger.Info("Application configuration loaded", "backend", sheetsCfg.Backend, "email_lock_ttl", appConfig.EmailLockTTL.String())

	return &ApplicationConfig{
		DB:              db,
		SheetStore:      store,
		Sheets:          sheetsCfg,
		Redis:           redisConn,
		RouterService:   routerService,
		Logger:          logger,
		Config:          appConfig,
		TracingShutdown: tracingShutdown,
	}, nil
}
