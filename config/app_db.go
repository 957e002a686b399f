package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/akeren/sheet-waitlist/internal/log"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultSQLitePath = "waitlist.db"
)

// DBConfig describes the database behind the database backend. DSN may hold
// a password and is never logged.
type DBConfig struct {
	Driver          string
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

// DBConfigFromEnv picks the driver from DATABASE_DRIVER (postgres unless set).
// Postgres uses APP_DATABASE_URL when present, otherwise the POSTGRES_* parts.
// SQLite uses SQLITE_PATH and a single connection, since writes serialize
// anyway and an in-memory database lives only as long as its connection.
func DBConfigFromEnv() (*DBConfig, error) {
	driver := strings.ToLower(utils.EnvOr("DATABASE_DRIVER", DriverPostgres))

	switch driver {
	case DriverSQLite:
		return &DBConfig{
			Driver:       DriverSQLite,
			DSN:          utils.EnvOr("SQLITE_PATH", defaultSQLitePath),
			MaxIdleConns: 1,
			MaxOpenConns: 1,
		}, nil

	case DriverPostgres:
		dsn, err := postgresDSNFromEnv()
		if err != nil {
			return nil, err
		}
		return &DBConfig{
			Driver:          DriverPostgres,
			DSN:             dsn,
			MaxIdleConns:    utils.EnvPositiveInt("DB_MAX_IDLE_CONNS", 5),
			MaxOpenConns:    utils.EnvPositiveInt("DB_MAX_OPEN_CONNS", 20),
			ConnMaxLifetime: 5 * time.Minute,
		}, nil

	default:
		return nil, apperrors.NewConfigurationError(
			fmt.Sprintf("unknown DATABASE_DRIVER %q (allowed: postgres, sqlite)", driver), nil)
	}
}

func postgresDSNFromEnv() (string, error) {
	if url := utils.Env("APP_DATABASE_URL"); url != "" {
		return url, nil
	}

	parts := []struct{ key, name, value string }{
		{key: "host", name: "POSTGRES_HOST"},
		{key: "port", name: "POSTGRES_PORT"},
		{key: "user", name: "POSTGRES_USER"},
		{key: "dbname", name: "POSTGRES_DB_NAME"},
	}

	var missing []string
	fields := make([]string, 0, len(parts)+2)
	for i := range parts {
		parts[i].value = utils.Env(parts[i].name)
		if parts[i].value == "" {
			missing = append(missing, parts[i].name)
			continue
		}
		fields = append(fields, parts[i].key+"="+parts[i].value)
	}
	if len(missing) > 0 {
		return "", apperrors.NewConfigurationError(
			"missing database env vars: "+strings.Join(missing, ", ")+" (or set APP_DATABASE_URL)", nil)
	}

	if pass := utils.Env("POSTGRES_PASSWORD"); pass != "" {
		fields = append(fields, "password="+pass)
	}
	fields = append(fields, "sslmode="+utils.EnvOr("POSTGRES_SSLMODE", "require"))

	return strings.Join(fields, " "), nil
}

func (c *DBConfig) dialector() gorm.Dialector {
	if c.Driver == DriverSQLite {
		return sqlite.Open(c.DSN)
	}
	return postgres.Open(c.DSN)
}

// NewDatabase opens and pings the waitlist database. A nil cfg is read from
// the environment.
func NewDatabase(logger *log.Logger, cfg *DBConfig) (*gorm.DB, error) {
	if cfg == nil {
		var err error
		if cfg, err = DBConfigFromEnv(); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(cfg.dialector(), &gorm.Config{})
	if err != nil {
		return nil, apperrors.NewDatabaseError("unable to open "+cfg.Driver+" database", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, apperrors.NewDatabaseError("unable to get SQL handle", err)
	}
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, apperrors.NewDatabaseError("database ping failed", err)
	}

	logger.Info("Database connected", "driver", cfg.Driver, "max_open_conns", cfg.MaxOpenConns)
	return db, nil
}

// AutoMigrate creates or alters tables for models. Only development
// environments and the sqlite CLI path use it.
func AutoMigrate(logger *log.Logger, db *gorm.DB, models ...interface{}) error {
	if db == nil {
		return apperrors.NewDatabaseError("cannot migrate without a database", nil)
	}

	if err := db.AutoMigrate(models...); err != nil {
		return apperrors.NewDatabaseError("auto-migrate failed", err)
	}

	logger.Info("Database schema migrated", "models", len(models))
	return nil
}

func CloseDatabase(db *gorm.DB, logger *log.Logger) {
	if db == nil {
		return
	}

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Close()
	}
	if err != nil {
		logger.Error("Failed to close database", "error", err)
		return
	}
	logger.Info("Database closed")
}
