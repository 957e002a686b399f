package config

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/akeren/sheet-waitlist/internal/log"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"github.com/joho/godotenv"
)

const AppEnvKey = "APP_ENV"

// migratableEnvs are the APP_ENV values where --auto-migrate may touch the schema.
var migratableEnvs = []string{"", "dev", "development", "local", "test", "testing"}

// LoadEnvFile reads .env (or the given files) into the process environment.
// Variables already set in the process keep their value. SKIP_DOTENV=true
// turns loading off for containers that inject everything.
func LoadEnvFile(logger *log.Logger, paths ...string) {
	if utils.EnvBool("SKIP_DOTENV", false) {
		logger.Info("Skipping env file (SKIP_DOTENV=true)")
		return
	}
	if len(paths) == 0 {
		paths = []string{".env"}
	}

	err := godotenv.Load(paths...)
	switch {
	case err == nil:
		logger.Info("Environment loaded from file", "paths", paths)
	case errors.Is(err, fs.ErrNotExist):
		logger.Info("No env file found; using process environment", "paths", paths)
	default:
		logger.Warn("Failed to parse env file", "paths", paths, "error", err)
	}
}

func AppEnv() string {
	return strings.ToLower(utils.Env(AppEnvKey))
}

// CheckAutoMigrate refuses schema changes from the server outside
// development environments. Production schemas go through `cli migrate`.
func CheckAutoMigrate(appEnv string) error {
	env := strings.ToLower(strings.TrimSpace(appEnv))
	if slices.Contains(migratableEnvs, env) {
		return nil
	}

	return apperrors.NewConfigurationError(
		fmt.Sprintf("--auto-migrate is not allowed when %s=%q; run `cli migrate up` instead", AppEnvKey, env),
		nil,
	)
}
