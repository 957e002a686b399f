package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/akeren/sheet-waitlist/config"
	"github.com/akeren/sheet-waitlist/domain/waitlist"
	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/akeren/sheet-waitlist/internal/models"
	"github.com/akeren/sheet-waitlist/pkg/constants"
	apperrors "github.com/akeren/sheet-waitlist/pkg/errors"
	"github.com/akeren/sheet-waitlist/pkg/migrations"
	"github.com/akeren/sheet-waitlist/pkg/utils"
	"gorm.io/gorm"
)

const tokenPreviewLength = 8

func main() {
	logger := log.NewLoggerWithJSONOutput()

	config.LoadEnvFile(logger)

	args := os.Args[1:]
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	switch args[0] {
	case "migrate":
		direction := "up"
		if len(args) > 1 {
			direction = strings.ToLower(args[1])
		}
		if err := runMigrations(logger, direction); err != nil {
			logger.Error("Database migration failed", "direction", direction, "error", err.Error())
			os.Exit(1)
		}
		return

	case "join":
		if len(args) != 3 {
			fmt.Fprintln(os.Stderr, "usage: cli join <name> <email>")
			os.Exit(1)
		}
		os.Exit(runJoin(logger, args[1], args[2], os.Stdout, os.Stderr))

	case "token":
		if err := runToken(logger); err != nil {
			logger.Error("Token check failed", "error", err.Error())
			os.Exit(1)
		}
		return

	case "help", "-h", "--help":
		printUsage()
		return

	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

// runMigrations applies the SQL files in MIGRATIONS_DIR. Those files are
// postgres only, so a sqlite database is brought up with gorm's AutoMigrate
// and cannot be migrated down.
func runMigrations(logger *log.Logger, direction string) error {
	apply := migrations.Up
	switch direction {
	case "up":
	case "down":
		apply = migrations.Down
	default:
		return fmt.Errorf("unknown migrate direction %q (allowed: up, down)", direction)
	}

	dbCfg, err := config.DBConfigFromEnv()
	if err != nil {
		return err
	}

	db, err := config.NewDatabase(logger, dbCfg)
	if err != nil {
		return err
	}
	defer config.CloseDatabase(db, logger)

	if dbCfg.Driver == config.DriverSQLite {
		if direction == "down" {
			return fmt.Errorf("migrate down is not supported for %s", config.DriverSQLite)
		}
		return config.AutoMigrate(logger, db, models.ModelRegistry...)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get SQL DB instance: %w", err)
	}

	migrationsDir := utils.EnvOr("MIGRATIONS_DIR", "migrations")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	if err := apply(ctx, sqlDB, migrations.Config{Dir: migrationsDir, Logger: logger}); err != nil {
		return err
	}

	logger.Info("Database migrations completed", "direction", direction)
	return nil
}

// runJoin submits one signup through the same validation and service as the
// HTTP handler. Exit codes: 0 joined, 1 failure, 2 invalid input, 3 already
// on the list.
func runJoin(logger *log.Logger, name, email string, stdout, stderr io.Writer) int {
	sheetsCfg, err := config.NewSheetsConfig()
	if err != nil {
		logger.Error("Invalid waitlist backend configuration", "error", err.Error())
		return 1
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := sheetsCfg.NewStore(ctx, logger)
	if err != nil {
		logger.Error("Failed to create spreadsheet store", "error", err.Error())
		return 1
	}

	var db *gorm.DB
	if sheetsCfg.Backend == constants.BackendDatabase {
		if db, err = config.NewDatabase(logger, nil); err != nil {
			logger.Error("Failed to open waitlist database", "error", err.Error())
			return 1
		}
		defer config.CloseDatabase(db, logger)
	}

	repository, err := waitlist.NewRepositoryForBackend(sheetsCfg.Backend, store, db)
	if err != nil {
		logger.Error("Failed to create waitlist repository", "error", err.Error())
		return 1
	}

	req := &waitlist.JoinWaitlistRequest{Name: name, Email: email}
	if err := waitlist.ValidateJoinRequest(req); err != nil {
		for _, fieldErr := range apperrors.FormatValidationErrors(err, req) {
			fmt.Fprintf(stderr, "%s: %s\n", fieldErr.Field, fieldErr.Message)
		}
		return 2
	}

	service := waitlist.NewWaitlistService(logger, repository, nil, nil)
	if _, err := service.Join(ctx, req); err != nil {
		fmt.Fprintln(stderr, apperrors.GetHumanReadableMessage(err))
		if apperrors.GetErrorType(err) == apperrors.ErrorTypeConflict {
			return 3
		}
		return 1
	}

	fmt.Fprintln(stdout, waitlist.JoinedMessage)
	return 0
}

// runToken performs one assertion/exchange round trip. Only the token length
// and a short prefix are printed.
func runToken(logger *log.Logger) error {
	sheetsCfg, err := config.NewSheetsConfig()
	if err != nil {
		return err
	}
	if !sheetsCfg.UsesSpreadsheet() {
		return fmt.Errorf("backend %q does not use Google credentials", sheetsCfg.Backend)
	}

	minter, err := sheetsCfg.NewMinter()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := minter.Token(ctx)
	if err != nil {
		return err
	}

	preview := token.AccessToken
	if len(preview) > tokenPreviewLength {
		preview = preview[:tokenPreviewLength]
	}

	logger.Info("Access token issued", "account", sheetsCfg.AccountEmail)
	fmt.Printf("token ok: length=%d prefix=%s...\n", len(token.AccessToken), preview)
	return nil
}

func printUsage() {
	fmt.Println("Usage: cli <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  migrate [up|down]     Run database migrations (database backend) and exit")
	fmt.Println("  join <name> <email>   Submit one waitlist signup against the configured backend")
	fmt.Println("  token                 Mint and exchange a service account token, print its length and prefix")
}
