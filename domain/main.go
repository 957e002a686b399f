package domain

import (
	"github.com/akeren/sheet-waitlist/config"
	"github.com/akeren/sheet-waitlist/domain/monitoring"
	"github.com/akeren/sheet-waitlist/domain/waitlist"
)

// SetupCoreDomain wires the waitlist for the configured backend and mounts
// its controllers next to monitoring.
func SetupCoreDomain(appConfig *config.ApplicationConfig) error {
	backend := appConfig.Backend()

	repository, err := waitlist.NewRepositoryForBackend(backend, appConfig.SheetStore, appConfig.DB)
	if err != nil {
		appConfig.Logger.Error("Failed to create waitlist repository", "backend", backend, "error", err)
		return err
	}

	lock := waitlist.NewEmailLock(appConfig.RedisClient(), appConfig.Config.EmailLockTTL, appConfig.Logger)

	// A nil *Connection stored in the interface would look configured.
	var cache monitoring.Cache
	if appConfig.Redis != nil {
		cache = appConfig.Redis
	}

	waitlistFactory := waitlist.NewWaitlistServiceFactory(
		appConfig.Logger,
		repository,
		lock,
		appConfig.RouterService.MetricsRegisterer(),
	)

	monitoringFactory := monitoring.NewMonitoringControllerFactory(
		backend,
		waitlistFactory.CreateService(),
		cache,
	)

	appConfig.RouterService.MountController(monitoringFactory.CreateController())
	appConfig.RouterService.MountController(waitlistFactory.CreateController())

	appConfig.Logger.Info("Core domain ready", "backend", backend)
	return nil
}
