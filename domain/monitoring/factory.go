package monitoring

import (
	"github.com/akeren/sheet-waitlist/config/router"
)

type MonitoringControllerFactory interface {
	CreateController() *router.RESTController
}

type DefaultMonitoringControllerFactory struct {
	backendName string
	backend     Backend
	cache       Cache
}

func NewMonitoringControllerFactory(backendName string, backend Backend, cache Cache) MonitoringControllerFactory {
	return &DefaultMonitoringControllerFactory{
		backendName: backendName,
		backend:     backend,
		cache:       cache,
	}
}

func (f *DefaultMonitoringControllerFactory) CreateController() *router.RESTController {
	return NewMonitoringController(f.backendName, f.backend, f.cache)
}
