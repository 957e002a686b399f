package waitlist

import (
	"github.com/akeren/sheet-waitlist/config/router"
	"github.com/akeren/sheet-waitlist/internal/log"
	"github.com/prometheus/client_golang/prometheus"
)

type WaitlistServiceFactory interface {
	CreateService() WaitlistService
	CreateController() *router.RESTController
}

type DefaultWaitlistServiceFactory struct {
	logger     *log.Logger
	repository WaitlistRepository
	lock       EmailLock
	outcomes   OutcomeRecorder
	service    WaitlistService
}

// NewWaitlistServiceFactory wires one service shared by the controller and
// any caller of CreateService. reg may be nil when metrics are disabled.
func NewWaitlistServiceFactory(logger *log.Logger, repository WaitlistRepository, lock EmailLock, reg prometheus.Registerer) WaitlistServiceFactory {
	return &DefaultWaitlistServiceFactory{
		logger:     logger,
		repository: repository,
		lock:       lock,
		outcomes:   NewOutcomeRecorder(reg),
	}
}

func (f *DefaultWaitlistServiceFactory) CreateService() WaitlistService {
	if f.service == nil {
		f.service = NewWaitlistService(f.logger, f.repository, f.lock, f.outcomes)
	}
	return f.service
}

func (f *DefaultWaitlistServiceFactory) CreateController() *router.RESTController {
	return NewWaitlistController(f.CreateService(), f.outcomes)
}
