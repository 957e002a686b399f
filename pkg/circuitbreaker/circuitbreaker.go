package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"
)

// CircuitState is the current circuit breaker state.
type CircuitState int

const (
	// Closed allows requests to pass through
	Closed CircuitState = iota
	// Open blocks all requests
	Open
	// HalfOpen allows limited requests to test recovery
	HalfOpen
)

func (s CircuitState) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

var ErrCircuitOpen = errors.New("circuit breaker is open")

// CircuitBreaker guards calls to a dependency and opens after repeated
// failures. It never retries.
type CircuitBreaker interface {
	Call(func() error) error
	State() CircuitState
	Metrics() Metrics
	Reset()
}

type Config struct {
	FailureThreshold int           // Number of failures before opening
	RecoveryTimeout  time.Duration // Time to wait before trying HalfOpen
	SuccessThreshold int           // Number of successes needed to close from HalfOpen

	// IsFailure decides whether an error counts against the dependency.
	// Defaults to ignoring context cancellation.
	IsFailure func(error) bool
}

func DefaultConfig() *Config {
	return &Config{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 1,
	}
}

func defaultIsFailure(err error) bool {
	return err != nil && !errors.Is(err, context.Canceled)
}

type circuitBreaker struct {
	config      Config
	state       CircuitState
	failures    int
	successes   int
	lastFailure time.Time
	nextAttempt time.Time
	now         func() time.Time
	mutex       sync.RWMutex
}

// NewCircuitBreaker returns a circuit breaker and applies defaults when config is nil.
func NewCircuitBreaker(config *Config) CircuitBreaker {
	return newCircuitBreaker(config, time.Now)
}

func newCircuitBreaker(config *Config, now func() time.Time) *circuitBreaker {
	if config == nil {
		config = DefaultConfig()
	}

	cfg := *config
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = 1
	}
	if cfg.SuccessThreshold <= 0 {
		cfg.SuccessThreshold = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = defaultIsFailure
	}

	return &circuitBreaker{
		config: cfg,
		state:  Closed,
		now:    now,
	}
}

func (cb *circuitBreaker) shouldAllowRequest() bool {
	// Transition Open -> HalfOpen after the recovery timeout.
	if cb.state == Open && cb.now().After(cb.nextAttempt) {
		cb.state = HalfOpen
		cb.successes = 0
	}
	return cb.state != Open
}

func (cb *circuitBreaker) Call(fn func() error) error {
	cb.mutex.Lock()
	shouldAllow := cb.shouldAllowRequest()
	cb.mutex.Unlock()

	if !shouldAllow {
		return ErrCircuitOpen
	}

	// Never call user code while holding locks.
	err := fn()

	cb.mutex.Lock()
	if cb.config.IsFailure(err) {
		cb.recordFailure()
	} else if err == nil {
		cb.recordSuccess()
	}
	cb.mutex.Unlock()

	return err
}

func (cb *circuitBreaker) State() CircuitState {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.shouldAllowRequest()
	return cb.state
}

func (cb *circuitBreaker) Reset() {
	cb.mutex.Lock()
	defer cb.mutex.Unlock()
	cb.state = Closed
	cb.failures = 0
	cb.successes = 0
}

func (cb *circuitBreaker) recordFailure() {
	cb.failures++
	cb.lastFailure = cb.now()

	switch cb.state {
	case Closed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = Open
			cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
		}
	case HalfOpen:
		cb.state = Open
		cb.nextAttempt = cb.now().Add(cb.config.RecoveryTimeout)
	}
}

func (cb *circuitBreaker) recordSuccess() {
	cb.failures = 0

	if cb.state == HalfOpen {
		cb.successes++
		if cb.successes >= cb.config.SuccessThreshold {
			cb.state = Closed
			cb.successes = 0
		}
	}
}

// Metrics is a point-in-time snapshot of the breaker.
type Metrics struct {
	State        CircuitState
	FailureCount int
	SuccessCount int
	LastFailure  time.Time
	NextAttempt  time.Time
}

func (cb *circuitBreaker) Metrics() Metrics {
	cb.mutex.RLock()
	defer cb.mutex.RUnlock()

	return Metrics{
		State:        cb.state,
		FailureCount: cb.failures,
		SuccessCount: cb.successes,
		LastFailure:  cb.lastFailure,
		NextAttempt:  cb.nextAttempt,
	}
}
