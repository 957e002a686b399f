package waitlist

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

type Outcome string

const (
	OutcomeJoined    Outcome = "joined"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeFailed    Outcome = "failed"
)

type OutcomeRecorder interface {
	Record(outcome Outcome)
}

type promOutcomeRecorder struct {
	outcomes *prometheus.CounterVec
}

// NewOutcomeRecorder registers waitlist_join_outcomes_total on reg. A nil
// reg yields a recorder that drops everything.
func NewOutcomeRecorder(reg prometheus.Registerer) OutcomeRecorder {
	if reg == nil {
		return noopOutcomeRecorder{}
	}

	counter := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "waitlist_join_outcomes_total",
			Help: "Waitlist signup attempts by outcome.",
		},
		[]string{"outcome"},
	)

	if err := reg.Register(counter); err != nil {
		var already prometheus.AlreadyRegisteredError
		if !errors.As(err, &already) {
			return noopOutcomeRecorder{}
		}
		counter = already.ExistingCollector.(*prometheus.CounterVec)
	}

	return &promOutcomeRecorder{outcomes: counter}
}

func (r *promOutcomeRecorder) Record(outcome Outcome) {
	r.outcomes.WithLabelValues(string(outcome)).Inc()
}

type noopOutcomeRecorder struct{}

func (noopOutcomeRecorder) Record(Outcome) {}
