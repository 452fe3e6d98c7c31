// Package metrics exposes Prometheus counters for pair sampling.
//
// Counters are registered on a caller-supplied Registerer so that tests and
// concurrent studies can use isolated registries. All methods are safe on a
// nil *Sampler, which records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"genoloc/internal/model"
)

const (
	namespace = "genoloc"
	subsystem = "sampler"
)

// Outcome labels for constructed individuals.
const (
	OutcomeValid     = "valid"
	OutcomeExhausted = "exhausted"
	OutcomeNumeric   = "numeric"
	// OutcomeUnmutable marks valid individuals that consumed no codons, so no
	// mutation position exists.
	OutcomeUnmutable = "unmutable"
)

// Sampler counts individuals built and pairs yielded per variation regime.
type Sampler struct {
	// Individuals counts constructed individuals.
	// Labels: regime, outcome (valid, exhausted, numeric, unmutable)
	Individuals *prometheus.CounterVec

	// Pairs counts yielded pairs.
	// Labels: regime
	Pairs *prometheus.CounterVec
}

// NewSampler creates the sampler counters and registers them on reg. A nil reg
// leaves them unregistered.
func NewSampler(reg prometheus.Registerer) *Sampler {
	factory := promauto.With(reg)
	return &Sampler{
		Individuals: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "individuals_total",
				Help:      "Individuals constructed by variation regime and outcome",
			},
			[]string{"regime", "outcome"},
		),
		Pairs: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pairs_total",
				Help:      "Pairs yielded by variation regime",
			},
			[]string{"regime"},
		),
	}
}

// ObserveIndividual records the construction outcome of ind.
func (m *Sampler) ObserveIndividual(regime model.Regime, ind model.Individual) {
	if m == nil {
		return
	}
	m.Individuals.WithLabelValues(string(regime), OutcomeOf(ind)).Inc()
}

// ObserveUnmutable records a valid base individual that could not be mutated.
func (m *Sampler) ObserveUnmutable(regime model.Regime) {
	if m == nil {
		return
	}
	m.Individuals.WithLabelValues(string(regime), OutcomeUnmutable).Inc()
}

func (m *Sampler) ObservePair(regime model.Regime) {
	if m == nil {
		return
	}
	m.Pairs.WithLabelValues(string(regime)).Inc()
}

// OutcomeOf maps an individual to its outcome label.
func OutcomeOf(ind model.Individual) string {
	switch {
	case ind.Valid():
		return OutcomeValid
	case ind.Failure == model.FailureNumeric:
		return OutcomeNumeric
	default:
		return OutcomeExhausted
	}
}
