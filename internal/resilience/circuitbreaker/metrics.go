package circuitbreaker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker"
)

var (
	// StateGauge is 0 when closed, 1 when half-open and 2 when open.
	StateGauge = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// TransitionsTotal counts state changes by target state.
	TransitionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "to"},
	)

	// RejectedTotal counts calls refused without being attempted.
	RejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_rejected_total",
			Help: "Total number of calls rejected by an open circuit breaker",
		},
		[]string{"name"},
	)
)

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}

func setState(name string, s gobreaker.State) {
	StateGauge.WithLabelValues(name).Set(stateValue(s))
}

func recordTransition(name string, to gobreaker.State) {
	setState(name, to)
	TransitionsTotal.WithLabelValues(name, to.String()).Inc()
}

// RecordRejected counts a call refused by the breaker.
func RecordRejected(name string) {
	RejectedTotal.WithLabelValues(name).Inc()
}
