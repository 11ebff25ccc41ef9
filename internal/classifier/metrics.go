package classifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/sony/gobreaker/v2"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "classifier_requests_total",
			Help: "Total number of classification attempts by endpoint and outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	degradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "classifier_degraded_total",
			Help: "Total number of texts that fell back to the local neutral verdict",
		},
	)

	breakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "classifier_circuit_breaker_state",
			Help: "Current state of the classifier circuit breaker (0=closed, 1=half-open, 2=open)",
		},
		[]string{"endpoint"},
	)
)

const (
	outcomeSuccess     = "success"
	outcomeUnavailable = "unavailable"
	outcomeTimeout     = "timeout"
	outcomeBadStatus   = "bad_status"
	outcomeMalformed   = "malformed"
	outcomeCircuitOpen = "circuit_open"
)

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}
