package resilience

import "github.com/prometheus/client_golang/prometheus"

var (
	breakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "dependency_breaker_state",
			Help: "Breaker position per guarded dependency: 0=closed, 1=open, 2=half-open.",
		},
		[]string{"target"},
	)
	breakerTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dependency_breaker_transitions_total",
			Help: "Breaker state transitions per guarded dependency.",
		},
		[]string{"target", "from", "to"},
	)
	breakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dependency_breaker_trips_total",
			Help: "Times a breaker opened, cutting traffic to its dependency.",
		},
		[]string{"target"},
	)
)

func init() {
	prometheus.MustRegister(breakerState, breakerTransitions, breakerTrips)
}

func recordBreakerState(target string, s State) {
	var v float64
	switch s {
	case Open:
		v = 1
	case HalfOpen:
		v = 2
	}
	breakerState.WithLabelValues(target).Set(v)
}

func recordBreakerTransition(target string, from, to State) {
	breakerTransitions.WithLabelValues(target, from.String(), to.String()).Inc()
	if to == Open {
		breakerTrips.WithLabelValues(target).Inc()
	}
}
