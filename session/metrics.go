package session

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics counts session lifecycle events. A nil *Metrics records nothing.
type Metrics struct {
	transitions   *prometheus.CounterVec
	logouts       *prometheus.CounterVec
	authenticated prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wydely",
			Subsystem: "session",
			Name:      "transitions_total",
			Help:      "Session state transitions by target state.",
		}, []string{"state"}),
		logouts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wydely",
			Subsystem: "session",
			Name:      "logouts_total",
			Help:      "Sessions ended, by reason.",
		}, []string{"reason"}),
		authenticated: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "wydely",
			Subsystem: "session",
			Name:      "authenticated",
			Help:      "1 while a session is authenticated.",
		}),
	}
}

func (m *Metrics) transition(state State) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(state.String()).Inc()
	if state == StateAuthenticated {
		m.authenticated.Set(1)
	} else {
		m.authenticated.Set(0)
	}
}

func (m *Metrics) logout(reason string) {
	if m == nil {
		return
	}
	m.logouts.WithLabelValues(reason).Inc()
}
