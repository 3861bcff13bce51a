package session

import "github.com/prometheus/client_golang/prometheus"

func AuthenticatedGauge(m *Metrics) prometheus.Collector {
	return m.authenticated
}

func LogoutCounter(m *Metrics, reason string) prometheus.Collector {
	return m.logouts.WithLabelValues(reason)
}
