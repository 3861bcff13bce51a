package mockbackend

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type metrics struct {
	requests *prometheus.CounterVec
	otpSent  prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "wydely",
			Subsystem: "mock_backend",
			Name:      "requests_total",
			Help:      "Requests served by route pattern and status code.",
		}, []string{"route", "code"}),
		otpSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "wydely",
			Subsystem: "mock_backend",
			Name:      "otp_sent_total",
			Help:      "One-time codes issued.",
		}),
	}
}

func (m *metrics) request(route string, code int) {
	m.requests.WithLabelValues(route, strconv.Itoa(code)).Inc()
}
