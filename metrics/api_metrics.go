package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	httpSubsystem = "http"
)

// RequestMetrics contains metric definitions for the served routes.
type RequestMetrics struct {
	RequestDuration *prometheus.HistogramVec
}

// Elapsed calculates and stores request handling time for the given labels.
func (m *RequestMetrics) Elapsed(route, method, protocol string) func(code string) {
	t := time.Now()

	return func(code string) {
		if m == nil {
			return
		}
		m.RequestDuration.WithLabelValues(route, method, protocol, code).Observe(time.Since(t).Seconds())
	}
}

// NewRequestMetrics is a constructor for RequestMetrics.
func NewRequestMetrics(reg prometheus.Registerer) *RequestMetrics {
	m := &RequestMetrics{
		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: httpSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Request handling time",
		}, []string{"route", "method", "protocol", "code"}),
	}

	m.register(reg)

	return m
}

func (m RequestMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.RequestDuration)
}
