package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	namespace         = "welcome_gw"
	stateSubsystem    = "state"
	listenerSubsystem = "listener"
	tlsSubsystem      = "tls"
)

// GateMetrics describes the gateway state. All methods are safe to call on a
// nil *GateMetrics.
type GateMetrics struct {
	stateMetrics
	listenerMetrics
}

type stateMetrics struct {
	healthCheck prometheus.Gauge
	gwVersion   *prometheus.GaugeVec
}

type listenerMetrics struct {
	listenerUp   *prometheus.GaugeVec
	certLoaded   prometheus.Gauge
	loadFailures *prometheus.CounterVec
}

// NewGateMetrics creates new metrics for the gateway and registers them in reg.
func NewGateMetrics(reg prometheus.Registerer) *GateMetrics {
	stateMetric := newStateMetrics()
	stateMetric.register(reg)

	listenerMetric := newListenerMetrics()
	listenerMetric.register(reg)

	return &GateMetrics{
		stateMetrics:    *stateMetric,
		listenerMetrics: *listenerMetric,
	}
}

func newStateMetrics() *stateMetrics {
	return &stateMetrics{
		healthCheck: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: stateSubsystem,
			Name:      "health",
			Help:      "Current gateway state",
		}),
		gwVersion: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Help:      "Gateway version",
				Name:      "version",
				Namespace: namespace,
			},
			[]string{"version"},
		),
	}
}

func (m stateMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.healthCheck)
	reg.MustRegister(m.gwVersion)
}

func newListenerMetrics() *listenerMetrics {
	return &listenerMetrics{
		listenerUp: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: listenerSubsystem,
				Name:      "up",
				Help:      "Whether the listener for the protocol is bound and serving",
			},
			[]string{"protocol"},
		),
		certLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: tlsSubsystem,
			Name:      "certificate_loaded",
			Help:      "Whether TLS certificate material was loaded successfully",
		}),
		loadFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: tlsSubsystem,
				Name:      "load_failures_total",
				Help:      "Number of failed TLS certificate loads by reason",
			},
			[]string{"reason"},
		),
	}
}

func (m listenerMetrics) register(reg prometheus.Registerer) {
	reg.MustRegister(m.listenerUp)
	reg.MustRegister(m.certLoaded)
	reg.MustRegister(m.loadFailures)
}

// SetHealth sets the gateway health gauge.
func (g *GateMetrics) SetHealth(s int32) {
	if g == nil {
		return
	}
	g.healthCheck.Set(float64(s))
}

func (g *GateMetrics) SetGWVersion(ver string) {
	if g == nil {
		return
	}
	g.gwVersion.WithLabelValues(ver).Set(1)
}

// SetListenerUp marks the listener of the given protocol as serving or not.
func (g *GateMetrics) SetListenerUp(protocol string, up bool) {
	if g == nil {
		return
	}
	g.listenerUp.WithLabelValues(protocol).Set(boolToFloat(up))
}

// CertificateLoaded records a successful certificate load.
func (g *GateMetrics) CertificateLoaded() {
	if g == nil {
		return
	}
	g.certLoaded.Set(1)
}

// CertificateFailed records a failed certificate load.
func (g *GateMetrics) CertificateFailed(reason string) {
	if g == nil {
		return
	}
	g.certLoaded.Set(0)
	g.loadFailures.WithLabelValues(reason).Inc()
}

func boolToFloat(b bool) float64 {
	if b {
		return 1
	}
	return 0
}

// NewPrometheusService creates a new service for gathering prometheus metrics.
func NewPrometheusService(log *zap.Logger, cfg Config, gatherer prometheus.Gatherer) *Service {
	if log == nil {
		return nil
	}

	return newService(log, cfg, "Prometheus", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}
