// Package metrics holds the Prometheus instruments of the server.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Manager struct {
	// counters
	CounterRequests      *prometheus.CounterVec
	CounterAutosaves     *prometheus.CounterVec
	CounterAuthAttempts  *prometheus.CounterVec
	CounterHandlerPanics prometheus.Counter

	// gauges
	GaugeRequests    prometheus.Gauge
	GaugeOpenScreens *prometheus.GaugeVec

	// histograms
	HistRequestDuration prometheus.Histogram
}

func NewTestManager() *Manager {
	return NewManager("tempo", "test_server", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("tempo", "test_server", reg), reg
}

// NewRegistry returns a registry with the Go runtime and process collectors.
func NewRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewBuildInfoCollector(),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	counterRequests := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "request",
		Help:      "The total number of incoming requests",
	}, []string{"method", "status"})
	counterAutosaves := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "autosave",
		Help:      "The total number of autosaved field writes",
	}, []string{"screen", "result"})
	counterAuthAttempts := factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "auth_attempts",
		Help:      "The total number of sign-in attempts",
	}, []string{"method", "result"})
	counterHandlerPanics := factory.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "handle_request_panic",
		Help:      "The total number of serve request panics",
	})

	gaugeRequests := factory.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "current_requests",
		Help:      "Current number of requests served",
	})
	gaugeOpenScreens := factory.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      "open_screens",
		Help:      "Editor pages currently open",
	}, []string{"screen"})

	histReqDuration := factory.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Buckets:   []float64{0.0001, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 60},
		Name:      "request_duration_seconds",
		Help:      "Total duration of requests in seconds",
	})

	return &Manager{
		CounterRequests:      counterRequests,
		CounterAutosaves:     counterAutosaves,
		CounterAuthAttempts:  counterAuthAttempts,
		CounterHandlerPanics: counterHandlerPanics,
		GaugeRequests:        gaugeRequests,
		GaugeOpenScreens:     gaugeOpenScreens,
		HistRequestDuration:  histReqDuration,
	}
}

// ScreenOpened, ScreenClosed and FieldCommitted let the manager observe the
// live screen registry.

func (m *Manager) ScreenOpened(kind string) {
	m.GaugeOpenScreens.WithLabelValues(kind).Inc()
}

func (m *Manager) ScreenClosed(kind string) {
	m.GaugeOpenScreens.WithLabelValues(kind).Dec()
}

func (m *Manager) FieldCommitted(kind string, ok bool) {
	m.CounterAutosaves.WithLabelValues(kind, result(ok)).Inc()
}

// AuthAttempt counts a sign-in attempt by method.
func (m *Manager) AuthAttempt(method string, ok bool) {
	m.CounterAuthAttempts.WithLabelValues(method, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
