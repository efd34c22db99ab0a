package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ExtensionMetrics counts extension creations, failures and publications.
// A nil *ExtensionMetrics is valid and records nothing.
type ExtensionMetrics struct {
	created         *prometheus.CounterVec
	failures        *prometheus.CounterVec
	published       *prometheus.CounterVec
	publishDuration prometheus.Histogram
}

var (
	defaultExtensionMetrics *ExtensionMetrics
	defaultOnce             sync.Once
)

// DefaultExtensionMetrics returns the collectors registered on the global registry.
func DefaultExtensionMetrics() *ExtensionMetrics {
	defaultOnce.Do(func() {
		m, err := NewExtensionMetrics(registry)
		if err != nil {
			panic(err)
		}
		defaultExtensionMetrics = m
	})
	return defaultExtensionMetrics
}

// NewExtensionMetrics creates the collectors and registers them on reg.
func NewExtensionMetrics(reg prometheus.Registerer) (*ExtensionMetrics, error) {
	m := &ExtensionMetrics{
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lynx",
			Subsystem: "extension",
			Name:      "created_total",
			Help:      "Extension instances created, by namespace and creation path",
		}, []string{"namespace", "path"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lynx",
			Subsystem: "extension",
			Name:      "failures_total",
			Help:      "Extension failures, by namespace and error kind",
		}, []string{"namespace", "kind"}),
		published: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lynx",
			Subsystem: "extension",
			Name:      "published_total",
			Help:      "Extensions registered as singletons in the host container",
		}, []string{"namespace"}),
		publishDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "lynx",
			Subsystem: "extension",
			Name:      "publish_duration_seconds",
			Help:      "Duration of a publish pass",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	for _, c := range []prometheus.Collector{m.created, m.failures, m.published, m.publishDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// IncCreated records a successful creation.
func (m *ExtensionMetrics) IncCreated(namespace, path string) {
	if m == nil {
		return
	}
	m.created.WithLabelValues(label(namespace), path).Inc()
}

// IncFailure records a failure of the given kind.
func (m *ExtensionMetrics) IncFailure(namespace, kind string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(label(namespace), kind).Inc()
}

// IncPublished records a registration into the host container.
func (m *ExtensionMetrics) IncPublished(namespace string) {
	if m == nil {
		return
	}
	m.published.WithLabelValues(label(namespace)).Inc()
}

// ObservePublish records the duration of a publish pass.
func (m *ExtensionMetrics) ObservePublish(d time.Duration) {
	if m == nil {
		return
	}
	m.publishDuration.Observe(d.Seconds())
}

// host extensions have no namespace
func label(namespace string) string {
	if namespace == "" {
		return "host"
	}
	return namespace
}
