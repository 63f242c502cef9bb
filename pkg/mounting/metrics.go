package mounting

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/vango-dev/viewdiff/pkg/mutation"
)

// MetricsConfig configures the Prometheus metrics of a Registry.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "viewdiff").
	Namespace string

	// Subsystem is the metrics subsystem (default: "mounting").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for diff duration.
	Buckets []float64

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the diff duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "viewdiff",
		Subsystem: "mounting",
		// Diffs are sub-millisecond for typical trees.
		Buckets:  prometheus.ExponentialBuckets(0.00001, 4, 10),
		Registry: prometheus.DefaultRegisterer,
	}
}

// Metrics holds the Prometheus collectors of the mounting layer. A nil
// *Metrics records nothing.
type Metrics struct {
	transactions   *prometheus.CounterVec
	mutations      *prometheus.CounterVec
	diffDuration   *prometheus.HistogramVec
	commitErrors   *prometheus.CounterVec
	surfaces       prometheus.Gauge
	subscribers    prometheus.Gauge
	droppedStreams *prometheus.CounterVec
}

// NewMetrics creates and registers the mounting metrics:
//   - viewdiff_mounting_transactions_total: transactions committed, by surface
//   - viewdiff_mounting_mutations_total: mutations committed, by surface and type
//   - viewdiff_mounting_diff_duration_seconds: time spent in the differ, by surface
//   - viewdiff_mounting_commit_errors_total: rejected commits, by surface and error code
//   - viewdiff_mounting_surfaces: running surfaces
//   - viewdiff_mounting_subscribers: attached subscribers
//   - viewdiff_mounting_subscribers_dropped_total: subscribers dropped for a full buffer
//
// Registration panics if the collectors are already registered with the
// same registry.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	factory := promauto.With(config.Registry)

	return &Metrics{
		transactions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "transactions_total",
			Help:        "Total number of mounting transactions committed",
			ConstLabels: config.ConstLabels,
		}, []string{"surface"}),

		mutations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "mutations_total",
			Help:        "Total number of mutations committed",
			ConstLabels: config.ConstLabels,
		}, []string{"surface", "type"}),

		diffDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "diff_duration_seconds",
			Help:        "Time spent calculating mutations in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"surface"}),

		commitErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "commit_errors_total",
			Help:        "Total number of rejected commits",
			ConstLabels: config.ConstLabels,
		}, []string{"surface", "code"}),

		surfaces: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "surfaces",
			Help:        "Number of running surfaces",
			ConstLabels: config.ConstLabels,
		}),

		subscribers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers",
			Help:        "Number of attached transaction subscribers",
			ConstLabels: config.ConstLabels,
		}),

		droppedStreams: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "subscribers_dropped_total",
			Help:        "Total number of subscribers dropped for falling behind",
			ConstLabels: config.ConstLabels,
		}, []string{"surface"}),
	}
}

var mutationTypes = []mutation.Type{
	mutation.TypeCreate,
	mutation.TypeDelete,
	mutation.TypeInsert,
	mutation.TypeRemove,
	mutation.TypeUpdate,
}

func (m *Metrics) recordTransaction(tx *Transaction) {
	if m == nil {
		return
	}
	m.diffDuration.WithLabelValues(tx.Surface).Observe(tx.DiffDuration.Seconds())
	if len(tx.Mutations) == 0 {
		return
	}
	m.transactions.WithLabelValues(tx.Surface).Inc()
	for _, t := range mutationTypes {
		if n := tx.Mutations.Count(t); n > 0 {
			m.mutations.WithLabelValues(tx.Surface, t.String()).Add(float64(n))
		}
	}
}

func (m *Metrics) recordCommitError(surface, code string) {
	if m == nil {
		return
	}
	if code == "" {
		code = "unknown"
	}
	m.commitErrors.WithLabelValues(surface, code).Inc()
}

func (m *Metrics) surfaceStarted() {
	if m != nil {
		m.surfaces.Inc()
	}
}

func (m *Metrics) surfaceStopped() {
	if m != nil {
		m.surfaces.Dec()
	}
}

func (m *Metrics) subscriberAdded() {
	if m != nil {
		m.subscribers.Inc()
	}
}

func (m *Metrics) subscriberRemoved(surface string, dropped bool) {
	if m == nil {
		return
	}
	m.subscribers.Dec()
	if dropped {
		m.droppedStreams.WithLabelValues(surface).Inc()
	}
}
