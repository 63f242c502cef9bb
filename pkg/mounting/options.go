package mounting

import (
	"log/slog"

	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/viewdiff/pkg/differ"
)

// DefaultSubscriberBuffer is the channel capacity of a subscription.
const DefaultSubscriberBuffer = 64

type options struct {
	differ   []differ.Option
	validate bool
	buffer   int
	metrics  *Metrics
	tracer   trace.Tracer
	logger   *slog.Logger
}

func defaultOptions() options {
	return options{
		buffer: DefaultSubscriberBuffer,
		tracer: defaultTracer(),
		logger: slog.Default(),
	}
}

// Option configures a Coordinator or a Registry.
type Option func(*options)

// WithDifferOptions passes opts to every differ.Calculate call.
func WithDifferOptions(opts ...differ.Option) Option {
	return func(o *options) {
		o.differ = append(o.differ, opts...)
	}
}

// WithValidation checks every transaction against stub view trees before
// it is committed: the previous stub tree with the mutations applied must
// equal a stub tree built from the new root.
func WithValidation(enabled bool) Option {
	return func(o *options) {
		o.validate = enabled
	}
}

// WithSubscriberBuffer sets the channel capacity of new subscriptions.
// Values below 1 are ignored.
func WithSubscriberBuffer(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.buffer = n
		}
	}
}

// WithMetrics records commits and subscriptions in m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithTracer sets the tracer used for commit spans. The default tracer
// comes from the global OpenTelemetry provider.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) {
		if t != nil {
			o.tracer = t
		}
	}
}

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}
