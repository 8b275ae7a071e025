package catalog

import "github.com/beam-cloud/metacatalog/pkg/metrics"

// Option configures a maintenance component.
type Option func(*options)

type options struct {
	metrics *metrics.Metrics
}

// WithMetrics records run outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
