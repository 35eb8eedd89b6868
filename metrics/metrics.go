// Package metrics abstracts metric registration/recording behind one
// interface so that pdoflow's worker loop and pool supervisor never touch
// prometheus/client_golang directly -- a Worker or Pool just holds a
// Metrics and calls Register/Record against whatever sink the operator
// wired in (Prometheus in production, a fake in tests).
package metrics

// Metrics is intentionally label-optional: the plain Register/Record pair
// covers most of pdoflow's own counters and gauges, and
// *WithLabels exists for sinks that want to break a metric down further
// (e.g. claim errors by poster) without widening the plain methods'
// signatures.
type Metrics interface {
	Register(name, metricType, help string)
	Record(name string, value float64)
	RegisterWithLabels(name, metricType, help string, labels []string)
	RecordWithLabels(name string, value float64, labelValues ...string)
}
