package metrics

// Package metrics defines the sinks pipeline runs report to. A sink records
// per-stage events and optionally a summary of the whole run. Sinks like
// PromSink and InfluxSink live in infra/metrics and are combined with
// NewMultiSink; the factory helpers return a MultiSink automatically when
// multiple sinks are configured.
