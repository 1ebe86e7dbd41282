// Package metrics defines the sinks that observe simulation runs. Each run
// produces one RunEvent and one PublishEvent per series written back to the
// statistics store. Implementations live in infra/metrics and are selected
// through the factory registry; several sinks are combined with a MultiSink.
package metrics
