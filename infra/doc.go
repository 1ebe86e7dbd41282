// Package infra contains technical adapters: the Home Assistant statistics
// client, metrics sinks, the MQTT state publisher and Sentry reporting.
// These packages should depend only on the interfaces defined in the core
// packages.
package infra
