// Package observability provides logging, Prometheus metrics and OpenTelemetry
// tracing for the plugin CLI.
//
// Loggers are plain *logrus.Logger values built by NewLogger and passed into
// constructors. Metrics are registered on a caller-owned registry and can be
// flushed to a node_exporter textfile, since the CLI is short-lived and never
// serves /metrics. Tracing is off unless an OTLP endpoint is configured.
//
// ShutdownManager gathers the cleanup for all of the above and runs it once
// when a command returns.
package observability
