// Package telemetry provides OpenTelemetry initialization and helpers
// for the recipe bot and its worker.
//
// Traces, logs and metrics are exported over OTLP/HTTP. The endpoint may
// carry a base path (Grafana Cloud's "/otlp", for example) which is kept in
// front of the signal-specific paths.
package telemetry
