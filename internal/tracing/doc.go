// Package tracing defines the OpenTelemetry span attributes used to describe
// work items.
package tracing
