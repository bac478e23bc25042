// Package otel provides OpenTelemetry metric bindings for coordinator
// counters and histograms.
//
// [NewExporter] registers an Int64ObservableCounter per coordinator counter
// and Int64ObservableGauge per histogram bucket. A single callback reads the
// coordinator's snapshot on each collection cycle.
//
// # What this package must NOT do
//
//   - Own the OTel MeterProvider; callers supply the Meter.
//   - Mutate coordinator state.
package otel
