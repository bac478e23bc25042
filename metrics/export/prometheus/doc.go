// Package prometheus exposes coordinator metrics as a Prometheus collector.
//
// [NewCollector] wraps a coordinator; [Collector.Handler] serves the scrape
// endpoint from a private registry. Counter names are prefixed
// authcoord_*_total; the single histogram is
// authcoord_validate_latency_seconds.
//
// # What this package must NOT do
//
//   - Register metrics in the global default registry.
//   - Mutate coordinator state.
package prometheus
