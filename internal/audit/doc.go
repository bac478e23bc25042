// Package audit holds the immutable security-event model, the bounded
// retention log, and the asynchronous dispatcher that forwards events to
// caller-supplied sinks.
//
// # Architecture boundaries
//
// The retention log is appended synchronously by the coordinator so tests and
// introspection see events deterministically; only external sink delivery is
// asynchronous.
//
// # What this package must NOT do
//
//   - Mutate an event after it is appended.
//   - Block a coordinator operation on a slow sink.
package audit
