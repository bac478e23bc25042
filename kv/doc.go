// Package kv defines the durable per-origin key-value store consumed by the
// session persistence layer, plus an in-memory implementation for tests and
// non-browser targets.
//
// # Architecture boundaries
//
// This package owns only the storage contract and the Memory implementation.
// Backed implementations (Redis, etc.) live in sub-packages and must not be
// imported from here.
//
// # What this package must NOT do
//
//   - Interpret stored values. Serialization belongs to the session package.
//   - Import authcoord or any sibling package.
package kv
