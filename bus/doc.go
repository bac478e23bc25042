// Package bus defines the cross-tab message channel consumed by the
// synchronizer, plus an in-process Hub implementation that links sibling
// coordinators inside one process (and in tests).
//
// # Architecture boundaries
//
// This package owns the transport contract only. Envelope encoding, origin
// filtering, and idempotent application live in internal/tabsync. Backed
// implementations (Redis Pub/Sub, NATS) live in sub-packages.
//
// # What this package must NOT do
//
//   - Guarantee delivery. The channel is best-effort by contract.
//   - Interpret payload bytes.
package bus
