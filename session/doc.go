// Package session holds the authenticated-session model, its persisted
// schema envelope, and the tab-local store that is the single source of truth
// for the current session inside one coordinator instance.
//
// # Architecture boundaries
//
// The Store exclusively owns the current Session; every read hands out a
// deep copy, so no caller can mutate store state in place. Persistence goes
// through the narrow kv.Store contract; this package never touches the
// network or the cross-tab bus.
//
// # What this package must NOT do
//
//   - Decide whether a session is authoritative. That is the validator's job.
//   - Fabricate a session from a corrupt persisted record: corrupt decodes
//     fail open to logged-out.
package session
