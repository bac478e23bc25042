// Package scheduler owns the single-shot refresh timer that renews a session
// before expiry. State machine: idle → armed → firing → idle, with
// armed → idle on cancellation.
//
// At most one timer is armed per coordinator instance; re-arming always
// cancels the prior timer first, so duplicate concurrent refresh calls are
// impossible. A generation counter makes a timer that fires concurrently
// with its own cancellation a no-op.
package scheduler
