// Package tabsync propagates session and CSRF changes between sibling
// coordinator instances ("tabs") over the message bus.
//
// Messages are idempotent to apply and carry no cross-tab ordering guarantee.
// Self-sent messages are filtered by origin ID because some bus backends
// (Redis Pub/Sub, NATS) echo publishes back to the publisher. Malformed
// messages are reported and dropped, never fatal.
package tabsync
