// Package natsbus implements bus.Bus on a NATS subject. NATS delivers
// published messages back to subscribers on the same connection, so origin
// filtering upstream is mandatory.
package natsbus
