// Package redisbus implements bus.Bus on Redis Pub/Sub for coordinator
// instances spread across processes. Redis delivers published messages back
// to the publisher as well, so origin filtering upstream is mandatory.
package redisbus
