// Package rediskv implements kv.Store on top of Redis, for deployments where
// coordinator instances live in separate processes and need a shared durable
// record (the per-origin store of a browser maps to a keyspace prefix here).
package rediskv
