// Package authcoord coordinates a browser-style client's authentication
// session: establishing it (login, register, federated link), persisting it
// across restarts, keeping it fresh ahead of expiry, validating it against
// the server, and synchronizing every change across concurrently running
// instances of the same logical client.
//
// The entry point is the Builder:
//
//	coord, err := authcoord.New().
//		WithConfig(cfg).
//		WithHTTPClient(hc).
//		WithBus(bus).
//		Build(ctx)
//
// Build hydrates persisted state, starts background validation, and
// subscribes to the synchronization bus. Coordinator state is observed
// through View(); all mutating operations return an *AuthError on failure.
//
// # Failure model
//
// Only an authoritative verdict ends a session: a validator rejection, an
// expired validity window, or a session-ended broadcast from another
// instance. A refused refresh defers to the validator rather than acting on
// its own, and transient transport failures never end a session. Local
// logout always completes even when the server is unreachable.
package authcoord
