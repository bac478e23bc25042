// Package transport implements the /api/auth/* network contract: request
// construction, response decoding, and the classification every caller
// depends on: authoritative rejection versus transient transport failure.
//
// # What this package must NOT do
//
//   - Mutate coordinator state. It only reports what the server said.
//   - Treat a timeout or 5xx as an authoritative rejection. Flaky
//     connectivity must never log a user out.
package transport
