// Package csrf produces and tracks the per-session anti-forgery token.
//
// Exactly one token is current at any time. Tokens are 32 bytes from a
// cryptographically secure source, base64url-encoded. When the secure source
// fails, generation degrades to a timestamp+counter value that is explicitly
// flagged as non-cryptographic; callers decide whether to proceed.
//
// Rotations carry a monotonic sequence number so that rotations arriving from
// sibling tabs can be ordered: a stale rotation message never rewinds a newer
// token.
package csrf
