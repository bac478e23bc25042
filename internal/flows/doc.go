// Package flows contains the coordinator's operation logic (login,
// register, logout, refresh, validate, link) decoupled from the root
// package through explicit dependency structs.
//
// Each flow is a pure Run function over its Deps: it performs local
// validation and the network exchange, then returns a result with a
// classified failure kind. State transitions (store writes, CSRF rotation,
// scheduler arming, cross-tab broadcast) stay in the root coordinator, which
// owns the version-stamp discipline.
package flows
