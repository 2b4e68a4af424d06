// Package authcore provides the authentication and authorization core for a
// warehouse management backend: JWT access tokens, rotating opaque refresh
// tokens, and a three-tier role policy (Admin, Manager, User).
//
// The package is designed for concurrent server workloads: Engine methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build].
//
// # Architecture boundaries
//
// authcore is the public surface. It exposes [Engine], [Builder], [Config],
// the error taxonomy, and value types (TokenPair, AuthResult, UserRecord).
// Flow orchestration, audit dispatch, and the metrics registry live under
// internal/ and are never exported directly.
//
// The credential store is an external collaborator: callers implement
// [UserStore] against their own database. The refresh registry defaults to an
// in-process map and can be swapped for the Redis-backed implementation via
// [Builder.WithRedis]; the in-memory default means every outstanding refresh
// token is invalidated on process restart.
//
// # Performance contract
//
// Authorize is the hot path. It verifies the token signature and role claim
// without touching the registry or the credential store. Login and Refresh
// are allowed one registry round-trip per call.
package authcore
