// Package refresh implements the refresh-token registry: the only mutable
// shared state in the auth core.
//
// A refresh token is an opaque base64url string carrying a 16-byte pair ID
// and a 32-byte random secret. The registry never stores the secret itself,
// only its SHA-256 hash, keyed by pair ID together with the owning username
// and the ID of the access token it was issued alongside.
//
// Rotation is a per-key compare-and-swap: the provided secret hash must match
// the stored one, and the swap to the next hash is atomic. Two concurrent
// rotations of the same token therefore resolve to exactly one winner; the
// loser observes a mismatch and must reauthenticate.
//
// Two stores are provided: MemoryStore (process-local, the default — all
// sessions die with the process) and RedisStore (shared, survives restarts,
// CAS via a server-side script).
package refresh
