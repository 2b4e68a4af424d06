// Package jwt wraps github.com/golang-jwt/jwt/v5 with the access-token policy
// used by the engine: HS256 or Ed25519 signing, username and role claims, and
// two validation paths — strict expiry for authorization and a bounded grace
// window for refresh.
//
// The grace window exists because refresh is how an expiring session is
// extended; the token must still be structurally valid and correctly signed,
// only the expiry check is relaxed.
package jwt
