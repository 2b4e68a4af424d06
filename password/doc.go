// Package password implements credential digests: argon2id in PHC string
// format for all new hashes, plus a verification-only shim for the unsalted
// MD5 hex digests left behind by the previous warehouse system.
//
// The legacy digest is a known anti-pattern and exists strictly as a
// migration path. It is rejected unless explicitly allowed, and a login that
// verifies against it can be upgraded in place to argon2id.
package password
