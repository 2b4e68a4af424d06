package password

import "errors"

// ErrUnknownHashFormat is returned when a stored hash is neither an argon2id
// PHC string nor an accepted legacy digest.
var ErrUnknownHashFormat = errors.New("unknown password hash format")

// Checker dispatches verification by stored-hash shape: argon2id PHC strings
// always, legacy MD5 digests only when allowed.
type Checker struct {
	argon       *Argon2
	allowLegacy bool
}

// NewChecker wires a Checker over the given hasher.
func NewChecker(argon *Argon2, allowLegacy bool) *Checker {
	return &Checker{argon: argon, allowLegacy: allowLegacy}
}

// Verify reports whether password matches stored. legacy is true when the
// match came through the migration shim, signalling the caller to rehash.
func (c *Checker) Verify(password, stored string) (ok bool, legacy bool, err error) {
	switch {
	case IsPHC(stored):
		ok, err = c.argon.Verify(password, stored)
		return ok, false, err
	case c.allowLegacy && IsLegacyDigest(stored):
		return verifyLegacy(password, stored), true, nil
	default:
		return false, false, ErrUnknownHashFormat
	}
}

// Hash derives a new argon2id digest.
func (c *Checker) Hash(password string) (string, error) {
	return c.argon.Hash(password)
}

// NeedsRehash reports whether stored should be upgraded: any legacy digest,
// or an argon2id hash derived with weaker parameters than configured.
func (c *Checker) NeedsRehash(stored string) bool {
	if IsLegacyDigest(stored) {
		return true
	}
	if IsPHC(stored) {
		upgrade, err := c.argon.NeedsUpgrade(stored)
		return err == nil && upgrade
	}
	return false
}
