package password

import (
	"crypto/md5"
	"crypto/subtle"
	"encoding/hex"
)

// LegacyDigest computes the unsalted MD5 hex digest used by the previous
// warehouse system. Verification-compat only; never use for new hashes.
func LegacyDigest(password string) string {
	sum := md5.Sum([]byte(password))
	return hex.EncodeToString(sum[:])
}

// IsLegacyDigest reports whether stored has the shape of a legacy digest:
// exactly 32 lowercase hex characters.
func IsLegacyDigest(stored string) bool {
	if len(stored) != 32 {
		return false
	}
	for i := 0; i < len(stored); i++ {
		c := stored[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return false
		}
	}
	return true
}

func verifyLegacy(password, stored string) bool {
	digest := LegacyDigest(password)
	return subtle.ConstantTimeCompare([]byte(digest), []byte(stored)) == 1
}
