package refresh

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
)

const (
	pairIDSize   = 16
	secretSize   = 32
	tokenRawSize = pairIDSize + secretSize
)

// PairID identifies one login session's token lineage. It stays stable
// across rotations of the same session.
type PairID [pairIDSize]byte

// NewPairID draws a random pair ID.
func NewPairID() (PairID, error) {
	var id PairID
	_, err := rand.Read(id[:])
	return id, err
}

// String encodes the pair ID as compact base64url.
func (p PairID) String() string {
	return base64.RawURLEncoding.EncodeToString(p[:])
}

// ParsePairID decodes a pair ID produced by [PairID.String].
func ParsePairID(s string) (PairID, error) {
	var id PairID

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return id, err
	}
	if len(raw) != len(id) {
		return id, errors.New("invalid pair id size")
	}

	copy(id[:], raw)
	return id, nil
}

// NewSecret draws the random half of a refresh token.
func NewSecret() ([secretSize]byte, error) {
	var secret [secretSize]byte
	_, err := rand.Read(secret[:])
	return secret, err
}

// HashSecret is what the registry stores in place of the secret.
func HashSecret(secret [secretSize]byte) [32]byte {
	return sha256.Sum256(secret[:])
}

// EncodeToken packs pair ID and secret into the opaque wire string.
func EncodeToken(pairID string, secret [secretSize]byte) (string, error) {
	id, err := ParsePairID(pairID)
	if err != nil {
		return "", err
	}

	var raw [tokenRawSize]byte
	copy(raw[:len(id)], id[:])
	copy(raw[len(id):], secret[:])

	return base64.RawURLEncoding.EncodeToString(raw[:]), nil
}

// DecodeToken splits an opaque refresh token back into pair ID and secret.
func DecodeToken(token string) (string, [secretSize]byte, error) {
	var secret [secretSize]byte

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return "", secret, err
	}
	if len(raw) != tokenRawSize {
		return "", secret, errors.New("invalid refresh token size")
	}

	var id PairID
	copy(id[:], raw[:len(id)])
	copy(secret[:], raw[len(id):])

	return id.String(), secret, nil
}
