package refresh

import (
	"context"
	"errors"
	"time"
)

// ErrTokenExists is returned by Register on a pair-ID collision. Callers
// regenerate the pair rather than surfacing this.
var ErrTokenExists = errors.New("refresh token already registered")

// ErrNotFound is returned when no live entry exists for the pair ID.
var ErrNotFound = errors.New("refresh entry not found")

// ErrSecretMismatch is returned by Rotate when the provided secret hash does
// not match the stored one — either a stale token after rotation or the
// losing side of a concurrent rotation race.
var ErrSecretMismatch = errors.New("refresh secret mismatch")

// Entry is one registered token pair: the owning username, the hash of the
// current refresh secret, and the ID of the access token issued with it.
type Entry struct {
	PairID        string
	Username      string
	SecretHash    [32]byte
	AccessTokenID string
	IssuedAt      time.Time
	ExpiresAt     time.Time
}

// Store is the injectable registry backing. All mutations must be atomic
// per pair ID: concurrent Rotate calls with the same provided hash must
// resolve to exactly one winner.
type Store interface {
	// Register inserts a new entry; ErrTokenExists on pair-ID collision.
	Register(ctx context.Context, entry Entry) error
	// Get returns the live entry, ErrNotFound if absent or expired.
	Get(ctx context.Context, pairID string) (Entry, error)
	// Rotate compare-and-swaps the secret hash and access-token binding.
	// Returns the post-rotation entry on success, ErrNotFound or
	// ErrSecretMismatch otherwise.
	Rotate(ctx context.Context, pairID string, providedHash, nextHash [32]byte, nextAccessTokenID string, nextExpiry time.Time) (Entry, error)
	// Delete removes the entry. Idempotent: deleting an absent entry is not
	// an error.
	Delete(ctx context.Context, pairID string) error
	// DeleteAllForUser removes every entry owned by username and reports how
	// many were dropped.
	DeleteAllForUser(ctx context.Context, username string) (int, error)
	// Close releases store resources.
	Close() error
}
