package authcore

import (
	"context"
	"strings"
	"time"
)

// Role is the access tier carried in every access token. Roles form a total
// order: Admin satisfies any requirement, Manager satisfies Manager and User,
// User satisfies only User.
type Role uint8

const (
	// RoleUser is the lowest tier: read-level warehouse access.
	RoleUser Role = iota + 1
	// RoleManager covers inventory and warehouse operations.
	RoleManager
	// RoleAdmin has full access, including user administration.
	RoleAdmin
)

// ParseRole converts a role name to a Role. Matching is case-insensitive so
// records seeded as "admin" and tokens minted as "Admin" agree.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, ErrInvalidRole
	}
}

// String returns the canonical role name.
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleManager:
		return "Manager"
	case RoleUser:
		return "User"
	default:
		return "unknown"
	}
}

// Satisfies reports whether r grants at least the capabilities of required.
func (r Role) Satisfies(required Role) bool {
	return r >= required
}

// Valid reports whether r is one of the three defined tiers.
func (r Role) Valid() bool {
	return r >= RoleUser && r <= RoleAdmin
}

// UserRecord is the account record returned by [UserStore]. PasswordHash is
// either an argon2id PHC string or, for migrated accounts, a 32-character
// legacy MD5 hex digest (accepted only when Config.Password.AllowLegacyDigest
// is set).
type UserRecord struct {
	UserID       string
	Username     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
}

// CreateUserInput is the input for [UserStore.CreateUser].
type CreateUserInput struct {
	Username     string
	PasswordHash string
	Role         Role
}

// UserStore is the credential-store collaborator that callers implement
// against their own database. The engine only reads user records during Login
// and writes through UpdatePasswordHash for digest upgrades and password
// changes; all other account lifecycle management stays with the caller.
//
// Implementations must enforce username uniqueness.
type UserStore interface {
	GetByUsername(ctx context.Context, username string) (UserRecord, error)
	CreateUser(ctx context.Context, input CreateUserInput) (UserRecord, error)
	UpdatePasswordHash(ctx context.Context, userID, newHash string) error
}

// TokenPair is the result of Login and Refresh: a signed access token, the
// opaque refresh token that can rotate it, and the access expiry.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
	Username     string
	Role         Role
}

// AuthResult is the claim decoded by [Engine.Authorize]. It is computed from
// the token's signed contents on every call and never stored.
type AuthResult struct {
	Username  string
	Role      Role
	TokenID   string
	ExpiresAt time.Time
}
