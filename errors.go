package authcore

import "errors"

var (
	// ErrUserNotFound is returned by credential verification when the username
	// has no record in the user store. Callers facing end users should report
	// it as invalid credentials to avoid account enumeration.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidCredentials is returned when the password digest does not match
	// the stored hash.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrSigning indicates the token signing key is missing or unusable. It is
	// fatal at build time; a running engine never returns it per request.
	ErrSigning = errors.New("token signing unavailable")
	// ErrTokenMalformed is returned when an access token cannot be decoded or
	// its signature does not verify.
	ErrTokenMalformed = errors.New("malformed token")
	// ErrTokenExpired is returned by Authorize when the access token is past
	// its embedded expiry. No grace applies on this path.
	ErrTokenExpired = errors.New("token expired")
	// ErrInsufficientRole is returned when the token's role does not satisfy
	// the required role for the route.
	ErrInsufficientRole = errors.New("insufficient role")
	// ErrRefreshInvalid is returned when a refresh token is unknown, already
	// rotated, or bound to a different user. The caller must reauthenticate.
	ErrRefreshInvalid = errors.New("invalid refresh token")
	// ErrRefreshBeyondGrace is returned when the access token presented for
	// refresh expired further back than the configured grace window.
	ErrRefreshBeyondGrace = errors.New("token expired beyond refresh grace")
	// ErrDuplicateRefreshToken is returned by registry stores on a pair-ID
	// collision. The login flow regenerates instead of surfacing it.
	ErrDuplicateRefreshToken = errors.New("duplicate refresh token")
	// ErrInvalidRole is returned when a role string cannot be parsed.
	ErrInvalidRole = errors.New("invalid role")
	// ErrRegistryUnavailable is returned when the refresh registry backend
	// cannot be reached.
	ErrRegistryUnavailable = errors.New("refresh registry unavailable")
	// ErrEngineNotReady is returned by Engine methods on a zero or closed engine.
	ErrEngineNotReady = errors.New("engine not initialized")
)
