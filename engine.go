package authcore

import (
	"context"
	"errors"
	"fmt"

	"github.com/modernwms/authcore/internal/audit"
	"github.com/modernwms/authcore/internal/flows"
	"github.com/modernwms/authcore/internal/metrics"
	"github.com/modernwms/authcore/jwt"
	"github.com/modernwms/authcore/password"
	"github.com/modernwms/authcore/refresh"
)

// Engine is the built authentication engine. All methods are safe for
// concurrent use. Construct it with [Builder.Build]; the zero value returns
// [ErrEngineNotReady] from every method.
type Engine struct {
	config       Config
	users        UserStore
	registry     refresh.Store
	ownsRegistry bool
	checker      *password.Checker
	tokens       *jwt.Manager
	metrics      *metrics.Metrics
	audit        *audit.Dispatcher
	deps         flows.Deps
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.tokens != nil
}

// Login verifies the credentials and issues a fresh token pair. Unknown
// usernames, wrong passwords, and disabled accounts all return
// [ErrInvalidCredentials].
func (e *Engine) Login(ctx context.Context, username, password string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res, err := flows.Login(ctx, e.deps.Login, username, password)
	if err != nil {
		return TokenPair{}, e.mapStoreErr(err)
	}
	return e.tokenPair(res.TokenPairResult, res.Username, res.Role)
}

// Refresh redeems an expired-or-expiring access token plus its refresh token
// for a new pair. The access token's signature must verify and its expiry must
// fall within the configured grace window; the refresh token must be the
// session's current one. Concurrent calls with the same refresh token succeed
// exactly once, and the losers revoke the session.
func (e *Engine) Refresh(ctx context.Context, accessToken, refreshToken string) (TokenPair, error) {
	if !e.ready() {
		return TokenPair{}, ErrEngineNotReady
	}

	res, err := flows.Refresh(ctx, e.deps.Refresh, accessToken, refreshToken)
	if err != nil {
		return TokenPair{}, e.mapStoreErr(err)
	}
	return e.tokenPair(res.TokenPairResult, res.Username, res.Role)
}

// Authorize validates the access token and checks that its role satisfies
// minRole. Pure token inspection: no registry lookups, no grace window.
func (e *Engine) Authorize(ctx context.Context, accessToken string, minRole Role) (AuthResult, error) {
	if !e.ready() {
		return AuthResult{}, ErrEngineNotReady
	}
	if !minRole.Valid() {
		return AuthResult{}, ErrInvalidRole
	}

	res, err := flows.Validate(ctx, e.deps.Validate, accessToken, uint8(minRole))
	if err != nil {
		return AuthResult{}, err
	}

	role, err := ParseRole(res.Role)
	if err != nil {
		return AuthResult{}, ErrInvalidRole
	}

	return AuthResult{
		Username:  res.Username,
		Role:      role,
		TokenID:   res.TokenID,
		ExpiresAt: res.ExpiresAt,
	}, nil
}

// Logout revokes the refresh session identified by the opaque token.
// Idempotent: revoking an unknown or already-revoked token succeeds.
func (e *Engine) Logout(ctx context.Context, refreshToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.mapStoreErr(flows.Logout(ctx, e.deps.Logout, refreshToken))
}

// LogoutAll revokes every refresh session for the user and reports how many
// were dropped.
func (e *Engine) LogoutAll(ctx context.Context, username string) (int, error) {
	if !e.ready() {
		return 0, ErrEngineNotReady
	}
	dropped, err := flows.LogoutAll(ctx, e.deps.Logout, username)
	return dropped, e.mapStoreErr(err)
}

// ChangePassword verifies the old password, stores an argon2id hash of the
// new one, and revokes all outstanding refresh sessions for the user.
func (e *Engine) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return e.mapStoreErr(flows.ChangePassword(ctx, e.deps.Password, username, oldPassword, newPassword))
}

// MetricsSnapshot copies the current counter and histogram values.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.SnapshotNow()
}

// AuditDropped reports how many audit events were discarded because the
// dispatch buffer was full.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// Close drains the audit dispatcher and stops any registry the engine created
// itself. Registries and Redis clients supplied by the caller stay open.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
	if e.ownsRegistry && e.registry != nil {
		_ = e.registry.Close()
	}
}

// mapStoreErr translates registry-level failures to the engine's sentinels.
func (e *Engine) mapStoreErr(err error) error {
	switch {
	case errors.Is(err, refresh.ErrRedisUnavailable):
		return fmt.Errorf("%w: %v", ErrRegistryUnavailable, err)
	case errors.Is(err, refresh.ErrTokenExists):
		return fmt.Errorf("%w: %v", ErrDuplicateRefreshToken, err)
	}
	return err
}

func (e *Engine) tokenPair(pair flows.TokenPairResult, username, roleName string) (TokenPair, error) {
	role, err := ParseRole(roleName)
	if err != nil {
		return TokenPair{}, ErrInvalidRole
	}
	return TokenPair{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.AccessExpiresAt,
		Username:     username,
		Role:         role,
	}, nil
}
