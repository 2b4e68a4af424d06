package flows

import (
	"context"
	"errors"

	"github.com/modernwms/authcore/internal/metrics"
	"github.com/modernwms/authcore/jwt"
	"github.com/modernwms/authcore/refresh"
)

// RefreshErrors carries host-level sentinel errors used by the refresh flow.
type RefreshErrors struct {
	Invalid     error
	BeyondGrace error
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Shared Shared
	Errors RefreshErrors
}

// RefreshResult is the flow-local refresh response shape.
type RefreshResult struct {
	TokenPairResult
	Username string
	Role     string
}

// Refresh rotates a refresh session and issues a new token pair. The expired
// access token must carry a valid signature and match the session's recorded
// username and access-token ID; the opaque refresh secret is swapped with a
// compare-and-swap so concurrent presentations of the same token produce
// exactly one winner. A losing swap is treated as token reuse and revokes the
// whole session.
func Refresh(ctx context.Context, d RefreshDeps, accessToken, refreshToken string) (RefreshResult, error) {
	s := d.Shared

	claims, err := s.Tokens.ParseForRefresh(accessToken)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredBeyondGrace) {
			return refreshFailure(ctx, d, "", "", d.Errors.BeyondGrace)
		}
		return refreshFailure(ctx, d, "", "", d.Errors.Invalid)
	}

	pairID, secret, err := refresh.DecodeToken(refreshToken)
	if err != nil {
		return refreshFailure(ctx, d, claims.Subject, "", d.Errors.Invalid)
	}

	entry, err := s.Registry.Get(ctx, pairID)
	if err != nil {
		return refreshFailure(ctx, d, claims.Subject, pairID, d.Errors.Invalid)
	}
	if entry.Username != claims.Subject || entry.AccessTokenID != claims.ID {
		return refreshFailure(ctx, d, claims.Subject, pairID, d.Errors.Invalid)
	}

	jti := s.NewAccessTokenID()
	access, expiresAt, err := s.Tokens.CreateAccess(entry.Username, claims.Role, jti)
	if err != nil {
		return RefreshResult{}, err
	}

	nextSecret, err := refresh.NewSecret()
	if err != nil {
		return RefreshResult{}, err
	}

	now := s.now()
	rotated, err := s.Registry.Rotate(ctx, pairID,
		refresh.HashSecret(secret), refresh.HashSecret(nextSecret),
		jti, now.Add(s.RefreshTTL))
	switch {
	case errors.Is(err, refresh.ErrSecretMismatch):
		// The presented secret was already consumed. Someone holds a copy of
		// a rotated-out token, so the session cannot be trusted anymore.
		_ = s.Registry.Delete(ctx, pairID)
		s.Metrics.Inc(metrics.MetricRefreshReuseDetected)
		s.Metrics.Inc(metrics.MetricSessionInvalidated)
		s.emit(ctx, EventRefreshReuse, entry.Username, pairID, false, d.Errors.Invalid)
		return refreshFailure(ctx, d, entry.Username, pairID, d.Errors.Invalid)
	case errors.Is(err, refresh.ErrNotFound):
		return refreshFailure(ctx, d, entry.Username, pairID, d.Errors.Invalid)
	case err != nil:
		return RefreshResult{}, err
	}

	token, err := refresh.EncodeToken(rotated.PairID, nextSecret)
	if err != nil {
		return RefreshResult{}, err
	}

	s.Metrics.Inc(metrics.MetricRefreshSuccess)
	s.emit(ctx, EventRefresh, rotated.Username, rotated.PairID, true, nil)

	return RefreshResult{
		TokenPairResult: TokenPairResult{
			AccessToken:     access,
			RefreshToken:    token,
			AccessExpiresAt: expiresAt,
			PairID:          rotated.PairID,
		},
		Username: rotated.Username,
		Role:     claims.Role,
	}, nil
}

func refreshFailure(ctx context.Context, d RefreshDeps, username, pairID string, sentinel error) (RefreshResult, error) {
	d.Shared.Metrics.Inc(metrics.MetricRefreshFailure)
	d.Shared.emit(ctx, EventRefresh, username, pairID, false, sentinel)
	return RefreshResult{}, sentinel
}
