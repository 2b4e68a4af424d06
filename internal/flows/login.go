package flows

import (
	"context"
	"errors"

	"github.com/modernwms/authcore/internal/metrics"
)

// LoginErrors carries host-level sentinel errors used by the login flow.
type LoginErrors struct {
	InvalidCredentials error
	UserNotFound       error
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Shared Shared
	Errors LoginErrors

	UpgradeOnLogin bool

	VerifyPassword func(password, stored string) (ok bool, legacy bool, err error)
	HashPassword   func(password string) (string, error)
}

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	TokenPairResult
	Username string
	Role     string
}

// Login verifies credentials and issues a token pair. Unknown users, disabled
// accounts, and bad passwords all fail with the same sentinel so the caller
// cannot probe which usernames exist.
func Login(ctx context.Context, d LoginDeps, username, password string) (LoginResult, error) {
	s := d.Shared

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, d.Errors.UserNotFound) {
			return loginFailure(ctx, d, username, d.Errors.InvalidCredentials)
		}
		return LoginResult{}, err
	}
	if !user.Active {
		return loginFailure(ctx, d, username, d.Errors.InvalidCredentials)
	}

	ok, legacy, err := d.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return loginFailure(ctx, d, username, d.Errors.InvalidCredentials)
	}

	if legacy && d.UpgradeOnLogin {
		// Best effort: a failed rehash must not block the login.
		if newHash, err := d.HashPassword(password); err == nil {
			if err := s.UpdatePasswordHash(ctx, user.UserID, newHash); err == nil {
				s.Metrics.Inc(metrics.MetricLegacyHashUpgraded)
			}
		}
	}

	pair, err := issuePair(ctx, s, user.Username, user.Role)
	if err != nil {
		return LoginResult{}, err
	}

	s.Metrics.Inc(metrics.MetricLoginSuccess)
	s.Metrics.Inc(metrics.MetricSessionCreated)
	s.emit(ctx, EventLogin, user.Username, pair.PairID, true, nil)

	return LoginResult{
		TokenPairResult: pair,
		Username:        user.Username,
		Role:            user.Role,
	}, nil
}

func loginFailure(ctx context.Context, d LoginDeps, username string, sentinel error) (LoginResult, error) {
	d.Shared.Metrics.Inc(metrics.MetricLoginFailure)
	d.Shared.emit(ctx, EventLogin, username, "", false, sentinel)
	return LoginResult{}, sentinel
}
