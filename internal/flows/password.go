package flows

import (
	"context"
	"errors"

	"github.com/modernwms/authcore/internal/metrics"
)

// PasswordErrors carries host-level sentinel errors used by the password flow.
type PasswordErrors struct {
	InvalidCredentials error
	UserNotFound       error
}

// PasswordDeps captures password change dependencies.
type PasswordDeps struct {
	Shared Shared
	Errors PasswordErrors

	VerifyPassword func(password, stored string) (ok bool, legacy bool, err error)
	HashPassword   func(password string) (string, error)
}

// ChangePassword verifies the old password, stores a rehash of the new one,
// and revokes every outstanding refresh session for the user.
func ChangePassword(ctx context.Context, d PasswordDeps, username, oldPassword, newPassword string) error {
	s := d.Shared

	user, err := s.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, d.Errors.UserNotFound) {
			return d.Errors.UserNotFound
		}
		return err
	}

	ok, _, err := d.VerifyPassword(oldPassword, user.PasswordHash)
	if err != nil || !ok {
		s.Metrics.Inc(metrics.MetricPasswordChangeInvalidOld)
		s.emit(ctx, EventPasswordChange, username, "", false, d.Errors.InvalidCredentials)
		return d.Errors.InvalidCredentials
	}

	newHash, err := d.HashPassword(newPassword)
	if err != nil {
		return err
	}
	if err := s.UpdatePasswordHash(ctx, user.UserID, newHash); err != nil {
		return err
	}

	// Outstanding sessions were authenticated with the old password.
	if _, err := s.Registry.DeleteAllForUser(ctx, username); err != nil {
		return err
	}

	s.Metrics.Inc(metrics.MetricPasswordChangeSuccess)
	s.emit(ctx, EventPasswordChange, username, "", true, nil)
	return nil
}
