package flows

import (
	"context"

	"github.com/modernwms/authcore/internal/metrics"
	"github.com/modernwms/authcore/refresh"
)

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Shared Shared
}

// Logout revokes the refresh session named by the opaque token. Malformed
// tokens, unknown sessions, and stale secrets are all treated as already
// logged out.
func Logout(ctx context.Context, d LogoutDeps, refreshToken string) error {
	s := d.Shared

	pairID, secret, err := refresh.DecodeToken(refreshToken)
	if err != nil {
		return nil
	}

	entry, err := s.Registry.Get(ctx, pairID)
	if err != nil {
		return nil
	}
	// Only the current secret holder may revoke the session.
	if entry.SecretHash != refresh.HashSecret(secret) {
		return nil
	}

	if err := s.Registry.Delete(ctx, pairID); err != nil {
		return err
	}

	s.Metrics.Inc(metrics.MetricLogout)
	s.Metrics.Inc(metrics.MetricSessionInvalidated)
	s.emit(ctx, EventLogout, entry.Username, pairID, true, nil)
	return nil
}

// LogoutAll revokes every refresh session registered for the user and reports
// how many were dropped.
func LogoutAll(ctx context.Context, d LogoutDeps, username string) (int, error) {
	s := d.Shared

	dropped, err := s.Registry.DeleteAllForUser(ctx, username)
	if err != nil {
		return 0, err
	}

	s.Metrics.Inc(metrics.MetricLogoutAll)
	for i := 0; i < dropped; i++ {
		s.Metrics.Inc(metrics.MetricSessionInvalidated)
	}
	s.emit(ctx, EventLogoutAll, username, "", true, nil)
	return dropped, nil
}
