package flows

import (
	"context"
	"errors"
	"time"

	"github.com/modernwms/authcore/internal/metrics"
	"github.com/modernwms/authcore/jwt"
)

// ValidateErrors carries host-level sentinel errors used by the validate flow.
type ValidateErrors struct {
	Malformed        error
	Expired          error
	InvalidRole      error
	InsufficientRole error
}

// ValidateDeps captures bearer validation dependencies.
type ValidateDeps struct {
	Shared Shared
	Errors ValidateErrors

	// RoleValue maps a role name to its ordering rank. Higher ranks satisfy
	// lower requirements.
	RoleValue func(name string) (uint8, error)
}

// ValidateResult is the flow-local authorization response shape.
type ValidateResult struct {
	Username  string
	Role      string
	TokenID   string
	ExpiresAt time.Time
}

// Validate checks the access token and the role gate. This is the hot path:
// no registry access, only signature verification and claim checks.
func Validate(ctx context.Context, d ValidateDeps, token string, minRole uint8) (ValidateResult, error) {
	s := d.Shared
	start := s.now()

	claims, err := s.Tokens.ParseAccess(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpired) {
			s.Metrics.Inc(metrics.MetricTokenExpired)
			return ValidateResult{}, d.Errors.Expired
		}
		return ValidateResult{}, d.Errors.Malformed
	}

	rank, err := d.RoleValue(claims.Role)
	if err != nil {
		return ValidateResult{}, d.Errors.InvalidRole
	}
	if rank < minRole {
		s.Metrics.Inc(metrics.MetricAuthorizeDenied)
		return ValidateResult{}, d.Errors.InsufficientRole
	}

	s.Metrics.Observe(metrics.MetricValidateLatency, s.now().Sub(start))

	var expiresAt time.Time
	if claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}

	return ValidateResult{
		Username:  claims.Subject,
		Role:      claims.Role,
		TokenID:   claims.ID,
		ExpiresAt: expiresAt,
	}, nil
}
