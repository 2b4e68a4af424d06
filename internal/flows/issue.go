package flows

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/modernwms/authcore/refresh"
)

// registerAttempts bounds pair-ID regeneration when Register reports a
// collision. Collisions on 128-bit random IDs are not expected in practice.
const registerAttempts = 3

// TokenPairResult is the issuance output shared by login and refresh.
type TokenPairResult struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time
	PairID          string
}

// issuePair mints an access token, registers a fresh refresh session bound to
// its token ID, and encodes the opaque refresh token.
func issuePair(ctx context.Context, s Shared, username, role string) (TokenPairResult, error) {
	jti := s.NewAccessTokenID()
	access, expiresAt, err := s.Tokens.CreateAccess(username, role, jti)
	if err != nil {
		return TokenPairResult{}, err
	}

	for attempt := 0; attempt < registerAttempts; attempt++ {
		pairID, err := refresh.NewPairID()
		if err != nil {
			return TokenPairResult{}, err
		}
		secret, err := refresh.NewSecret()
		if err != nil {
			return TokenPairResult{}, err
		}

		now := s.now()
		entry := refresh.Entry{
			PairID:        pairID.String(),
			Username:      username,
			SecretHash:    refresh.HashSecret(secret),
			AccessTokenID: jti,
			IssuedAt:      now,
			ExpiresAt:     now.Add(s.RefreshTTL),
		}

		switch err := s.Registry.Register(ctx, entry); {
		case errors.Is(err, refresh.ErrTokenExists):
			continue
		case err != nil:
			return TokenPairResult{}, err
		}

		token, err := refresh.EncodeToken(entry.PairID, secret)
		if err != nil {
			return TokenPairResult{}, err
		}

		return TokenPairResult{
			AccessToken:     access,
			RefreshToken:    token,
			AccessExpiresAt: expiresAt,
			PairID:          entry.PairID,
		}, nil
	}

	return TokenPairResult{}, fmt.Errorf("refresh session registration: %w", refresh.ErrTokenExists)
}
