package authcore

import (
	"errors"
	"time"
)

// Config defines all engine policy. Configure it before [Builder.Build] and
// treat it as immutable afterwards.
type Config struct {
	JWT       JWTConfig
	Password  PasswordConfig
	Bootstrap BootstrapConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// JWTConfig controls access-token signing and the refresh grace policy.
type JWTConfig struct {
	// AccessTTL bounds access-token validity. Default 24h to match the
	// documented warehouse deployment policy.
	AccessTTL time.Duration
	// RefreshTTL bounds how long a refresh token stays redeemable.
	RefreshTTL time.Duration
	// RefreshGrace is how far past its expiry an access token is still
	// accepted on the refresh path. Authorize never applies it.
	RefreshGrace time.Duration
	// SigningMethod is "hs256" (default) or "ed25519".
	SigningMethod string
	// Secret is the HS256 signing secret. Required for hs256.
	Secret []byte
	// PrivateKey and PublicKey are the ed25519 key pair. Required for ed25519.
	PrivateKey []byte
	PublicKey  []byte
	Issuer     string
	Audience   string
	// Leeway absorbs clock skew during strict validation. Max 2 minutes.
	Leeway time.Duration
}

// PasswordConfig holds argon2id parameters and the legacy-digest policy.
type PasswordConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
	SaltLength  uint32
	KeyLength   uint32
	// AllowLegacyDigest accepts 32-char MD5 hex digests stored by the previous
	// system. Migration shim only; leave off for new deployments.
	AllowLegacyDigest bool
	// UpgradeOnLogin rehashes a legacy digest to argon2id after a successful
	// login, writing through UserStore.UpdatePasswordHash.
	UpgradeOnLogin bool
}

// BootstrapConfig seeds a single administrative identity at build time when
// the user store does not know the username yet. It exists so a fresh install
// is reachable, not as a production credential.
type BootstrapConfig struct {
	Enabled  bool
	Username string
	// Password is hashed with argon2id before seeding. Ignored when
	// LegacyDigest is set.
	Password string
	// LegacyDigest seeds the stored hash verbatim (MD5 hex), reproducing the
	// previous system's bootstrap account. Requires AllowLegacyDigest.
	LegacyDigest string
	Role         Role
}

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the calling request when
	// the buffer is saturated. Dropped counts are observable via
	// [Engine.AuditDropped].
	DropIfFull bool
}

// MetricsConfig controls the in-process metrics registry.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline policy: 24h access tokens, 7d refresh
// tokens, 5m refresh grace, hs256 signing (secret must still be supplied),
// argon2id at 64MB/3/2, audit and metrics enabled.
func DefaultConfig() Config {
	return Config{
		JWT: JWTConfig{
			AccessTTL:     24 * time.Hour,
			RefreshTTL:    7 * 24 * time.Hour,
			RefreshGrace:  5 * time.Minute,
			SigningMethod: "hs256",
			Issuer:        "authcore",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:      64 * 1024,
			Time:        3,
			Parallelism: 2,
			SaltLength:  16,
			KeyLength:   32,
		},
		Bootstrap: BootstrapConfig{
			Enabled:  false,
			Username: "admin",
			Role:     RoleAdmin,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks internal consistency. Builder.Build calls it; direct use is
// handy in config-loading code.
func (c Config) Validate() error {
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT.RefreshTTL must be positive")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT.RefreshTTL must not be shorter than AccessTTL")
	}
	if c.JWT.RefreshGrace < 0 {
		return errors.New("JWT.RefreshGrace must not be negative")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT.Leeway must be between 0 and 2m")
	}
	switch c.JWT.SigningMethod {
	case "hs256", "ed25519":
	default:
		return errors.New("JWT.SigningMethod must be hs256 or ed25519")
	}
	if c.Bootstrap.Enabled {
		if c.Bootstrap.Username == "" {
			return errors.New("Bootstrap.Username required when bootstrap enabled")
		}
		if c.Bootstrap.Password == "" && c.Bootstrap.LegacyDigest == "" {
			return errors.New("Bootstrap requires Password or LegacyDigest")
		}
		if c.Bootstrap.LegacyDigest != "" && !c.Password.AllowLegacyDigest {
			return errors.New("Bootstrap.LegacyDigest requires Password.AllowLegacyDigest")
		}
		if !c.Bootstrap.Role.Valid() {
			return errors.New("Bootstrap.Role invalid")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize < 0 {
		return errors.New("Audit.BufferSize must not be negative")
	}
	return nil
}

func cloneConfig(c Config) Config {
	out := c
	out.JWT.Secret = cloneBytes(c.JWT.Secret)
	out.JWT.PrivateKey = cloneBytes(c.JWT.PrivateKey)
	out.JWT.PublicKey = cloneBytes(c.JWT.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
