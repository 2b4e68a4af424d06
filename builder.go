package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/modernwms/authcore/internal/audit"
	"github.com/modernwms/authcore/internal/flows"
	"github.com/modernwms/authcore/internal/metrics"
	"github.com/modernwms/authcore/jwt"
	"github.com/modernwms/authcore/password"
	"github.com/modernwms/authcore/refresh"
)

// Builder assembles an [Engine]. Configure it, then call Build exactly once.
type Builder struct {
	config Config
	redis  *redis.Client

	users     UserStore
	registry  refresh.Store
	auditSink AuditSink

	built bool
}

// New returns a builder preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole config. Key material is cloned.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithUserStore sets the credential-store collaborator. Required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithRedis backs the refresh registry with Redis instead of process memory.
// The client is owned by the caller.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithRegistry installs a custom refresh registry. Takes precedence over
// WithRedis.
func (b *Builder) WithRegistry(store refresh.Store) *Builder {
	b.registry = store
	return b
}

// WithAuditSink sets the destination for audit events. Defaults to a no-op
// sink when auditing is enabled without one.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles the counter registry.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the bearer validation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration, constructs every component, and seeds the
// bootstrap account when configured. A signing-key problem is reported here,
// wrapped in [ErrSigning], and never later per request.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}
	if b.users == nil {
		return nil, errors.New("user store required")
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	tokens, err := jwt.NewManager(jwt.Config{
		AccessTTL:     b.config.JWT.AccessTTL,
		RefreshGrace:  b.config.JWT.RefreshGrace,
		SigningMethod: jwt.SigningMethod(b.config.JWT.SigningMethod),
		Secret:        b.config.JWT.Secret,
		PrivateKey:    b.config.JWT.PrivateKey,
		PublicKey:     b.config.JWT.PublicKey,
		Issuer:        b.config.JWT.Issuer,
		Audience:      b.config.JWT.Audience,
		Leeway:        b.config.JWT.Leeway,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSigning, err)
	}

	argon, err := password.NewArgon2(password.Config{
		Memory:      b.config.Password.Memory,
		Time:        b.config.Password.Time,
		Parallelism: b.config.Password.Parallelism,
		SaltLength:  b.config.Password.SaltLength,
		KeyLength:   b.config.Password.KeyLength,
	})
	if err != nil {
		return nil, fmt.Errorf("password config: %w", err)
	}
	checker := password.NewChecker(argon, b.config.Password.AllowLegacyDigest)

	registry := b.registry
	ownsRegistry := false
	if registry == nil {
		if b.redis != nil {
			registry = refresh.NewRedisStore(b.redis, "")
		} else {
			registry = refresh.NewMemoryStore()
			ownsRegistry = true
		}
	}

	m := metrics.New(metrics.Config{
		Enabled:                 b.config.Metrics.Enabled,
		EnableLatencyHistograms: b.config.Metrics.EnableLatencyHistograms,
	})

	dispatcher := audit.NewDispatcher(audit.Config{
		Enabled:    b.config.Audit.Enabled,
		BufferSize: b.config.Audit.BufferSize,
		DropIfFull: b.config.Audit.DropIfFull,
	}, b.auditSink)

	e := &Engine{
		config:       b.config,
		users:        b.users,
		registry:     registry,
		ownsRegistry: ownsRegistry,
		checker:      checker,
		tokens:       tokens,
		metrics:      m,
		audit:        dispatcher,
	}
	e.deps = e.buildDeps()

	if b.config.Bootstrap.Enabled {
		if err := e.seedBootstrapUser(context.Background()); err != nil {
			e.Close()
			return nil, fmt.Errorf("bootstrap: %w", err)
		}
	}

	b.built = true
	return e, nil
}

func (e *Engine) buildDeps() flows.Deps {
	shared := flows.Shared{
		Tokens:     e.tokens,
		Registry:   e.registry,
		Metrics:    e.metrics,
		Audit:      e.audit,
		RefreshTTL: e.config.JWT.RefreshTTL,
		Now:        time.Now,
		ClientIP:   ClientIPFromContext,
		NewAccessTokenID: func() string {
			return uuid.NewString()
		},
		GetUserByUsername: func(ctx context.Context, username string) (flows.UserRecord, error) {
			rec, err := e.users.GetByUsername(ctx, username)
			if err != nil {
				return flows.UserRecord{}, err
			}
			return flows.UserRecord{
				UserID:       rec.UserID,
				Username:     rec.Username,
				PasswordHash: rec.PasswordHash,
				Role:         rec.Role.String(),
				Active:       rec.Active,
			}, nil
		},
		UpdatePasswordHash: e.users.UpdatePasswordHash,
	}

	return flows.Deps{
		Login: flows.LoginDeps{
			Shared: shared,
			Errors: flows.LoginErrors{
				InvalidCredentials: ErrInvalidCredentials,
				UserNotFound:       ErrUserNotFound,
			},
			UpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			VerifyPassword: e.checker.Verify,
			HashPassword:   e.checker.Hash,
		},
		Refresh: flows.RefreshDeps{
			Shared: shared,
			Errors: flows.RefreshErrors{
				Invalid:     ErrRefreshInvalid,
				BeyondGrace: ErrRefreshBeyondGrace,
			},
		},
		Validate: flows.ValidateDeps{
			Shared: shared,
			Errors: flows.ValidateErrors{
				Malformed:        ErrTokenMalformed,
				Expired:          ErrTokenExpired,
				InvalidRole:      ErrInvalidRole,
				InsufficientRole: ErrInsufficientRole,
			},
			RoleValue: func(name string) (uint8, error) {
				role, err := ParseRole(name)
				if err != nil {
					return 0, err
				}
				return uint8(role), nil
			},
		},
		Logout: flows.LogoutDeps{
			Shared: shared,
		},
		Password: flows.PasswordDeps{
			Shared: shared,
			Errors: flows.PasswordErrors{
				InvalidCredentials: ErrInvalidCredentials,
				UserNotFound:       ErrUserNotFound,
			},
			VerifyPassword: e.checker.Verify,
			HashPassword:   e.checker.Hash,
		},
	}
}

// seedBootstrapUser creates the configured administrative account when the
// store does not know it yet. An existing record is left untouched.
func (e *Engine) seedBootstrapUser(ctx context.Context) error {
	cfg := e.config.Bootstrap

	_, err := e.users.GetByUsername(ctx, cfg.Username)
	if err == nil {
		return nil
	}
	if !errors.Is(err, ErrUserNotFound) {
		return err
	}

	hash := cfg.LegacyDigest
	if hash == "" {
		hash, err = e.checker.Hash(cfg.Password)
		if err != nil {
			return err
		}
	}

	_, err = e.users.CreateUser(ctx, CreateUserInput{
		Username:     cfg.Username,
		PasswordHash: hash,
		Role:         cfg.Role,
	})
	return err
}
