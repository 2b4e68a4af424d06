// Package flows holds the engine's operation implementations. The root engine
// builds one Deps value at construction time and delegates each request method
// to the matching flow function. Dependencies the root package owns (user
// lookup, role parsing, sentinel errors) arrive as function values and error
// fields so this package never imports the root.
package flows

import (
	"context"
	"time"

	"github.com/modernwms/authcore/internal/audit"
	"github.com/modernwms/authcore/internal/metrics"
	"github.com/modernwms/authcore/jwt"
	"github.com/modernwms/authcore/refresh"
)

// UserRecord is the flow-local user model.
type UserRecord struct {
	UserID       string
	Username     string
	PasswordHash string
	Role         string
	Active       bool
}

// Shared carries the dependencies every flow needs.
type Shared struct {
	Tokens   *jwt.Manager
	Registry refresh.Store
	Metrics  *metrics.Metrics
	Audit    *audit.Dispatcher

	RefreshTTL time.Duration

	Now              func() time.Time
	ClientIP         func(context.Context) string
	NewAccessTokenID func() string

	GetUserByUsername  func(context.Context, string) (UserRecord, error)
	UpdatePasswordHash func(context.Context, string, string) error
}

// Deps groups flow dependency sets.
type Deps struct {
	Login    LoginDeps
	Refresh  RefreshDeps
	Validate ValidateDeps
	Logout   LogoutDeps
	Password PasswordDeps
}

func (s Shared) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s Shared) clientIP(ctx context.Context) string {
	if s.ClientIP != nil {
		return s.ClientIP(ctx)
	}
	return ""
}

func (s Shared) emit(ctx context.Context, eventType, username, pairID string, success bool, failure error) {
	if s.Audit == nil {
		return
	}
	event := audit.Event{
		Timestamp: s.now(),
		EventType: eventType,
		Username:  username,
		PairID:    pairID,
		IP:        s.clientIP(ctx),
		Success:   success,
	}
	if failure != nil {
		event.Error = failure.Error()
	}
	s.Audit.Emit(ctx, event)
}

// Audit event types shared across flows.
const (
	EventLogin          = "login"
	EventRefresh        = "refresh"
	EventRefreshReuse   = "refresh_reuse"
	EventLogout         = "logout"
	EventLogoutAll      = "logout_all"
	EventPasswordChange = "password_change"
)
