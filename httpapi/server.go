// Package httpapi exposes the engine over HTTP with the warehouse wire
// contract: JSON requests, a uniform response envelope, and bearer-guarded
// routes. It contains no authentication logic of its own.
package httpapi

import (
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	authcore "github.com/modernwms/authcore"
	"github.com/modernwms/authcore/metrics/export/prometheus"
	"github.com/modernwms/authcore/middleware"
)

// Server mounts the authentication endpoints on a mux.
type Server struct {
	engine *authcore.Engine
	logger *slog.Logger
	prom   *prometheus.PrometheusExporter
}

// NewServer wires the HTTP surface over a built engine. A nil logger falls
// back to slog.Default.
func NewServer(engine *authcore.Engine, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		engine: engine,
		logger: logger,
		prom:   prometheus.NewPrometheusExporter(engine),
	}
}

// Router returns the handler tree. Protected routes sit behind the role guard
// middleware; /metrics and /healthz are open.
func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /login", s.handleLogin)
	mux.HandleFunc("POST /refresh-token", s.handleRefresh)
	mux.HandleFunc("POST /logout", s.handleLogout)
	mux.HandleFunc("GET /healthz", s.handleHealthz)
	mux.Handle("GET /metrics", s.prom.Handler())

	user := middleware.RequireUser(s.engine)
	mux.Handle("GET /me", user(http.HandlerFunc(s.handleMe)))
	mux.Handle("POST /change-password", user(http.HandlerFunc(s.handleChangePassword)))
	mux.Handle("POST /logout-all", user(http.HandlerFunc(s.handleLogoutAll)))

	return s.logRequests(mux)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.logger.Info("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", rec.status),
			slog.Duration("duration", time.Since(start)),
		)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			fwd = fwd[:i]
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// mapError translates engine sentinels to an HTTP status and a client-safe
// message. Unknown errors become 500 without leaking internals.
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, authcore.ErrInvalidCredentials),
		errors.Is(err, authcore.ErrUserNotFound):
		return http.StatusUnauthorized, "invalid username or password"
	case errors.Is(err, authcore.ErrTokenExpired):
		return http.StatusUnauthorized, "token expired"
	case errors.Is(err, authcore.ErrTokenMalformed):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, authcore.ErrInsufficientRole):
		return http.StatusForbidden, "insufficient role"
	case errors.Is(err, authcore.ErrRefreshBeyondGrace):
		return http.StatusUnauthorized, "refresh window expired"
	case errors.Is(err, authcore.ErrRefreshInvalid):
		return http.StatusUnauthorized, "invalid refresh token"
	case errors.Is(err, authcore.ErrRegistryUnavailable):
		return http.StatusServiceUnavailable, "service temporarily unavailable"
	default:
		return http.StatusInternalServerError, "internal error"
	}
}
