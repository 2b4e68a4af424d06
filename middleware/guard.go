package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	authcore "github.com/modernwms/authcore"
)

type authResultContextKey struct{}

// AuthResultFromContext returns the claims injected by [Guard] for the
// current request.
func AuthResultFromContext(ctx context.Context) (*authcore.AuthResult, bool) {
	res, ok := ctx.Value(authResultContextKey{}).(*authcore.AuthResult)
	return res, ok
}

// Guard returns middleware that reads the Authorization bearer token, calls
// Engine.Authorize against minRole, and injects the validated claims into the
// request context. A missing or bad token yields 401; a valid token below the
// required role yields 403.
func Guard(engine *authcore.Engine, minRole authcore.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if engine == nil {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			token, ok := bearerToken(r.Header.Get("Authorization"))
			if !ok {
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			res, err := engine.Authorize(r.Context(), token, minRole)
			if err != nil {
				if errors.Is(err, authcore.ErrInsufficientRole) {
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), authResultContextKey{}, &res)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser gates the handler at the lowest tier.
func RequireUser(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authcore.RoleUser)
}

// RequireManager gates the handler at manager level and above.
func RequireManager(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authcore.RoleManager)
}

// RequireAdmin gates the handler to administrators.
func RequireAdmin(engine *authcore.Engine) func(http.Handler) http.Handler {
	return Guard(engine, authcore.RoleAdmin)
}

func bearerToken(value string) (string, bool) {
	const bearer = "Bearer "
	if !strings.HasPrefix(value, bearer) {
		return "", false
	}

	token := value[len(bearer):]
	if token == "" {
		return "", false
	}

	return token, true
}
