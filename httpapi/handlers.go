package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	authcore "github.com/modernwms/authcore"
	"github.com/modernwms/authcore/middleware"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// tokenResponse is the data payload for login and refresh.
type tokenResponse struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
	Username     string    `json:"username"`
	Role         string    `json:"role"`
}

func tokenResponseFrom(pair authcore.TokenPair) tokenResponse {
	return tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		Username:     pair.Username,
		Role:         pair.Role.String(),
	}
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return false
	}
	return true
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "username and password required")
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	pair, err := s.engine.Login(ctx, req.Username, req.Password)
	if err != nil {
		status, msg := mapError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("login failed", "username", req.Username, "error", err)
		}
		writeError(w, status, msg)
		return
	}

	writeSuccess(w, tokenResponseFrom(pair))
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.AccessToken == "" || req.RefreshToken == "" {
		writeError(w, http.StatusBadRequest, "accessToken and refreshToken required")
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	pair, err := s.engine.Refresh(ctx, req.AccessToken, req.RefreshToken)
	if err != nil {
		status, msg := mapError(err)
		if status >= http.StatusInternalServerError {
			s.logger.Error("refresh failed", "error", err)
		}
		writeError(w, status, msg)
		return
	}

	writeSuccess(w, tokenResponseFrom(pair))
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	var req logoutRequest
	if !decodeBody(w, r, &req) {
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	if err := s.engine.Logout(ctx, req.RefreshToken); err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeSuccess(w, nil)
}

func (s *Server) handleLogoutAll(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	dropped, err := s.engine.LogoutAll(ctx, claims.Username)
	if err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeSuccess(w, map[string]int{"sessionsRevoked": dropped})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	writeSuccess(w, map[string]any{
		"username":  claims.Username,
		"role":      claims.Role.String(),
		"expiresAt": claims.ExpiresAt,
	})
}

func (s *Server) handleChangePassword(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.AuthResultFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	var req changePasswordRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "oldPassword and newPassword required")
		return
	}

	ctx := authcore.WithClientIP(r.Context(), clientIP(r))
	if err := s.engine.ChangePassword(ctx, claims.Username, req.OldPassword, req.NewPassword); err != nil {
		status, msg := mapError(err)
		writeError(w, status, msg)
		return
	}

	writeSuccess(w, nil)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeSuccess(w, map[string]string{"status": "ok"})
}
