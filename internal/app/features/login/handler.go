// internal/app/features/login/handler.go

// Package login verifies email+password credentials and opens a session.
package login

import (
	"errors"
	"net/http"

	"maktabhub/internal/app/features/shared"
	userstore "maktabhub/internal/app/store/users"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/normalize"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// Handler provides the login endpoint.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler creates a new login Handler.
func NewHandler(users *userstore.Store, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{Users: users, SessionMgr: sm, Log: logger}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// HandleLogin handles POST /auth/login. Credential failures are always the
// same 401 regardless of whether the account exists.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	req.Email = normalize.Email(req.Email)

	u, err := h.Users.GetByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, userstore.ErrProfileNotFound) {
			shared.WriteError(w, http.StatusUnauthorized, "invalid email or password")
			return
		}
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	if u.PasswordHash == "" ||
		bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(req.Password)) != nil {
		h.Log.Info("login failed", zap.String("email", req.Email))
		shared.WriteError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}

	sessionUser := auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
	if err := h.SessionMgr.SignIn(w, r, sessionUser); err != nil {
		h.Log.Error("sign in failed", zap.Error(err))
		shared.WriteError(w, http.StatusInternalServerError, "session error")
		return
	}

	h.Log.Info("user logged in", zap.String("user_id", u.ID.Hex()))
	shared.WriteJSON(w, http.StatusOK, u)
}
