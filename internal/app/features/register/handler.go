// internal/app/features/register/handler.go

// Package register creates email+password accounts. The role is chosen at
// signup and fixed afterwards; it decides which roster namespace the
// account operates on.
package register

import (
	"net/http"

	"maktabhub/internal/app/features/shared"
	userstore "maktabhub/internal/app/store/users"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/normalize"
	"maktabhub/internal/domain/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// BcryptCost is the bcrypt work factor for password hashes.
const BcryptCost = 12

// Handler provides the registration endpoint.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler creates a new register Handler.
func NewHandler(users *userstore.Store, sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{Users: users, SessionMgr: sm, Log: logger}
}

type registerRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

// HandleRegister handles POST /auth/register. On success the new account
// is signed in immediately.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}

	req.FullName = normalize.Name(req.FullName)
	req.Email = normalize.Email(req.Email)
	req.Role = normalize.Role(req.Role)

	switch {
	case req.FullName == "":
		shared.WriteError(w, http.StatusBadRequest, "full name is required")
		return
	case req.Email == "":
		shared.WriteError(w, http.StatusBadRequest, "email is required")
		return
	case len(req.Password) < 8:
		shared.WriteError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	case !models.IsValidRole(req.Role):
		shared.WriteError(w, http.StatusBadRequest, "role must be teacher, caregiver, or parent")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), BcryptCost)
	if err != nil {
		h.Log.Error("hash password", zap.Error(err))
		shared.WriteError(w, http.StatusInternalServerError, "registration failed")
		return
	}

	u, err := h.Users.Create(r.Context(), models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Role:         req.Role,
		PasswordHash: string(hash),
	})
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	sessionUser := auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
	if err := h.SessionMgr.SignIn(w, r, sessionUser); err != nil {
		h.Log.Error("sign in after registration", zap.Error(err))
		shared.WriteError(w, http.StatusInternalServerError, "session error")
		return
	}

	h.Log.Info("account registered",
		zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))
	shared.WriteJSON(w, http.StatusCreated, u)
}
