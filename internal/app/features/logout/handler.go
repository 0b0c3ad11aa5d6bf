// internal/app/features/logout/handler.go

// Package logout clears the session cookie.
package logout

import (
	"net/http"

	"maktabhub/internal/app/features/shared"
	"maktabhub/internal/app/system/auth"

	"go.uber.org/zap"
)

// Handler provides the logout endpoint.
type Handler struct {
	SessionMgr *auth.SessionManager
	Log        *zap.Logger
}

// NewHandler creates a new logout Handler.
func NewHandler(sm *auth.SessionManager, logger *zap.Logger) *Handler {
	return &Handler{SessionMgr: sm, Log: logger}
}

// HandleLogout handles POST /auth/logout. Logging out while already logged
// out succeeds.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.SessionMgr.SignOut(w, r); err != nil {
		h.Log.Error("sign out failed", zap.Error(err))
		shared.WriteError(w, http.StatusInternalServerError, "session error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
