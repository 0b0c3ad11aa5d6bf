// internal/app/features/dashboard/routes.go
package dashboard

import (
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the dashboard routes.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleTeacher, models.RoleCaregiver))

	r.Get("/", h.HandleStats)

	return r
}
