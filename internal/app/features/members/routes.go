// internal/app/features/members/routes.go
package members

import (
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
)

// Routes mounts member routes that are not nested under a group.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleTeacher, models.RoleCaregiver))

	r.Get("/", h.HandleSearch)
	r.Get("/live", h.HandleLive)
	r.Put("/{id}", h.HandleRename)

	return r
}

// GroupRoutes mounts member routes nested under /api/groups/{key}.
func GroupRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleTeacher, models.RoleCaregiver))

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleEnroll)
	r.Delete("/{id}", h.HandleUnenroll)

	return r
}
