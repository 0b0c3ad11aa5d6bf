// internal/app/features/classes/routes.go
package classes

import (
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the roster group routes, with the per-group member routes
// nested under /{key}/members. All routes require a signed-in teacher or
// caregiver; reconcile stays open to both since it only repairs derived
// counters.
func Routes(h *Handler, sm *auth.SessionManager, memberRoutes chi.Router) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)
	r.Use(sm.RequireRole(models.RoleTeacher, models.RoleCaregiver))

	r.Get("/", h.HandleList)
	r.Post("/", h.HandleCreate)
	r.Post("/reconcile", h.HandleReconcile)

	r.Route("/{key}", func(r chi.Router) {
		r.Get("/", h.HandleGet)
		r.Put("/", h.HandleRename)
		r.Delete("/", h.HandleDelete)
		r.Mount("/members", memberRoutes)
	})

	return r
}
