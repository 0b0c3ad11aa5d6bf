// internal/app/features/pickups/routes.go
package pickups

import (
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
)

// Routes mounts the pickup request routes. Creation is parent-only,
// answering is staff-only, the thread and the chat socket are open to any
// signed-in participant.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Use(sm.RequireSignedIn)

	r.Get("/", h.HandleList)
	r.With(sm.RequireRole(models.RoleParent)).Post("/", h.HandleCreate)

	r.Route("/{id}", func(r chi.Router) {
		r.With(sm.RequireRole(models.RoleTeacher, models.RoleCaregiver)).
			Post("/answer", h.HandleAnswer)
		r.Get("/messages", h.HandleMessages)
		r.Get("/ws", h.HandleChat)
	})

	return r
}
