// internal/app/features/dashboard/handler.go

// Package dashboard serves roster statistics for the signed-in staff user.
// Figures derive from the denormalized member counters, so the endpoint
// costs one group query regardless of roster size.
package dashboard

import (
	"net/http"

	"maktabhub/internal/app/features/shared"
	rosterstore "maktabhub/internal/app/store/roster"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/namespace"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler provides the dashboard statistics endpoint.
type Handler struct {
	Roster *rosterstore.Store
	Log    *zap.Logger
}

// NewHandler creates a new dashboard Handler.
func NewHandler(roster *rosterstore.Store, logger *zap.Logger) *Handler {
	return &Handler{Roster: roster, Log: logger}
}

type statsResponse struct {
	Groups         int     `json:"groups"`
	Members        int64   `json:"members"`
	AveragePerGroup float64 `json:"average_per_group"`
	Largest        string  `json:"largest_group,omitempty"`
}

// HandleStats handles GET /api/dashboard.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	ownerID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid session")
		return
	}
	ns, err := namespace.ForRole(u.Role)
	if err != nil {
		shared.WriteError(w, http.StatusForbidden, "role has no roster")
		return
	}

	groups, err := h.Roster.ListGroups(r.Context(), ns, ownerID)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	resp := statsResponse{Groups: len(groups)}
	var largest int64 = -1
	for _, g := range groups {
		resp.Members += g.MemberCount
		if g.MemberCount > largest {
			largest = g.MemberCount
			resp.Largest = g.Label()
		}
	}
	if resp.Groups > 0 {
		resp.AveragePerGroup = float64(resp.Members) / float64(resp.Groups)
	}
	shared.WriteJSON(w, http.StatusOK, resp)
}
