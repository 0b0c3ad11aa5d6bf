// internal/app/features/pickups/handler.go

// Package pickups exposes the pickup-request flow: parents open requests
// against an enrolled member, staff accept or decline, and both sides chat
// on a per-request websocket. Messages are persisted first and fanned out
// second; a delivery failure never loses a stored message.
package pickups

import (
	"fmt"
	"net/http"

	"maktabhub/internal/app/features/shared"
	pickupstore "maktabhub/internal/app/store/pickups"
	rosterstore "maktabhub/internal/app/store/roster"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/hub"
	"maktabhub/internal/app/system/namespace"
	"maktabhub/internal/app/system/notify"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Handler provides HTTP and websocket handlers for pickup requests.
type Handler struct {
	Pickups  *pickupstore.Store
	Roster   *rosterstore.Store
	Hub      *hub.Hub
	Notifier *notify.Notifier
	Log      *zap.Logger

	upgrader websocket.Upgrader
}

// NewHandler creates a new pickups Handler.
func NewHandler(pickups *pickupstore.Store, roster *rosterstore.Store, h *hub.Hub, notifier *notify.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		Pickups:  pickups,
		Roster:   roster,
		Hub:      h,
		Notifier: notifier,
		Log:      logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Session cookie auth already gates the endpoint.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

type createRequest struct {
	MemberID string `json:"member_id"`
	GroupKey string `json:"group_id"`
	Role     string `json:"role"` // namespace of the member: teacher | caregiver
}

// HandleCreate handles POST /api/pickups. Parent only; the member reference
// is verified against the roster before the request is stored.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	parentID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	var req createRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	memberID, err := primitive.ObjectIDFromHex(req.MemberID)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid member id")
		return
	}
	ns, err := namespace.ForRole(req.Role)
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "role must be teacher or caregiver")
		return
	}

	members, err := h.Roster.ListMembers(r.Context(), ns, req.GroupKey)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	var member *models.Member
	for i := range members {
		if members[i].ID == memberID {
			member = &members[i]
			break
		}
	}
	if member == nil {
		shared.WriteError(w, http.StatusNotFound, "member not found in group")
		return
	}

	created, err := h.Pickups.CreateRequest(r.Context(), models.PickupRequest{
		MemberID:   member.ID,
		MemberName: member.FullName(),
		GroupKey:   req.GroupKey,
		ParentID:   parentID,
		ParentName: u.Name,
	})
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	h.Notifier.Send(r.Context(), notify.EventPickupRequested,
		"Pickup requested",
		fmt.Sprintf("%s requested pickup of %s", created.ParentName, created.MemberName),
		map[string]string{"group": created.GroupKey, "request": created.ID})
	shared.WriteJSON(w, http.StatusCreated, created)
}

// HandleList handles GET /api/pickups. Parents see their own requests;
// staff see requests for the groups they can access.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	u, _ := auth.CurrentUser(r)
	actorID, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid session")
		return
	}

	var out []models.PickupRequest
	if u.Role == models.RoleParent {
		out, err = h.Pickups.ListForParent(r.Context(), actorID)
	} else {
		ns, nerr := namespace.ForRole(u.Role)
		if nerr != nil {
			shared.WriteError(w, http.StatusForbidden, "role has no pickup queue")
			return
		}
		var groups []models.RosterGroup
		groups, err = h.Roster.ListGroups(r.Context(), ns, actorID)
		if err == nil {
			keys := make([]string, len(groups))
			for i, g := range groups {
				keys[i] = g.Key
			}
			out, err = h.Pickups.ListForGroups(r.Context(), keys)
		}
	}
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	if out == nil {
		out = []models.PickupRequest{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

type answerRequest struct {
	Status string `json:"status"` // accepted | declined
}

// HandleAnswer handles POST /api/pickups/{id}/answer. Staff only.
func (h *Handler) HandleAnswer(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req answerRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if req.Status != models.PickupAccepted && req.Status != models.PickupDeclined {
		shared.WriteError(w, http.StatusBadRequest, "status must be accepted or declined")
		return
	}

	answered, err := h.Pickups.Answer(r.Context(), id, req.Status)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	h.Hub.Broadcast(id, hub.Event{Type: "status", Payload: statusPayload(answered.Status)})
	h.Notifier.Send(r.Context(), notify.EventPickupAnswered,
		"Pickup "+answered.Status,
		fmt.Sprintf("Pickup of %s was %s", answered.MemberName, answered.Status),
		map[string]string{"request": answered.ID})
	shared.WriteJSON(w, http.StatusOK, answered)
}

// HandleMessages handles GET /api/pickups/{id}/messages.
func (h *Handler) HandleMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if _, err := h.Pickups.GetRequest(r.Context(), id); err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	msgs, err := h.Pickups.ListMessages(r.Context(), id)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	if msgs == nil {
		msgs = []models.PickupMessage{}
	}
	shared.WriteJSON(w, http.StatusOK, msgs)
}

func statusPayload(status string) []byte {
	return []byte(fmt.Sprintf(`{"status":%q}`, status))
}
