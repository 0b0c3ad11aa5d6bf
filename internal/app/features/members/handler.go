// internal/app/features/members/handler.go

// Package members exposes the member JSON API: enrollment, unenrollment,
// renames, search, and the live snapshot stream. Members are students in
// the teacher namespace and children in the caregiver namespace.
package members

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"maktabhub/internal/app/features/shared"
	rosterstore "maktabhub/internal/app/store/roster"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/namespace"
	"maktabhub/internal/app/system/normalize"
	"maktabhub/internal/app/system/notify"
	"maktabhub/internal/app/system/search"
	"maktabhub/internal/app/system/watch"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler provides HTTP handlers for member management.
type Handler struct {
	DB       *mongo.Database
	Roster   *rosterstore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
}

// NewHandler creates a new members Handler.
func NewHandler(db *mongo.Database, roster *rosterstore.Store, notifier *notify.Notifier, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Roster: roster, Notifier: notifier, Log: logger}
}

func actor(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, namespace.Namespace, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		shared.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return primitive.NilObjectID, namespace.Namespace{}, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid session")
		return primitive.NilObjectID, namespace.Namespace{}, false
	}
	ns, err := namespace.ForRole(u.Role)
	if err != nil {
		shared.WriteError(w, http.StatusForbidden, "role has no roster")
		return primitive.NilObjectID, namespace.Namespace{}, false
	}
	return id, ns, true
}

type memberRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

func (req *memberRequest) normalize() string {
	req.FirstName = normalize.Name(req.FirstName)
	req.LastName = normalize.Name(req.LastName)
	if req.FirstName == "" {
		return "first name is required"
	}
	return ""
}

// HandleList handles GET /api/groups/{key}/members.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	_, ns, ok := actor(w, r)
	if !ok {
		return
	}

	members, err := h.Roster.ListMembers(r.Context(), ns, chi.URLParam(r, "key"))
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	if members == nil {
		members = []models.Member{}
	}
	shared.WriteJSON(w, http.StatusOK, members)
}

// HandleEnroll handles POST /api/groups/{key}/members.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ownerID, ns, ok := actor(w, r)
	if !ok {
		return
	}
	groupKey := chi.URLParam(r, "key")

	var req memberRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if msg := req.normalize(); msg != "" {
		shared.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	m, err := h.Roster.EnrollMember(r.Context(), ns, groupKey, models.Member{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		OwnerID:   ownerID,
	})
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	h.Notifier.Send(r.Context(), notify.EventMemberEnrolled,
		"New enrollment",
		fmt.Sprintf("%s joined %s", m.FullName(), m.GroupLabel),
		map[string]string{"group": m.GroupKey})
	shared.WriteJSON(w, http.StatusCreated, m)
}

// HandleUnenroll handles DELETE /api/groups/{key}/members/{id}.
func (h *Handler) HandleUnenroll(w http.ResponseWriter, r *http.Request) {
	_, ns, ok := actor(w, r)
	if !ok {
		return
	}
	groupKey := chi.URLParam(r, "key")

	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	if err := h.Roster.UnenrollMember(r.Context(), ns, memberID, groupKey); err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	h.Notifier.Send(r.Context(), notify.EventMemberUnenrolled,
		"Member removed", "", map[string]string{"group": groupKey})
	w.WriteHeader(http.StatusNoContent)
}

// HandleRename handles PUT /api/members/{id}.
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	_, ns, ok := actor(w, r)
	if !ok {
		return
	}

	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, http.StatusBadRequest, "invalid member id")
		return
	}

	var req memberRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	if msg := req.normalize(); msg != "" {
		shared.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	if err := h.Roster.RenameMember(r.Context(), ns, memberID, req.FirstName, req.LastName); err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSearch handles GET /api/members?q=. The full visible member list is
// materialized and filtered in process, so matching behaves identically to
// the live views.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ownerID, ns, ok := actor(w, r)
	if !ok {
		return
	}

	members, err := h.Roster.ListAllMembers(r.Context(), ns, ownerID)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	out := search.FilterMembers(members, normalize.QueryParam(r.URL.Query().Get("q")))
	if out == nil {
		out = []models.Member{}
	}
	shared.WriteJSON(w, http.StatusOK, out)
}

// HandleLive handles GET /api/members/live: a server-sent event stream of
// full member snapshots, one JSON array per event. The change stream is
// released when the client disconnects.
func (h *Handler) HandleLive(w http.ResponseWriter, r *http.Request) {
	ownerID, ns, ok := actor(w, r)
	if !ok {
		return
	}

	flusher, canFlush := w.(http.Flusher)
	if !canFlush {
		shared.WriteError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	fetch := func(ctx context.Context) ([]models.Member, error) {
		return h.Roster.ListAllMembers(ctx, ns, ownerID)
	}

	sub, err := watch.Members(r.Context(), h.DB.Collection(ns.Members), fetch, h.Log)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)

	for {
		select {
		case <-r.Context().Done():
			return
		case snapshot, open := <-sub.Events():
			if !open {
				return
			}
			payload, err := json.Marshal(snapshot)
			if err != nil {
				h.Log.Error("marshal live snapshot", zap.Error(err))
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}
