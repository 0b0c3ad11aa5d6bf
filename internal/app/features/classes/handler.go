// internal/app/features/classes/handler.go

// Package classes exposes the roster-group JSON API for both namespaces:
// classes for teachers, kindergarten groups for caregivers. The namespace
// is always derived from the signed-in user's role, never from the URL.
package classes

import (
	"net/http"
	"regexp"

	"maktabhub/internal/app/features/shared"
	rosterstore "maktabhub/internal/app/store/roster"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/namespace"
	"maktabhub/internal/app/system/normalize"
	"maktabhub/internal/app/system/notify"
	"maktabhub/internal/domain/models"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Class keys are "{1..5}-{A..F}" after normalization.
var classKeyRe = regexp.MustCompile(`^[1-5]-[A-F]$`)

// Handler provides HTTP handlers for roster group management.
type Handler struct {
	Roster   *rosterstore.Store
	Notifier *notify.Notifier
	Log      *zap.Logger
}

// NewHandler creates a new classes Handler.
func NewHandler(roster *rosterstore.Store, notifier *notify.Notifier, logger *zap.Logger) *Handler {
	return &Handler{Roster: roster, Notifier: notifier, Log: logger}
}

// actor resolves the session user to an ObjectID and their roster
// namespace. Parents have no namespace and get a 403.
func actor(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, namespace.Namespace, *auth.SessionUser, bool) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		shared.WriteError(w, http.StatusUnauthorized, "unauthorized")
		return primitive.NilObjectID, namespace.Namespace{}, nil, false
	}
	id, err := primitive.ObjectIDFromHex(u.ID)
	if err != nil {
		shared.WriteError(w, http.StatusUnauthorized, "invalid session")
		return primitive.NilObjectID, namespace.Namespace{}, nil, false
	}
	ns, err := namespace.ForRole(u.Role)
	if err != nil {
		shared.WriteError(w, http.StatusForbidden, "role has no roster")
		return primitive.NilObjectID, namespace.Namespace{}, nil, false
	}
	return id, ns, u, true
}

type groupRequest struct {
	Number int    `json:"number"`
	Name   string `json:"name"`
}

// buildKey validates the request and produces the group key for the
// namespace. Teachers get the composite "{number}-{letter}" key; caregivers
// get an empty key, which makes the store generate one.
func buildKey(ns namespace.Namespace, req *groupRequest) (string, string) {
	if ns == namespace.Teacher {
		req.Name = normalize.ClassLetter(req.Name)
		key := rosterstore.ClassKey(req.Number, req.Name)
		if !classKeyRe.MatchString(key) {
			return "", "class must be a number 1-5 and a letter A-F"
		}
		return key, ""
	}
	req.Name = normalize.Name(req.Name)
	if req.Name == "" {
		return "", "group name is required"
	}
	req.Number = 0
	return "", ""
}

// HandleList handles GET /api/groups.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ownerID, ns, _, ok := actor(w, r)
	if !ok {
		return
	}

	groups, err := h.Roster.ListGroups(r.Context(), ns, ownerID)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	if groups == nil {
		groups = []models.RosterGroup{}
	}
	shared.WriteJSON(w, http.StatusOK, groups)
}

// HandleCreate handles POST /api/groups.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ownerID, ns, u, ok := actor(w, r)
	if !ok {
		return
	}

	var req groupRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	key, msg := buildKey(ns, &req)
	if msg != "" {
		shared.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	created, err := h.Roster.CreateGroup(r.Context(), ns, models.RosterGroup{
		Key:       key,
		Number:    req.Number,
		Name:      req.Name,
		OwnerID:   ownerID,
		OwnerName: u.Name,
	})
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, created)
}

// HandleGet handles GET /api/groups/{key}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	_, ns, _, ok := actor(w, r)
	if !ok {
		return
	}

	g, err := h.Roster.GetGroup(r.Context(), ns, chi.URLParam(r, "key"))
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, g)
}

// HandleRename handles PUT /api/groups/{key}.
func (h *Handler) HandleRename(w http.ResponseWriter, r *http.Request) {
	_, ns, _, ok := actor(w, r)
	if !ok {
		return
	}
	oldKey := chi.URLParam(r, "key")

	var req groupRequest
	if !shared.DecodeJSON(w, r, &req) {
		return
	}
	newKey, msg := buildKey(ns, &req)
	if msg != "" {
		shared.WriteError(w, http.StatusBadRequest, msg)
		return
	}
	if newKey == "" {
		// Caregiver groups keep their generated key across renames.
		newKey = oldKey
	}

	renamed, err := h.Roster.RenameGroup(r.Context(), ns, oldKey, newKey, req.Number, req.Name)
	if err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}

	if oldKey != newKey {
		h.Notifier.Send(r.Context(), notify.EventGroupRenamed,
			"Group renamed",
			oldKey+" is now "+renamed.Label(),
			map[string]string{"old_key": oldKey, "new_key": newKey})
	}
	shared.WriteJSON(w, http.StatusOK, renamed)
}

// HandleDelete handles DELETE /api/groups/{key}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	_, ns, _, ok := actor(w, r)
	if !ok {
		return
	}

	if err := h.Roster.DeleteGroup(r.Context(), ns, chi.URLParam(r, "key")); err != nil {
		shared.WriteStoreError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type reconcileResponse struct {
	Namespace string `json:"namespace"`
	Repaired  int    `json:"repaired"`
}

// HandleReconcile handles POST /api/groups/reconcile. It recounts every
// group's members and repairs drifted counters in both namespaces unless
// ?role= narrows it to one.
func (h *Handler) HandleReconcile(w http.ResponseWriter, r *http.Request) {
	role := normalize.Role(r.URL.Query().Get("role"))

	targets := namespace.All()
	if role != "" {
		ns, err := namespace.ForRole(role)
		if err != nil {
			shared.WriteError(w, http.StatusBadRequest, "unknown role")
			return
		}
		targets = []namespace.Namespace{ns}
	}

	var out []reconcileResponse
	for _, ns := range targets {
		n, err := h.Roster.Reconcile(r.Context(), ns)
		if err != nil {
			shared.WriteStoreError(w, h.Log, err)
			return
		}
		out = append(out, reconcileResponse{Namespace: ns.Role, Repaired: n})
	}
	shared.WriteJSON(w, http.StatusOK, out)
}
