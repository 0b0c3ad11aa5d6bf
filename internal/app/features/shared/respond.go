// internal/app/features/shared/respond.go

// Package shared holds the JSON response helpers every feature handler
// uses, including the mapping from store sentinel errors to HTTP statuses.
package shared

import (
	"encoding/json"
	"errors"
	"net/http"

	pickupstore "maktabhub/internal/app/store/pickups"
	rosterstore "maktabhub/internal/app/store/roster"
	userstore "maktabhub/internal/app/store/users"
	"maktabhub/internal/app/system/txn"

	"go.uber.org/zap"
)

type errorResponse struct {
	Error string `json:"error"`
}

// WriteJSON encodes v with the given status.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes a JSON error body with the given status.
func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, errorResponse{Error: msg})
}

// WriteStoreError maps a store error to its HTTP status. Sentinels get
// their taxonomy status; anything else is treated as the store being
// unavailable and logged.
func WriteStoreError(w http.ResponseWriter, logger *zap.Logger, err error) {
	switch {
	case errors.Is(err, rosterstore.ErrGroupExists):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, rosterstore.ErrGroupNotFound),
		errors.Is(err, rosterstore.ErrMemberNotFound),
		errors.Is(err, pickupstore.ErrRequestNotFound):
		WriteError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, rosterstore.ErrGroupNotEmpty),
		errors.Is(err, pickupstore.ErrRequestClosed):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, userstore.ErrProfileNotFound):
		WriteError(w, http.StatusPreconditionFailed, err.Error())
	case errors.Is(err, userstore.ErrDuplicateEmail):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, pickupstore.ErrEmptyMessage):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, txn.ErrConflict):
		WriteError(w, http.StatusConflict, "the operation conflicted with concurrent changes; retry")
	default:
		logger.Error("store operation failed", zap.Error(err))
		WriteError(w, http.StatusServiceUnavailable, "storage unavailable")
	}
}

// DecodeJSON decodes a request body into dst, returning false after
// writing a 400 if the body is malformed.
func DecodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}
