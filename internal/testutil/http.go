// internal/testutil/http.go
package testutil

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"maktabhub/internal/app/system/auth"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need chi.URLParam values.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// TeacherUser returns a session user with the teacher role.
func TeacherUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Teacher",
		Email: "teacher@test.com",
		Role:  "teacher",
	}
}

// CaregiverUser returns a session user with the caregiver role.
func CaregiverUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Caregiver",
		Email: "caregiver@test.com",
		Role:  "caregiver",
	}
}

// ParentUser returns a session user with the parent role.
func ParentUser() *auth.SessionUser {
	return &auth.SessionUser{
		ID:    primitive.NewObjectID().Hex(),
		Name:  "Test Parent",
		Email: "parent@test.com",
		Role:  "parent",
	}
}

// NewAuthenticatedRequest creates a request with a user already in context,
// bypassing the session middleware.
func NewAuthenticatedRequest(method, target string, body io.Reader, u *auth.SessionUser) *http.Request {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return auth.WithTestUser(req, u)
}

// JSONBody wraps a JSON literal for request construction.
func JSONBody(s string) io.Reader {
	return strings.NewReader(s)
}
