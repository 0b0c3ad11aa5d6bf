// internal/app/features/authgoogle/handler.go

// Package authgoogle signs users in through Google OAuth. Accounts are
// matched by Google subject first, then by verified email; an unknown
// account is sent back to the login page, registration stays explicit.
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	userstore "maktabhub/internal/app/store/users"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/normalize"
	"maktabhub/internal/app/system/timeouts"
	"maktabhub/internal/domain/models"

	"github.com/gorilla/securecookie"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const stateCookieName = "oauth_state"

// Handler handles Google OAuth authentication.
type Handler struct {
	Users      *userstore.Store
	SessionMgr *auth.SessionManager
	Log        *zap.Logger

	ClientID     string
	ClientSecret string
	RedirectURL  string

	stateCodec *securecookie.SecureCookie
}

// NewHandler creates a new Google OAuth handler. The state cookie is
// authenticated with the same key material as the session cookie.
func NewHandler(users *userstore.Store, sm *auth.SessionManager, clientID, clientSecret, baseURL, cookieKey string, logger *zap.Logger) *Handler {
	return &Handler{
		Users:        users,
		SessionMgr:   sm,
		Log:          logger,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/auth/google/callback",
		stateCodec:   securecookie.New([]byte(cookieKey), nil),
	}
}

// oauth2Config returns the Google OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: google.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// ServeLogin handles GET /auth/google: redirect to Google's consent screen
// with a fresh anti-forgery state bound to a cookie.
func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		http.Redirect(w, r, "/login?error=google_not_configured", http.StatusSeeOther)
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	encoded, err := h.stateCodec.Encode(stateCookieName, state)
	if err != nil {
		h.Log.Error("failed to encode OAuth state cookie", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/auth/google",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, h.oauth2Config().AuthCodeURL(state), http.StatusTemporaryRedirect)
}

// ServeCallback handles GET /auth/google/callback: validate state, exchange
// the code, resolve the profile, open the session.
func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	if errParam := r.URL.Query().Get("error"); errParam != "" {
		h.Log.Warn("Google OAuth error", zap.String("error", errParam))
		http.Redirect(w, r, "/login?error=google_denied", http.StatusSeeOther)
		return
	}

	if !h.validState(r) {
		h.Log.Warn("invalid or expired OAuth state")
		http.Redirect(w, r, "/login?error=invalid_state", http.StatusSeeOther)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Redirect(w, r, "/login?error=invalid_code", http.StatusSeeOther)
		return
	}

	token, err := h.oauth2Config().Exchange(r.Context(), code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		http.Redirect(w, r, "/login?error=token_exchange", http.StatusSeeOther)
		return
	}

	googleUser, err := fetchGoogleUserInfo(r.Context(), token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		http.Redirect(w, r, "/login?error=user_info", http.StatusSeeOther)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.resolveUser(ctx, googleUser)
	if err != nil {
		if errors.Is(err, userstore.ErrProfileNotFound) {
			h.Log.Info("Google OAuth: no account",
				zap.String("email", googleUser.Email))
			http.Redirect(w, r, "/login?error=no_account", http.StatusSeeOther)
			return
		}
		h.Log.Error("failed to look up user", zap.Error(err))
		http.Redirect(w, r, "/login?error=internal", http.StatusSeeOther)
		return
	}

	sessionUser := auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
	if err := h.SessionMgr.SignIn(w, r, sessionUser); err != nil {
		h.Log.Error("save session failed", zap.Error(err))
		http.Redirect(w, r, "/login?error=session", http.StatusSeeOther)
		return
	}

	h.Log.Info("user logged in via Google OAuth", zap.String("user_id", u.ID.Hex()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// validState checks the callback state against the signed state cookie and
// clears the cookie either way.
func (h *Handler) validState(r *http.Request) bool {
	state := r.URL.Query().Get("state")
	if state == "" {
		return false
	}
	cookie, err := r.Cookie(stateCookieName)
	if err != nil {
		return false
	}
	var expected string
	if err := h.stateCodec.Decode(stateCookieName, cookie.Value, &expected); err != nil {
		return false
	}
	return state == expected
}

// resolveUser matches Google identity to a profile: by subject first, then
// by verified email.
func (h *Handler) resolveUser(ctx context.Context, gu *googleUserInfo) (models.User, error) {
	u, err := h.Users.GetByGoogleSub(ctx, gu.ID)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, userstore.ErrProfileNotFound) {
		return models.User{}, err
	}
	if !gu.EmailVerified {
		return models.User{}, userstore.ErrProfileNotFound
	}
	return h.Users.GetByEmail(ctx, normalize.Email(gu.Email))
}

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// fetchGoogleUserInfo retrieves user information from Google's userinfo endpoint.
func fetchGoogleUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	resp, err := client.Get("https://www.googleapis.com/oauth2/v2/userinfo")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
