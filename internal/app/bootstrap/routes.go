// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	authgooglefeature "maktabhub/internal/app/features/authgoogle"
	classesfeature "maktabhub/internal/app/features/classes"
	dashboardfeature "maktabhub/internal/app/features/dashboard"
	healthfeature "maktabhub/internal/app/features/health"
	loginfeature "maktabhub/internal/app/features/login"
	logoutfeature "maktabhub/internal/app/features/logout"
	membersfeature "maktabhub/internal/app/features/members"
	pickupsfeature "maktabhub/internal/app/features/pickups"
	registerfeature "maktabhub/internal/app/features/register"
	pickupstore "maktabhub/internal/app/store/pickups"
	rosterstore "maktabhub/internal/app/store/roster"
	userstore "maktabhub/internal/app/store/users"
	"maktabhub/internal/app/system/auth"
	"maktabhub/internal/app/system/hub"
	"maktabhub/internal/app/system/metrics"
	"maktabhub/internal/app/system/notify"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler for this WAFFLE app.
//
// The JSON API lives under /api, authentication under /auth, and the
// static SPA assets are served from /static. Session middleware is global
// so auth.CurrentUser works everywhere.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName,
		appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Stores and shared services.
	roster := rosterstore.New(deps.MongoDatabase, logger)
	users := userstore.New(deps.MongoDatabase)
	pickups := pickupstore.New(deps.MongoDatabase)
	notifier := notify.New(appCfg.NotifyWebhookURL, logger)
	chatHub := hub.New(logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators.
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Get("/health", healthHandler.Serve)

	// Prometheus metrics.
	r.Handle("/metrics", metrics.Handler())

	// Static assets with pre-compressed file support (gzip/brotli).
	r.Handle("/static/*", fileserver.Handler("/static", "public"))

	// Authentication.
	registerHandler := registerfeature.NewHandler(users, sessionMgr, logger)
	r.Mount("/auth/register", registerfeature.Routes(registerHandler))

	loginHandler := loginfeature.NewHandler(users, sessionMgr, logger)
	r.Mount("/auth/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/auth/logout", logoutfeature.Routes(logoutHandler))

	googleHandler := authgooglefeature.NewHandler(users, sessionMgr,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL,
		appCfg.SessionKey, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	// Roster API.
	membersHandler := membersfeature.NewHandler(deps.MongoDatabase, roster, notifier, logger)
	classesHandler := classesfeature.NewHandler(roster, notifier, logger)
	r.Mount("/api/groups", classesfeature.Routes(classesHandler, sessionMgr,
		membersfeature.GroupRoutes(membersHandler, sessionMgr)))
	r.Mount("/api/members", membersfeature.Routes(membersHandler, sessionMgr))

	// Pickup requests and chat.
	pickupsHandler := pickupsfeature.NewHandler(pickups, roster, chatHub, notifier, logger)
	r.Mount("/api/pickups", pickupsfeature.Routes(pickupsHandler, sessionMgr))

	// Dashboard statistics.
	dashboardHandler := dashboardfeature.NewHandler(roster, logger)
	r.Mount("/api/dashboard", dashboardfeature.Routes(dashboardHandler, sessionMgr))

	return r, nil
}
