// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	adminauthfeature "github.com/vicarhk/vicarapi/internal/app/features/adminauth"
	auditlogfeature "github.com/vicarhk/vicarapi/internal/app/features/auditlog"
	bannermediafeature "github.com/vicarhk/vicarapi/internal/app/features/bannermedia"
	blogsfeature "github.com/vicarhk/vicarapi/internal/app/features/blogs"
	contactfeature "github.com/vicarhk/vicarapi/internal/app/features/contact"
	editorfeature "github.com/vicarhk/vicarapi/internal/app/features/editor"
	errorsfeature "github.com/vicarhk/vicarapi/internal/app/features/errors"
	healthfeature "github.com/vicarhk/vicarapi/internal/app/features/health"
	mediafeature "github.com/vicarhk/vicarapi/internal/app/features/media"
	"github.com/vicarhk/vicarapi/internal/app/store/audit"
	bannerstore "github.com/vicarhk/vicarapi/internal/app/store/bannermedia"
	blogstore "github.com/vicarhk/vicarapi/internal/app/store/blogs"
	filestore "github.com/vicarhk/vicarapi/internal/app/store/file"
	"github.com/vicarhk/vicarapi/internal/app/store/ratelimit"
	userstore "github.com/vicarhk/vicarapi/internal/app/store/users"
	"github.com/vicarhk/vicarapi/internal/app/system/apicors"
	"github.com/vicarhk/vicarapi/internal/app/system/auditlog"
	"github.com/vicarhk/vicarapi/internal/app/system/auth"
	"github.com/vicarhk/vicarapi/internal/app/system/throttle"
	"github.com/vicarhk/vicarapi/internal/app/system/uploads"
	"github.com/vicarhk/vicarapi/internal/domain/models"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// Startup have completed. Public and admin JSON endpoints live under /api;
// uploaded media is served from the local storage prefix when storage is
// local; health probes are mounted at the root.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	tokens, err := auth.NewTokenManager(appCfg.JWTSecret, appCfg.JWTTTL, coreCfg.Env == "prod", logger)
	if err != nil {
		// Without a secret the public API still works; admin routes answer 401.
		if coreCfg.Env == "prod" {
			logger.Error("token manager init failed", zap.Error(err))
			return nil, err
		}
		logger.Warn("admin tokens disabled", zap.Error(err))
	}
	requireAdmin := adminOnly(tokens)

	errLog := errorsfeature.NewErrorLogger(logger)
	db := deps.MongoDatabase

	limits := ratelimit.New(db)
	uploadLimits := uploads.Limits{
		MaxFileSize: appCfg.MaxUploadSize,
		MaxFiles:    appCfg.MaxUploadFiles,
	}
	files := filestore.New(db)

	auditStore := audit.New(db)
	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:  appCfg.AuditLogAuth,
		Admin: appCfg.AuditLogAdmin,
	})

	r := chi.NewRouter()

	r.Use(chimw.RequestID)

	// Uploads share the whole-request timeout.
	r.Use(chimw.Timeout(appCfg.RequestTimeout))

	// Global CORS from WAFFLE core config; /api adds its own headers below.
	r.Use(middleware.CORSFromConfig(coreCfg))

	// Security headers (X-Content-Type-Options, X-Frame-Options, etc.)
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health and welcome endpoints
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	// Serve uploaded files from local storage
	if appCfg.StorageType == "local" || appCfg.StorageType == "" {
		r.Handle(appCfg.StorageLocalURL+"/*", fileserver.Handler(appCfg.StorageLocalURL, appCfg.StorageLocalPath))
	}

	contactTo := appCfg.ContactMailTo
	if len(contactTo) == 0 {
		contactTo = []string{appCfg.MailFrom}
	}
	contactLimiter := throttle.New(limits, "contact",
		ratelimit.Policy{Max: appCfg.ContactRateLimitMax, Window: appCfg.ContactRateLimitWindow},
		"Too many requests",
		"Too many contact form submissions from this IP, please try again after "+
			throttle.Describe(appCfg.ContactRateLimitWindow)+".",
		logger)

	bannerHandler := bannermediafeature.NewHandler(bannerstore.New(db), deps.FileStorage, uploadLimits, appCfg.PublicBaseURL, errLog, logger)
	mediaHandler := mediafeature.NewHandler(files, deps.FileStorage, uploadLimits, appCfg.PublicBaseURL, errLog, logger)
	blogsHandler := blogsfeature.NewHandler(blogstore.New(db), files, deps.FileStorage, errLog, logger)
	contactHandler := contactfeature.NewHandler(deps.Mailer, contactTo, errLog, logger)
	adminHandler := adminauthfeature.NewHandler(userstore.New(db), tokens, limits,
		ratelimit.Policy{Max: appCfg.LoginRateLimitMax, Window: appCfg.LoginRateLimitWindow},
		auditLogger, errLog, logger)
	auditHandler := auditlogfeature.NewHandler(auditStore, errLog, logger)
	editorHandler := editorfeature.NewHandler(logger)

	r.Route("/api", func(api chi.Router) {
		api.Use(apicors.Middleware(appCfg.CORSOrigins...))

		bannermediafeature.MountRoutes(api, bannerHandler, requireAdmin)
		mediafeature.MountRoutes(api, mediaHandler, requireAdmin)
		blogsfeature.MountRoutes(api, blogsHandler, requireAdmin)
		contactfeature.MountRoutes(api, contactHandler, contactLimiter)
		adminauthfeature.MountRoutes(api, adminHandler, requireAdmin)
		auditlogfeature.MountRoutes(api, auditHandler, requireAdmin)
		editorfeature.MountRoutes(api, editorHandler)
	})

	logger.Info("routes mounted",
		zap.String("storage", appCfg.StorageType),
		zap.Strings("cors_origins", appCfg.CORSOrigins),
	)

	return r, nil
}

// adminOnly returns the admin guard, or one that always answers 401 when
// token signing is not configured.
func adminOnly(tokens *auth.TokenManager) func(http.Handler) http.Handler {
	if tokens == nil {
		return auth.DenyAll
	}
	return tokens.RequireRole(models.RoleAdmin)
}
