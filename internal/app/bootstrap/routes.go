// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	auditfeature "github.com/dalemusser/directoryhub/internal/app/features/auditlog"
	claimsfeature "github.com/dalemusser/directoryhub/internal/app/features/claims"
	healthfeature "github.com/dalemusser/directoryhub/internal/app/features/health"
	reviewsfeature "github.com/dalemusser/directoryhub/internal/app/features/reviews"
	"github.com/dalemusser/directoryhub/internal/app/moderation/batch"
	"github.com/dalemusser/directoryhub/internal/app/moderation/claimresolver"
	"github.com/dalemusser/directoryhub/internal/app/moderation/reviewmod"
	"github.com/dalemusser/directoryhub/internal/app/store/audit"
	businessstore "github.com/dalemusser/directoryhub/internal/app/store/businesses"
	claimstore "github.com/dalemusser/directoryhub/internal/app/store/claims"
	reviewstore "github.com/dalemusser/directoryhub/internal/app/store/reviews"
	userstore "github.com/dalemusser/directoryhub/internal/app/store/users"
	"github.com/dalemusser/directoryhub/internal/app/system/auditlog"
	"github.com/dalemusser/directoryhub/internal/app/system/auth"
	"github.com/dalemusser/directoryhub/internal/app/system/metrics"
	"github.com/dalemusser/directoryhub/internal/app/system/txn"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// services is the moderation core wired to MongoDB.
type services struct {
	claims   *claimresolver.Resolver
	reviews  *reviewmod.Moderator
	batch    *batch.Coordinator
	events   *audit.Store
	registry *prometheus.Registry
}

func newServices(appCfg AppConfig, deps DBDeps, logger *zap.Logger) services {
	db := deps.MongoDatabase

	businesses := businessstore.New(db)
	tx := txn.New(deps.MongoClient, logger)
	events := audit.New(db)
	auditLog := auditlog.New(events, logger, auditlog.Config{Moderation: appCfg.AuditLogModeration})

	reg := metrics.NewRegistry()
	m := metrics.New(reg)

	resolver := claimresolver.New(claimresolver.Deps{
		Claims:     claimstore.New(db),
		Businesses: businesses,
		Users:      userstore.New(db),
		Tx:         tx,
		Audit:      auditLog,
		Metrics:    m,
		Log:        logger,
	})
	moderator := reviewmod.New(reviewmod.Deps{
		Reviews:    reviewstore.New(db),
		Businesses: businesses,
		Tx:         tx,
		Audit:      auditLog,
		Metrics:    m,
		Log:        logger,
	})
	coord := batch.New(batch.Deps{
		Claims:   resolver,
		Reviews:  moderator,
		Audit:    auditLog,
		Metrics:  m,
		Log:      logger,
		MaxItems: appCfg.BatchMaxItems,
	})

	return services{claims: resolver, reviews: moderator, batch: coord, events: events, registry: reg}
}

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// any Startup hooks have completed.
//
// Routes:
//
//	GET  /health
//	GET  /metrics                          (metrics_enabled)
//	POST /claims, GET /claims/mine         (signed in)
//	GET|POST /businesses/{id}/reviews      (anyone)
//	/admin/claims..., /admin/reviews...,
//	POST /admin/businesses/{id}/owner,
//	GET  /admin/audit                      (admin)
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on each request so role changes and disabled accounts
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(deps.MongoDatabase))

	svc := newServices(appCfg, deps, logger)

	r := chi.NewRouter()

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	if appCfg.MetricsEnabled {
		r.Handle("/metrics", metrics.Handler(svc.registry, logger))
	}

	claimsHandler := claimsfeature.NewHandler(svc.claims, svc.batch, logger)
	r.Mount("/claims", claimsfeature.Routes(claimsHandler, sessionMgr))

	reviewsHandler := reviewsfeature.NewHandler(svc.reviews, svc.batch, logger)
	reviewsHandler.MountPublicRoutes(r)

	// Back office: 401 for anonymous callers, 403 for non-admins.
	r.Route("/admin", func(ar chi.Router) {
		ar.Use(sessionMgr.RequireRole("admin"))
		claimsHandler.MountAdminRoutes(ar)
		reviewsHandler.MountAdminRoutes(ar)
		auditfeature.NewHandler(svc.events, logger).MountAdminRoutes(ar)
	})

	return r, nil
}
