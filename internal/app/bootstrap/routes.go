// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/seatplan/internal/app/allocation"
	allocationsfeature "github.com/dalemusser/seatplan/internal/app/features/allocations"
	companyallocfeature "github.com/dalemusser/seatplan/internal/app/features/companyalloc"
	errorsfeature "github.com/dalemusser/seatplan/internal/app/features/errors"
	healthfeature "github.com/dalemusser/seatplan/internal/app/features/health"
	historyfeature "github.com/dalemusser/seatplan/internal/app/features/history"
	preferencesfeature "github.com/dalemusser/seatplan/internal/app/features/preferences"
	projectsfeature "github.com/dalemusser/seatplan/internal/app/features/projects"
	auditstore "github.com/dalemusser/seatplan/internal/app/store/audit"
	userstore "github.com/dalemusser/seatplan/internal/app/store/users"
	"github.com/dalemusser/seatplan/internal/app/system/auditlog"
	"github.com/dalemusser/seatplan/internal/app/system/auth"
	"github.com/dalemusser/seatplan/internal/app/system/authz"
	"github.com/dalemusser/seatplan/internal/app/system/events"
	"github.com/dalemusser/seatplan/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, connections, schema setup, and
// Startup have completed. It builds the allocation service once and mounts
// the JSON API, health check, and metrics endpoint around it.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.SeatPlanMongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	// Reload the user on each request so disabled accounts lose access at once.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db))

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var publisher events.Publisher = events.Nop{}
	if deps.NATS != nil {
		publisher = events.NewNATS(deps.NATS, appCfg.NATSSubjectPrefix, logger)
	}

	audit := auditlog.New(auditstore.New(db), logger, auditlog.Config{
		Allocation: appCfg.AuditLogAllocation,
		Security:   appCfg.AuditLogSecurity,
	})

	svc := allocation.New(allocation.Deps{
		DB:      db,
		Gate:    authz.NewGate(db),
		Metrics: metrics.NewPrometheus(reg, appCfg.MetricsNamespace),
		Events:  publisher,
		Audit:   audit,
		Log:     logger,
	}, allocation.Config{
		CommitOneCapacityGuard: appCfg.CommitOneCapacityGuard,
		LockLease:              appCfg.LockLease,
	})

	r := chi.NewRouter()

	// Loads SessionUser into context when the cookie is valid.
	r.Use(sessionMgr.LoadSessionUser)
	// Carries client IP and user agent into audit events.
	r.Use(auditlog.Middleware)

	errorsHandler := errorsfeature.NewHandler()
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.SeatPlanMongoClient, deps.NATS, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	// Allocation preview and commit
	allocHandler := allocationsfeature.NewHandler(svc, logger)
	r.Mount("/api/allocations", allocationsfeature.Routes(allocHandler, sessionMgr))

	// Company-scoped preferences, manual allocation and audit trail
	prefsHandler := preferencesfeature.NewHandler(svc, logger)
	manualHandler := companyallocfeature.NewHandler(svc, logger)
	historyHandler := historyfeature.NewHandler(svc, logger)
	r.Route("/api/companies/{companyID}", func(cr chi.Router) {
		cr.Mount("/preferences", preferencesfeature.CompanyRoutes(prefsHandler, sessionMgr))
		cr.Mount("/allocate", companyallocfeature.Routes(manualHandler, sessionMgr))
		cr.Mount("/history", historyfeature.Routes(historyHandler, sessionMgr))
	})

	// Enterprise-level preference requests
	r.Mount("/api/preferences", preferencesfeature.EnterpriseRoutes(prefsHandler, sessionMgr))

	// Self-assignment and capacity
	projectsHandler := projectsfeature.NewHandler(svc, logger)
	r.Mount("/api/projects", projectsfeature.Routes(projectsHandler, sessionMgr))

	return r, nil
}
