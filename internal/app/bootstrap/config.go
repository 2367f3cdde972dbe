// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for SeatPlan.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: SEATPLAN_MONGO_URI, SEATPLAN_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "seatplan", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must match the sign-in service)"},
	{Name: "session_name", Default: "seatplan-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "24h", Desc: "Session cookie lifetime (e.g., 24h, 90m)"},

	// Audit logging settings
	{Name: "audit_log_allocation", Default: "all", Desc: "Allocation event logging: 'all' (db+log), 'db', 'log', or 'off'"},
	{Name: "audit_log_security", Default: "all", Desc: "Access-denied event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Commit behavior
	{Name: "commit_one_capacity_guard", Default: true, Desc: "Refuse single commits into a full project"},
	{Name: "lock_lease", Default: "30s", Desc: "Lease on a company's bulk-commit lock"},

	// Handler timeouts
	{Name: "timeout_read", Default: "10s", Desc: "Timeout for previews and reports"},
	{Name: "timeout_commit", Default: "30s", Desc: "Timeout for commits and preference writes"},

	// Events, tracing, metrics
	{Name: "nats_url", Default: "", Desc: "NATS server URL for commit events (blank disables)"},
	{Name: "nats_subject_prefix", Default: "seatplan", Desc: "Prefix for published NATS subjects"},
	{Name: "otel_endpoint", Default: "", Desc: "OTLP/HTTP trace endpoint URL (blank disables tracing)"},
	{Name: "metrics_namespace", Default: "seatplan", Desc: "Prometheus metric namespace"},
}

var auditSettings = map[string]bool{"all": true, "db": true, "log": true, "off": true}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, with precedence
// flags > env (WAFFLE_* for core, SEATPLAN_* for app) > files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "SEATPLAN", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		SessionKey:       appValues.String("session_key"),
		SessionName:      appValues.String("session_name"),
		SessionDomain:    appValues.String("session_domain"),
		SessionMaxAge:    appValues.Duration("session_max_age", 24*time.Hour),

		AuditLogAllocation: appValues.String("audit_log_allocation"),
		AuditLogSecurity:   appValues.String("audit_log_security"),

		CommitOneCapacityGuard: appValues.Bool("commit_one_capacity_guard"),
		LockLease:              appValues.Duration("lock_lease", 30*time.Second),

		TimeoutRead:   appValues.Duration("timeout_read", 10*time.Second),
		TimeoutCommit: appValues.Duration("timeout_commit", 30*time.Second),

		NATSURL:           appValues.String("nats_url"),
		NATSSubjectPrefix: appValues.String("nats_subject_prefix"),
		OTelEndpoint:      appValues.String("otel_endpoint"),
		MetricsNamespace:  appValues.String("metrics_namespace"),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// The MongoDB URI is checked here so a typo fails fast instead of at the
// first connection attempt.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must not be empty")
	}
	if appCfg.MongoMinPoolSize > appCfg.MongoMaxPoolSize {
		return fmt.Errorf("mongo_min_pool_size (%d) exceeds mongo_max_pool_size (%d)",
			appCfg.MongoMinPoolSize, appCfg.MongoMaxPoolSize)
	}
	if !auditSettings[appCfg.AuditLogAllocation] {
		return fmt.Errorf("audit_log_allocation: unknown setting %q", appCfg.AuditLogAllocation)
	}
	if !auditSettings[appCfg.AuditLogSecurity] {
		return fmt.Errorf("audit_log_security: unknown setting %q", appCfg.AuditLogSecurity)
	}
	if appCfg.LockLease <= 0 {
		return fmt.Errorf("lock_lease must be positive, got %s", appCfg.LockLease)
	}
	// A lease shorter than the commit timeout lets a slow commit lose its
	// lock to a second caller mid-write.
	if appCfg.LockLease < appCfg.TimeoutCommit {
		logger.Warn("lock_lease is shorter than timeout_commit",
			zap.Duration("lock_lease", appCfg.LockLease),
			zap.Duration("timeout_commit", appCfg.TimeoutCommit))
	}
	return nil
}
