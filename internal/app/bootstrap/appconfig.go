// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// WAFFLE's CoreConfig covers framework-level settings (ports, TLS, logging,
// CORS, body limits). Everything the allocation service needs on top of that
// lives here and is passed to every lifecycle hook.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64 // Maximum connections in the pool
	MongoMinPoolSize uint64 // Minimum connections kept open

	// Session cookies are issued by the sign-in service; these must match it.
	SessionKey    string        // Secret key for verifying session cookies
	SessionName   string        // Cookie name (default: seatplan-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Audit logging: "all" (db+log), "db", "log", or "off"
	AuditLogAllocation string
	AuditLogSecurity   string

	// Commit behavior
	CommitOneCapacityGuard bool          // Refuse CommitOne into a full project
	LockLease              time.Duration // How long a bulk commit may hold a company lock

	// Handler timeouts
	TimeoutRead   time.Duration
	TimeoutCommit time.Duration

	// Commit events; blank NATSURL disables publishing.
	NATSURL           string
	NATSSubjectPrefix string

	// OTLP/HTTP trace endpoint; blank disables tracing.
	OTelEndpoint string

	// Prometheus metric namespace
	MetricsNamespace string
}
