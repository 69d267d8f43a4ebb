// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// AppConfig holds service-specific configuration for this WAFFLE app.
//
// These values come from environment variables, configuration files, or
// command-line flags (loaded in LoadConfig). WAFFLE's CoreConfig covers the
// framework-level settings (ports, TLS, log level, CORS, body limits); this
// struct holds everything specific to the moderation service.
type AppConfig struct {
	// MongoDB connection configuration
	MongoURI         string // MongoDB connection string (e.g., mongodb://localhost:27017)
	MongoDatabase    string // Database name within MongoDB
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64

	// Session cookie shared with the site's sign-in flow
	SessionKey    string        // Secret key for verifying session cookies
	SessionName   string        // Cookie name (default: directoryhub-session)
	SessionDomain string        // Cookie domain (blank means current host)
	SessionMaxAge time.Duration // Cookie lifetime

	// Audit logging: all | db | log | off
	AuditLogModeration string

	// Mass actions
	BatchMaxItems int

	// Prometheus /metrics endpoint
	MetricsEnabled bool

	// Optional rating repair pass (0 disables)
	RatingSyncInterval time.Duration

	// Request deadlines (see system/timeouts)
	TimeoutPing   time.Duration
	TimeoutShort  time.Duration
	TimeoutMedium time.Duration
	TimeoutBatch  time.Duration
}
