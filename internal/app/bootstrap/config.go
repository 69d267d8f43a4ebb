// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"time"

	"github.com/dalemusser/directoryhub/internal/app/moderation/batch"
	"github.com/dalemusser/directoryhub/internal/app/system/auditlog"
	"github.com/dalemusser/directoryhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.uber.org/zap"
)

// appConfigKeys defines the configuration keys for DirectoryHub.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: mongo_uri, session_name, etc.
//   - Environment variables: DIRECTORYHUB_MONGO_URI, DIRECTORYHUB_SESSION_NAME, etc.
//   - Command-line flags: --mongo_uri, --session_name, etc.
var appConfigKeys = []config.AppKey{
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI"},
	{Name: "mongo_database", Default: "directory_hub", Desc: "MongoDB database name"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size (default: 100)"},
	{Name: "mongo_min_pool_size", Default: 10, Desc: "MongoDB min connection pool size (default: 10)"},
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must match the sign-in service)"},
	{Name: "session_name", Default: "directoryhub-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "720h", Desc: "Session cookie lifetime (e.g., 24h, 720h)"},

	// Audit logging
	{Name: "audit_log_moderation", Default: "all", Desc: "Moderation event logging: 'all' (db+log), 'db', 'log', or 'off'"},

	// Mass actions
	{Name: "batch_max_items", Default: batch.DefaultMaxItems, Desc: "Maximum ids accepted by one mass action"},

	// Metrics
	{Name: "metrics_enabled", Default: true, Desc: "Serve Prometheus metrics at /metrics"},

	// Workers
	{Name: "rating_sync_interval", Default: "0s", Desc: "How often to recompute every business rating as a repair pass (0 disables; e.g., 1h)"},

	// Request deadlines
	{Name: "timeout_ping", Default: "2s", Desc: "Health check database ping timeout"},
	{Name: "timeout_short", Default: "5s", Desc: "Timeout for single-document reads"},
	{Name: "timeout_medium", Default: "10s", Desc: "Timeout for lists and single decisions"},
	{Name: "timeout_batch", Default: "60s", Desc: "Timeout for a whole mass action"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig handles:
//   - Loading from .env files
//   - Loading from config.yaml/json/toml files
//   - Reading environment variables (WAFFLE_* for core, DIRECTORYHUB_* for app)
//   - Parsing command-line flags
//   - Merging with precedence: flags > env > files > defaults
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "DIRECTORYHUB", appConfigKeys)
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
		SessionMaxAge:    appValues.Duration("session_max_age", 30*24*time.Hour),

		AuditLogModeration: appValues.String("audit_log_moderation"),

		BatchMaxItems: appValues.Int("batch_max_items"),

		MetricsEnabled: appValues.Bool("metrics_enabled"),

		RatingSyncInterval: appValues.Duration("rating_sync_interval", 0),

		TimeoutPing:   appValues.Duration("timeout_ping", timeouts.DefaultPing),
		TimeoutShort:  appValues.Duration("timeout_short", timeouts.DefaultShort),
		TimeoutMedium: appValues.Duration("timeout_medium", timeouts.DefaultMedium),
		TimeoutBatch:  appValues.Duration("timeout_batch", timeouts.DefaultBatch),
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// Return nil to accept the loaded config, or an error to abort startup.
// The MongoDB URI is checked here so a typo fails before we try to connect.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
		logger.Error("invalid MongoDB URI", zap.Error(err))
		return fmt.Errorf("invalid MongoDB URI: %w", err)
	}
	if appCfg.MongoDatabase == "" {
		return fmt.Errorf("mongo_database must be set")
	}
	if appCfg.BatchMaxItems <= 0 {
		return fmt.Errorf("batch_max_items must be positive, got %d", appCfg.BatchMaxItems)
	}
	if appCfg.RatingSyncInterval < 0 {
		return fmt.Errorf("rating_sync_interval must not be negative, got %v", appCfg.RatingSyncInterval)
	}
	if !auditlog.ValidMode(appCfg.AuditLogModeration) {
		return fmt.Errorf("audit_log_moderation must be one of all, db, log, off; got %q", appCfg.AuditLogModeration)
	}
	if coreCfg != nil && coreCfg.Env == "prod" && len(appCfg.SessionKey) < 32 {
		return fmt.Errorf("session_key must be at least 32 characters in production")
	}
	return nil
}
