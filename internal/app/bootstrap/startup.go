// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/directoryhub/internal/app/moderation/reviewmod"
	businessstore "github.com/dalemusser/directoryhub/internal/app/store/businesses"
	reviewstore "github.com/dalemusser/directoryhub/internal/app/store/reviews"
	"github.com/dalemusser/directoryhub/internal/app/system/timeouts"
	"github.com/dalemusser/directoryhub/internal/app/system/txn"
	"github.com/dalemusser/directoryhub/internal/app/system/workers"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// ratingSync is the background rating worker, stopped in Shutdown.
var ratingSync *workers.RatingSync

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.TimeoutPing,
		Short:  appCfg.TimeoutShort,
		Medium: appCfg.TimeoutMedium,
		Batch:  appCfg.TimeoutBatch,
	})
	logger.Info("request timeouts configured",
		zap.Duration("ping", timeouts.Ping()),
		zap.Duration("short", timeouts.Short()),
		zap.Duration("medium", timeouts.Medium()),
		zap.Duration("batch", timeouts.Batch()))

	if appCfg.RatingSyncInterval > 0 && deps.MongoDatabase != nil {
		businesses := businessstore.New(deps.MongoDatabase)
		mod := reviewmod.New(reviewmod.Deps{
			Reviews:    reviewstore.New(deps.MongoDatabase),
			Businesses: businesses,
			Tx:         txn.New(deps.MongoClient, logger),
			Log:        logger,
		})
		ratingSync = workers.NewRatingSync(businesses, mod, logger, appCfg.RatingSyncInterval, timeouts.Batch())
		ratingSync.Start()
	}
	return nil
}
