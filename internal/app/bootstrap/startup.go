// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/seatplan/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs one-time initialization after connections and schema setup,
// before the HTTP handler is built.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Read:   appCfg.TimeoutRead,
		Commit: appCfg.TimeoutCommit,
	})
	cur := timeouts.Current()
	logger.Info("handler timeouts configured",
		zap.Duration("read", cur.Read),
		zap.Duration("commit", cur.Commit),
		zap.Bool("commit_one_capacity_guard", appCfg.CommitOneCapacityGuard),
		zap.Duration("lock_lease", appCfg.LockLease))

	if deps.Tasks != nil {
		deps.Tasks.Start()
	}
	return nil
}
