// internal/app/bootstrap/shutdown.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Shutdown stops background jobs, drains NATS, flushes pending spans, then
// disconnects MongoDB.
func Shutdown(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Tasks != nil {
		deps.Tasks.Stop()
	}

	if deps.NATS != nil {
		logger.Info("draining NATS connection")
		if err := deps.NATS.Drain(); err != nil {
			logger.Warn("NATS drain failed", zap.Error(err))
		}
	}

	if deps.TracingShutdown != nil {
		if err := deps.TracingShutdown(ctx); err != nil {
			logger.Warn("tracing shutdown failed", zap.Error(err))
		}
	}

	if deps.SeatPlanMongoClient != nil {
		logger.Info("disconnecting SeatPlan MongoDB client")
		if err := deps.SeatPlanMongoClient.Disconnect(ctx); err != nil {
			logger.Error("MongoDB disconnect failed", zap.Error(err))
			return err
		}
	}
	return nil
}
