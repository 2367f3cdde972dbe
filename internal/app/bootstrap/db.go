// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"
	"time"

	lockstore "github.com/dalemusser/seatplan/internal/app/store/locks"
	"github.com/dalemusser/seatplan/internal/app/system/events"
	"github.com/dalemusser/seatplan/internal/app/system/indexes"
	"github.com/dalemusser/seatplan/internal/app/system/tasks"
	"github.com/dalemusser/seatplan/internal/app/system/tracing"
	"github.com/dalemusser/seatplan/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

const connectTimeout = 10 * time.Second

// ConnectDB opens MongoDB, and optionally NATS and the trace exporter, and
// prepares the background job runner.
//
// MongoDB is required; a failed ping aborts startup. NATS and tracing are
// optional and only dialed when configured.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	cctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(cctx, options.Client().
		ApplyURI(appCfg.MongoURI).
		SetMaxPoolSize(appCfg.MongoMaxPoolSize).
		SetMinPoolSize(appCfg.MongoMinPoolSize))
	if err != nil {
		return DBDeps{}, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(cctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return DBDeps{}, fmt.Errorf("mongo ping: %w", err)
	}
	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool", appCfg.MongoMaxPoolSize))

	deps := DBDeps{
		SeatPlanMongoClient:   client,
		SeatPlanMongoDatabase: client.Database(appCfg.MongoDatabase),
		TracingShutdown:       func(context.Context) error { return nil },
	}

	if appCfg.NATSURL != "" {
		nc, err := events.Connect(appCfg.NATSURL, "seatplan", logger)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("nats connect: %w", err)
		}
		deps.NATS = nc
		logger.Info("connected to NATS", zap.String("url", nc.ConnectedUrl()))
	}

	shutdown, err := tracing.Setup(ctx, "seatplan", appCfg.OTelEndpoint)
	if err != nil {
		// Spans fall back to the no-op provider.
		logger.Warn("tracing disabled", zap.Error(err))
	} else if appCfg.OTelEndpoint != "" {
		logger.Info("tracing enabled", zap.String("endpoint", appCfg.OTelEndpoint))
	}
	deps.TracingShutdown = shutdown

	deps.Tasks = tasks.NewRunner(logger, time.Minute,
		tasks.StaleLockCleanupJob(lockstore.New(deps.SeatPlanMongoDatabase), logger, appCfg.LockLease))

	return deps, nil
}

// EnsureSchema creates collections, validators, and indexes.
//
// Index failures abort startup: the unique indexes on assignments and
// preferences back the no-duplicate-seat guarantees.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.SeatPlanMongoDatabase

	if err := validators.EnsureAll(ctx, db, logger); err != nil {
		// Not fatal: indexes carry the uniqueness guarantees.
		logger.Warn("some collection validators were not applied", zap.Error(err))
	}
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("index setup failed", zap.Error(err))
		return err
	}
	logger.Info("schema ensured", zap.String("database", db.Name()))
	return nil
}
