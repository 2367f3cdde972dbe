// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/seatplan/internal/app/system/tasks"
	"github.com/nats-io/nats.go"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the back-end connections opened by ConnectDB.
type DBDeps struct {
	SeatPlanMongoClient   *mongo.Client
	SeatPlanMongoDatabase *mongo.Database

	// NATS is nil when nats_url is blank.
	NATS *nats.Conn

	// TracingShutdown flushes spans; a no-op when tracing is disabled.
	TracingShutdown func(context.Context) error

	// Tasks runs background maintenance; started by Startup, stopped by Shutdown.
	Tasks *tasks.Runner
}
