package events_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/dalemusser/seatplan/internal/app/system/events"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startEmbeddedNATS(t *testing.T) *nats.Conn {
	t.Helper()

	ns, err := server.NewServer(&server.Options{
		Host:  "127.0.0.1",
		Port:  -1,
		NoLog: true,
	})
	require.NoError(t, err)

	go ns.Start()
	if !ns.ReadyForConnections(5 * time.Second) {
		ns.Shutdown()
		t.Fatal("embedded NATS server not ready within timeout")
	}

	nc, err := events.Connect(ns.ClientURL(), "seatplan-test", zap.NewNop())
	if err != nil {
		ns.Shutdown()
		t.Fatalf("failed to connect to embedded NATS server: %v", err)
	}

	t.Cleanup(func() {
		nc.Close()
		ns.Shutdown()
		ns.WaitForShutdown()
	})
	return nc
}

func TestNATSPublisher_PublishCommitted(t *testing.T) {
	nc := startEmbeddedNATS(t)
	pub := events.NewNATS(nc, "seatplan.", zap.NewNop())

	sub, err := nc.SubscribeSync("seatplan.allocation.committed")
	require.NoError(t, err)
	require.NoError(t, nc.Flush())

	ev := events.Committed{
		CommitID:  "c-1",
		Kind:      "bulk",
		CompanyID: "507f1f77bcf86cd799439011",
		ActorID:   "507f1f77bcf86cd799439012",
		Deleted:   2,
		Inserted:  5,
		At:        time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
	require.NoError(t, pub.PublishCommitted(context.Background(), ev))

	msg, err := sub.NextMsg(2 * time.Second)
	require.NoError(t, err)
	require.Equal(t, "c-1", msg.Header.Get(nats.MsgIdHdr))

	var got events.Committed
	require.NoError(t, json.Unmarshal(msg.Data, &got))
	require.Equal(t, ev, got)
}

func TestNATSPublisher_Subject(t *testing.T) {
	require.Equal(t, "allocation.committed", events.NewNATS(nil, "", zap.NewNop()).Subject(events.SubjectCommitted))
	require.Equal(t, "org.allocation.committed", events.NewNATS(nil, "org", zap.NewNop()).Subject(events.SubjectCommitted))
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	nc := startEmbeddedNATS(t)
	pub := events.NewNATS(nc, "seatplan", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, pub.PublishCommitted(ctx, events.Committed{CommitID: "x"}), context.Canceled)
}

func TestNop_PublishCommitted(t *testing.T) {
	require.NoError(t, events.Nop{}.PublishCommitted(context.Background(), events.Committed{}))
}
