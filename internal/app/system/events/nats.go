package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// NATSPublisher publishes events as JSON on core NATS subjects.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
	logger *zap.Logger
}

var _ Publisher = (*NATSPublisher)(nil)

// Connect dials the NATS server at url and logs connection state changes.
//
// Parameters:
//   - url: NATS server URL, e.g. "nats://127.0.0.1:4222"
//   - name: client name reported to the server
//   - logger: receives disconnect and reconnect notices
//
// Returns:
//   - *nats.Conn: connected client; the caller closes it on shutdown
//   - error: dial failure
func Connect(url, name string, logger *zap.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.Timeout(5*time.Second),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
}

// NewNATS returns a publisher that sends on "<prefix>.<subject>".
// An empty prefix publishes on the bare subject.
func NewNATS(nc *nats.Conn, prefix string, logger *zap.Logger) *NATSPublisher {
	return &NATSPublisher{
		nc:     nc,
		prefix: strings.TrimSuffix(prefix, "."),
		logger: logger,
	}
}

// Subject returns the full subject for a suffix.
func (p *NATSPublisher) Subject(suffix string) string {
	if p.prefix == "" {
		return suffix
	}
	return p.prefix + "." + suffix
}

// PublishCommitted sends ev on the committed subject. The commit ID is set as
// the Nats-Msg-Id header so JetStream consumers can deduplicate re-runs.
func (p *NATSPublisher) PublishCommitted(ctx context.Context, ev Committed) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal committed event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(SubjectCommitted))
	msg.Data = data
	if ev.CommitID != "" {
		msg.Header.Set(nats.MsgIdHdr, ev.CommitID)
	}
	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("failed to publish committed event: %w", err)
	}

	p.logger.Debug("allocation event published",
		zap.String("subject", msg.Subject),
		zap.String("commit_id", ev.CommitID),
		zap.String("kind", ev.Kind))
	return nil
}
