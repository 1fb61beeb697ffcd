package natsadapter

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

// Subjects used by the interaction service.
const (
	SubjectSnapshot      = "aoi.state.snapshot"
	SubjectDrawEnable    = "aoi.drawtool.enable"
	SubjectDrawDisable   = "aoi.drawtool.disable"
	SubjectQueryResolved = "aoi.query.resolved."
	SubjectCapture       = "aoi.capture.>"

	StreamQueries = "AOI_QUERIES"
)

// Publisher fans interaction snapshots and draw tool commands out over NATS.
// Terminal query outcomes are additionally persisted to JetStream.
// It implements ports.SnapshotPublisher and ports.DrawTool.
type Publisher struct {
	conn   *nats.Conn
	js     nats.JetStreamContext
	logger *slog.Logger

	outcomes outcomeGate
}

// NewPublisher connects to NATS and enables JetStream.
func NewPublisher(url string, logger *slog.Logger) (*Publisher, error) {
	conn, err := Connect(url)
	if err != nil {
		return nil, err
	}

	js, err := conn.JetStream(nats.PublishAsyncMaxPending(256))
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("jetstream: %w", err)
	}

	cfg := nats.StreamConfig{
		Name:      StreamQueries,
		Subjects:  []string{SubjectQueryResolved + ">"},
		Retention: nats.LimitsPolicy,
		MaxAge:    24 * time.Hour,
		Storage:   nats.FileStorage,
	}
	if _, err := js.AddStream(&cfg); err != nil {
		// Stream may already exist; try update
		if _, err := js.UpdateStream(&cfg); err != nil {
			conn.Close()
			return nil, fmt.Errorf("ensure stream %s: %w", cfg.Name, err)
		}
	}

	return &Publisher{conn: conn, js: js, logger: logger.With("component", "nats")}, nil
}

// PublishSnapshot broadcasts snap and records each terminal query outcome once.
func (p *Publisher) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	if err := p.conn.Publish(SubjectSnapshot, data); err != nil {
		return fmt.Errorf("publish snapshot: %w", err)
	}

	subject, ok := p.outcomes.admit(snap)
	if !ok {
		return nil
	}
	if _, err := p.js.PublishAsync(subject, data); err != nil {
		return fmt.Errorf("publish query outcome: %w", err)
	}
	return nil
}

// OutcomeSubject is the JetStream subject carrying outcomes for endpointID.
func OutcomeSubject(endpointID string) string {
	return SubjectQueryResolved + endpointID
}

// outcomeGate lets each terminal query outcome through once. Later
// snapshots of the same token (a pong change, say) are not outcomes.
type outcomeGate struct {
	mu   sync.Mutex
	last domain.RequestToken
}

// admit returns the subject for snap when it carries an unrecorded outcome.
// A terminal phase implies the AOI is set, so the active endpoint is the one
// the query ran against.
func (g *outcomeGate) admit(snap domain.Snapshot) (string, bool) {
	if snap.QueryPhase != domain.PhaseSuccess && snap.QueryPhase != domain.PhaseFailure {
		return "", false
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if snap.RequestToken == g.last {
		return "", false
	}
	g.last = snap.RequestToken
	return OutcomeSubject(snap.ActiveEndpoint), true
}

func (p *Publisher) EnableDrawing()  { p.command(SubjectDrawEnable) }
func (p *Publisher) DisableDrawing() { p.command(SubjectDrawDisable) }

func (p *Publisher) command(subject string) {
	if err := p.conn.Publish(subject, nil); err != nil {
		p.logger.Warn("draw command publish failed", "subject", subject, "error", err)
	}
}

// Healthy reports whether the connection is up.
func (p *Publisher) Healthy() bool {
	return p.conn.IsConnected()
}

// Conn exposes the shared connection for subscribers.
func (p *Publisher) Conn() *nats.Conn {
	return p.conn
}

// Close waits briefly for pending async publishes, then drains.
func (p *Publisher) Close() {
	select {
	case <-p.js.PublishAsyncComplete():
	case <-time.After(2 * time.Second):
		p.logger.Warn("nats: pending async publishes dropped", "pending", p.js.PublishAsyncPending())
	}
	_ = p.conn.Drain()
}

// Connect opens a NATS connection that keeps reconnecting in the background.
func Connect(url string) (*nats.Conn, error) {
	conn, err := nats.Connect(url,
		nats.Name("aoi-explorer"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return conn, nil
}
