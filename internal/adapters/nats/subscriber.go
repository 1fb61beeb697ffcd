package natsadapter

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/samirrijal/aoiexplorer/internal/core/ports"
	"github.com/samirrijal/aoiexplorer/internal/core/usecases"
)

const (
	replyOK    = "ok"
	submitWait = 5 * time.Second
)

var _ ports.CaptureSubscriber = (*Subscriber)(nil)

// Subscriber feeds GeometryCapture messages published on NATS into the
// machine. It implements ports.CaptureSubscriber.
type Subscriber struct {
	conn   *nats.Conn
	logger *slog.Logger
	subs   []*nats.Subscription
}

// NewSubscriber creates a subscriber sharing an existing connection.
func NewSubscriber(conn *nats.Conn, logger *slog.Logger) *Subscriber {
	return &Subscriber{conn: conn, logger: logger.With("component", "nats")}
}

// SubscribeCapture listens on aoi.capture.> and hands each decoded event to
// sink. Plain publishes are queued; requests wait for the event to be applied
// and get "ok" or the rejection as their reply.
func (s *Subscriber) SubscribeCapture(ctx context.Context, sink ports.EventSink) error {
	sub, err := s.conn.Subscribe(SubjectCapture, func(msg *nats.Msg) {
		reply := s.deliver(ctx, sink, msg.Subject, msg.Data, msg.Reply != "")
		if reply == "" {
			return
		}
		if err := msg.Respond([]byte(reply)); err != nil {
			s.logger.Debug("capture reply failed", "subject", msg.Subject, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", SubjectCapture, err)
	}
	s.subs = append(s.subs, sub)
	return nil
}

// deliver applies one capture message and returns the reply to send, empty
// when the sender expects none.
func (s *Subscriber) deliver(ctx context.Context, sink ports.EventSink, subject string, data []byte, wantReply bool) string {
	ev, err := usecases.DecodeCaptureMessage(data)
	if err != nil {
		s.logger.Warn("dropping capture message", "subject", subject, "error", err)
		return replyFor(err, wantReply)
	}

	if !wantReply {
		if err := sink.Dispatch(ctx, ev); err != nil {
			s.logger.Warn("capture event not accepted", "subject", subject, "kind", ev.Kind(), "error", err)
		}
		return ""
	}

	sctx, cancel := context.WithTimeout(ctx, submitWait)
	defer cancel()
	if _, err := sink.Submit(sctx, ev); err != nil {
		s.logger.Warn("capture event rejected", "subject", subject, "kind", ev.Kind(), "error", err)
		return replyFor(err, true)
	}
	return replyOK
}

func replyFor(err error, wantReply bool) string {
	if !wantReply {
		return ""
	}
	return "error: " + err.Error()
}

// Close unsubscribes. The connection is owned by the publisher.
func (s *Subscriber) Close() {
	for _, sub := range s.subs {
		_ = sub.Unsubscribe()
	}
}
