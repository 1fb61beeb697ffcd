package natsadapter

import (
	"context"
	"strings"
	"testing"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/pkg/logging"
)

type mockSink struct {
	dispatched []domain.Event
	submitted  []domain.Event
	submitErr  error
}

func (m *mockSink) Dispatch(ctx context.Context, ev domain.Event) error {
	m.dispatched = append(m.dispatched, ev)
	return nil
}

func (m *mockSink) Submit(ctx context.Context, ev domain.Event) (domain.Snapshot, error) {
	m.submitted = append(m.submitted, ev)
	return domain.Snapshot{}, m.submitErr
}

const degenerateCapture = `{"type":"polygonCompleted","coordinates":[[0,0],[1,1],[2,2]]}`

func TestDeliver_PublishIsQueued(t *testing.T) {
	s := NewSubscriber(nil, logging.Discard())
	sink := &mockSink{}

	reply := s.deliver(context.Background(), sink, "aoi.capture.map", []byte(`{"type":"drawStarted"}`), false)
	if reply != "" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if len(sink.dispatched) != 1 || len(sink.submitted) != 0 {
		t.Fatalf("expected one dispatch, got %d dispatched %d submitted", len(sink.dispatched), len(sink.submitted))
	}
}

func TestDeliver_RequestWaitsForValidation(t *testing.T) {
	s := NewSubscriber(nil, logging.Discard())

	ok := &mockSink{}
	if reply := s.deliver(context.Background(), ok, "aoi.capture.map", []byte(`{"type":"drawStarted"}`), true); reply != replyOK {
		t.Fatalf("expected ok, got %q", reply)
	}
	if len(ok.submitted) != 1 || len(ok.dispatched) != 0 {
		t.Fatal("requests must go through Submit")
	}

	rejected := &mockSink{submitErr: domain.ErrDegenerateGeometry}
	reply := s.deliver(context.Background(), rejected, "aoi.capture.map", []byte(degenerateCapture), true)
	if !strings.HasPrefix(reply, "error: ") || !strings.Contains(reply, domain.ErrDegenerateGeometry.Error()) {
		t.Fatalf("expected degenerate geometry error, got %q", reply)
	}

	invalid := &mockSink{submitErr: domain.ErrInvalidEndpoint}
	reply = s.deliver(context.Background(), invalid, "aoi.capture.map", []byte(`{"type":"endpointChanged","endpoint":"nope"}`), true)
	if !strings.Contains(reply, domain.ErrInvalidEndpoint.Error()) {
		t.Fatalf("expected invalid endpoint error, got %q", reply)
	}
}

func TestDeliver_UndecodableMessage(t *testing.T) {
	s := NewSubscriber(nil, logging.Discard())
	sink := &mockSink{}

	if reply := s.deliver(context.Background(), sink, "aoi.capture.map", []byte(`{"type":"teleport"}`), false); reply != "" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if reply := s.deliver(context.Background(), sink, "aoi.capture.map", []byte(`not json`), true); !strings.HasPrefix(reply, "error: ") {
		t.Fatalf("expected error reply, got %q", reply)
	}
	if len(sink.dispatched)+len(sink.submitted) != 0 {
		t.Fatal("undecodable messages must not reach the sink")
	}
}
