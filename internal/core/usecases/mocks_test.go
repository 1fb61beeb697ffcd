package usecases_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/core/usecases"
	"github.com/samirrijal/aoiexplorer/internal/pkg/logging"
)

// --- Gated transport: every Fetch blocks until the test replies ---

type gatedCall struct {
	endpoint string
	ring     orb.Ring
	reply    chan gatedReply
}

type gatedReply struct {
	payload json.RawMessage
	err     error
}

func (c *gatedCall) succeed(payload string) { c.reply <- gatedReply{payload: json.RawMessage(payload)} }
func (c *gatedCall) fail(err error)         { c.reply <- gatedReply{err: err} }

type gatedTransport struct {
	calls   chan *gatedCall
	pingErr error
}

func newGatedTransport() *gatedTransport {
	return &gatedTransport{calls: make(chan *gatedCall, 32)}
}

func (g *gatedTransport) Fetch(ctx context.Context, endpoint string, ring orb.Ring) (json.RawMessage, error) {
	c := &gatedCall{endpoint: endpoint, ring: ring, reply: make(chan gatedReply, 1)}
	g.calls <- c
	select {
	case r := <-c.reply:
		return r.payload, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (g *gatedTransport) Ping(ctx context.Context) error { return g.pingErr }

func (g *gatedTransport) next(t *testing.T) *gatedCall {
	t.Helper()
	select {
	case c := <-g.calls:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for transport call")
		return nil
	}
}

func (g *gatedTransport) expectNoCall(t *testing.T) {
	t.Helper()
	select {
	case c := <-g.calls:
		t.Fatalf("unexpected transport call to %s", c.endpoint)
	case <-time.After(50 * time.Millisecond):
	}
}

// --- Func transport: resolves synchronously ---

type funcTransport struct {
	fetchFn func(ctx context.Context, endpoint string, ring orb.Ring) (json.RawMessage, error)
	pingFn  func(ctx context.Context) error
}

func (f *funcTransport) Fetch(ctx context.Context, endpoint string, ring orb.Ring) (json.RawMessage, error) {
	if f.fetchFn != nil {
		return f.fetchFn(ctx, endpoint, ring)
	}
	return json.RawMessage(`{}`), nil
}

func (f *funcTransport) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

// --- Draw tool recorder ---

type drawRecorder struct {
	mu       sync.Mutex
	commands []domain.DrawCommand
}

func (d *drawRecorder) EnableDrawing()  { d.record(domain.CommandEnableDrawing) }
func (d *drawRecorder) DisableDrawing() { d.record(domain.CommandDisableDrawing) }

func (d *drawRecorder) record(c domain.DrawCommand) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.commands = append(d.commands, c)
}

func (d *drawRecorder) last() domain.DrawCommand {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.commands) == 0 {
		return ""
	}
	return d.commands[len(d.commands)-1]
}

// --- Snapshot publisher recorder ---

type snapshotRecorder struct {
	mu    sync.Mutex
	snaps []domain.Snapshot
}

func (s *snapshotRecorder) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps = append(s.snaps, snap)
	return nil
}

func (s *snapshotRecorder) all() []domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Snapshot(nil), s.snaps...)
}

// --- Query log recorder ---

type queryLogRecorder struct {
	mu      sync.Mutex
	entries []domain.QueryLogEntry
	done    chan struct{}
}

func newQueryLogRecorder() *queryLogRecorder {
	return &queryLogRecorder{done: make(chan struct{}, 16)}
}

func (q *queryLogRecorder) Insert(ctx context.Context, e *domain.QueryLogEntry) error {
	q.mu.Lock()
	q.entries = append(q.entries, *e)
	q.mu.Unlock()
	q.done <- struct{}{}
	return nil
}

func (q *queryLogRecorder) Recent(ctx context.Context, limit int) ([]domain.QueryLogEntry, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]domain.QueryLogEntry(nil), q.entries...), nil
}

// --- Helpers ---

func startMachine(t *testing.T, deps usecases.MachineDeps) *usecases.InteractionMachine {
	t.Helper()
	if deps.Endpoints == nil {
		sel, err := usecases.NewEndpointSelector([]string{"A", "B"})
		if err != nil {
			t.Fatal(err)
		}
		deps.Endpoints = sel
	}
	if deps.Logger == nil {
		deps.Logger = logging.Discard()
	}
	m, err := usecases.NewInteractionMachine(deps)
	if err != nil {
		t.Fatalf("new machine: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = m.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return m
}

func submit(t *testing.T, m *usecases.InteractionMachine, ev domain.Event) (domain.Snapshot, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	snap, err := m.Submit(ctx, ev)
	if isContextErr(err) {
		t.Fatalf("submit %s: %v", ev.Kind(), err)
	}
	return snap, err
}

func isContextErr(err error) bool {
	return err == context.DeadlineExceeded || err == context.Canceled
}

func waitFor(t *testing.T, m *usecases.InteractionMachine, desc string, cond func(domain.Snapshot) bool) domain.Snapshot {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap := m.Snapshot()
		if cond(snap) {
			return snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %s; last snapshot: %+v", desc, snap)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func phaseIs(p domain.Phase) func(domain.Snapshot) bool {
	return func(s domain.Snapshot) bool { return s.QueryPhase == p }
}
