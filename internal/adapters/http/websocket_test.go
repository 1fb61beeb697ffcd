package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	ws "github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v2"

	handler "github.com/samirrijal/aoiexplorer/internal/adapters/http"
	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/pkg/logging"
)

// fakeMachine lets tests control the interleaving between snapshot reads,
// hub publishes and submitted events.
type fakeMachine struct {
	snapshotFn func() domain.Snapshot
	submitFn   func(ctx context.Context, ev domain.Event) (domain.Snapshot, error)
}

func (m *fakeMachine) Snapshot() domain.Snapshot {
	if m.snapshotFn != nil {
		return m.snapshotFn()
	}
	return domain.Snapshot{}
}

func (m *fakeMachine) Submit(ctx context.Context, ev domain.Event) (domain.Snapshot, error) {
	if m.submitFn != nil {
		return m.submitFn(ctx, ev)
	}
	return m.Snapshot(), nil
}

func (m *fakeMachine) Dispatch(ctx context.Context, ev domain.Event) error { return nil }
func (m *fakeMachine) Endpoints() []string { return []string{"forest-cover"} }

func fakeDeps(m *fakeMachine) *handler.Dependencies {
	logger := logging.Discard()
	return &handler.Dependencies{Machine: m, Hub: handler.NewHub(logger), Logger: logger, Version: "test"}
}

func serve(t *testing.T, deps *handler.Dependencies) string {
	t.Helper()
	app := fiber.New(fiber.Config{DisableStartupMessage: true})
	handler.SetupRoutes(app, deps)

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	go func() { _ = app.Listener(ln) }()
	t.Cleanup(func() { _ = app.Shutdown() })
	return ln.Addr().String()
}

// lastSnapshotVersion reads frames until the connection goes quiet and
// returns the version of the last snapshot frame received.
func lastSnapshotVersion(t *testing.T, addr string) uint64 {
	t.Helper()
	conn, _, err := ws.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	var (
		last uint64
		seen bool
	)
	for {
		_ = conn.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		var f handler.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if f.Type == handler.FrameSnapshot && f.Snapshot != nil {
			last = f.Snapshot.Version
			seen = true
		}
	}
	if !seen {
		t.Fatal("no snapshot frame received")
	}
	return last
}

func TestWebSocket_NewerHubSnapshotWins(t *testing.T) {
	var deps *handler.Dependencies
	m := &fakeMachine{}
	// A transition lands between hub registration and the snapshot read.
	m.snapshotFn = func() domain.Snapshot {
		_ = deps.Hub.PublishSnapshot(context.Background(), domain.Snapshot{Version: 2})
		return domain.Snapshot{Version: 1}
	}
	deps = fakeDeps(m)
	addr := serve(t, deps)

	for i := 0; i < 10; i++ {
		if v := lastSnapshotVersion(t, addr); v != 2 {
			t.Fatalf("connection %d ended on version %d, want 2", i, v)
		}
	}
}

func TestWebSocket_OlderHubSnapshotDropped(t *testing.T) {
	var deps *handler.Dependencies
	m := &fakeMachine{}
	m.snapshotFn = func() domain.Snapshot {
		_ = deps.Hub.PublishSnapshot(context.Background(), domain.Snapshot{Version: 1})
		return domain.Snapshot{Version: 2}
	}
	deps = fakeDeps(m)
	addr := serve(t, deps)

	for i := 0; i < 10; i++ {
		if v := lastSnapshotVersion(t, addr); v != 2 {
			t.Fatalf("connection %d ended on version %d, want 2", i, v)
		}
	}
}

func TestWebSocket_RejectedEventGetsErrorFrame(t *testing.T) {
	m := &fakeMachine{
		submitFn: func(ctx context.Context, ev domain.Event) (domain.Snapshot, error) {
			return domain.Snapshot{}, domain.ErrInvalidEndpoint
		},
	}
	addr := serve(t, fakeDeps(m))

	conn, _, err := ws.DefaultDialer.Dial("ws://"+addr+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := conn.WriteMessage(ws.TextMessage, []byte(`{"type":"endpointChanged","endpoint":"nope"}`)); err != nil {
		t.Fatal(err)
	}
	for {
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			t.Fatalf("read: %v", err)
		}
		var f handler.Frame
		if err := json.Unmarshal(data, &f); err != nil {
			t.Fatal(err)
		}
		if f.Type == handler.FrameError {
			return
		}
	}
}

func TestCapturePolygon_DrawingStoppedBeforeSubmit(t *testing.T) {
	// The snapshot still says drawing while the machine has already left it.
	m := &fakeMachine{
		snapshotFn: func() domain.Snapshot { return domain.Snapshot{DrawingActive: true} },
		submitFn: func(ctx context.Context, ev domain.Event) (domain.Snapshot, error) {
			return domain.Snapshot{}, domain.ErrNotDrawing
		},
	}
	app := fiber.New()
	handler.SetupRoutes(app, fakeDeps(m))

	status, body := doRequest(t, app, "POST", "/v1/aoi", triangleGeoJSON)
	if status != 409 {
		t.Fatalf("expected 409, got %d: %s", status, body)
	}
	if apiErr := decodeError(t, body); apiErr.Code != "conflict" {
		t.Fatalf("unexpected error code %q", apiErr.Code)
	}
}

func TestCapturePolygon_WrappedNotDrawing(t *testing.T) {
	m := &fakeMachine{
		submitFn: func(ctx context.Context, ev domain.Event) (domain.Snapshot, error) {
			return domain.Snapshot{}, errors.Join(errors.New("capture"), domain.ErrNotDrawing)
		},
	}
	app := fiber.New()
	handler.SetupRoutes(app, fakeDeps(m))

	status, _ := doRequest(t, app, "POST", "/v1/aoi", triangleGeoJSON)
	if status != 409 {
		t.Fatalf("expected 409, got %d", status)
	}
}
