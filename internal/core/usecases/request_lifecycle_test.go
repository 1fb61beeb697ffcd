package usecases_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/core/usecases"
)

func collectResolutions() (usecases.ResolveFunc, chan domain.Event) {
	ch := make(chan domain.Event, 16)
	return func(ctx context.Context, ev domain.Event) error {
		ch <- ev
		return nil
	}, ch
}

func nextResolution(t *testing.T, ch chan domain.Event) domain.Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for resolution")
		return nil
	}
}

func TestRequestLifecycle_TokensIncrease(t *testing.T) {
	resolve, ch := collectResolutions()
	rl := usecases.NewRequestLifecycle(&funcTransport{}, time.Second, resolve)

	ctx := context.Background()
	first := rl.Start(ctx, "A", triangle)
	second := rl.Start(ctx, "A", triangle)
	third := rl.Start(ctx, "B", triangle)

	if first == 0 {
		t.Fatal("token 0 is reserved for no request")
	}
	if !(first < second && second < third) {
		t.Fatalf("tokens not strictly increasing: %d %d %d", first, second, third)
	}

	rl.Wait()
	if len(ch) != 3 {
		t.Fatalf("expected 3 resolutions, got %d", len(ch))
	}
}

func TestRequestLifecycle_Success(t *testing.T) {
	resolve, ch := collectResolutions()
	transport := &funcTransport{
		fetchFn: func(ctx context.Context, endpoint string, ring orb.Ring) (json.RawMessage, error) {
			if endpoint != "forest" {
				t.Errorf("unexpected endpoint %q", endpoint)
			}
			return json.RawMessage(`{"cover":0.4}`), nil
		},
	}
	rl := usecases.NewRequestLifecycle(transport, time.Second, resolve)

	token := rl.Start(context.Background(), "forest", triangle)
	ev := nextResolution(t, ch)

	res, ok := ev.(domain.QueryResolved)
	if !ok {
		t.Fatalf("expected QueryResolved, got %T", ev)
	}
	if res.Token != token || res.Endpoint != "forest" {
		t.Fatalf("resolution mismatch: %+v", res)
	}
	if !res.Result.OK || string(res.Result.Payload) != `{"cover":0.4}` {
		t.Fatalf("unexpected result: %+v", res.Result)
	}
}

func TestRequestLifecycle_FailureCarriesMessage(t *testing.T) {
	resolve, ch := collectResolutions()
	transport := &funcTransport{
		fetchFn: func(ctx context.Context, endpoint string, ring orb.Ring) (json.RawMessage, error) {
			return nil, errors.New("upstream returned 503")
		},
	}
	rl := usecases.NewRequestLifecycle(transport, time.Second, resolve)

	rl.Start(context.Background(), "A", triangle)
	res := nextResolution(t, ch).(domain.QueryResolved)

	if res.Result.OK {
		t.Fatal("expected failure")
	}
	if res.Result.Message != "upstream returned 503" {
		t.Fatalf("unexpected message %q", res.Result.Message)
	}
}

func TestRequestLifecycle_PanicBecomesFailure(t *testing.T) {
	resolve, ch := collectResolutions()
	transport := &funcTransport{
		fetchFn: func(ctx context.Context, endpoint string, ring orb.Ring) (json.RawMessage, error) {
			panic("boom")
		},
	}
	rl := usecases.NewRequestLifecycle(transport, time.Second, resolve)

	rl.Start(context.Background(), "A", triangle)
	res := nextResolution(t, ch).(domain.QueryResolved)

	if res.Result.OK || res.Result.Message == "" {
		t.Fatalf("expected failure with message, got %+v", res.Result)
	}
}

func TestRequestLifecycle_Timeout(t *testing.T) {
	resolve, ch := collectResolutions()
	transport := &funcTransport{
		fetchFn: func(ctx context.Context, endpoint string, ring orb.Ring) (json.RawMessage, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		},
	}
	rl := usecases.NewRequestLifecycle(transport, 20*time.Millisecond, resolve)

	rl.Start(context.Background(), "A", triangle)
	res := nextResolution(t, ch).(domain.QueryResolved)

	if res.Result.OK {
		t.Fatal("expected timeout failure")
	}
	if res.Result.Message != context.DeadlineExceeded.Error() {
		t.Fatalf("unexpected message %q", res.Result.Message)
	}
}

func TestRequestLifecycle_Ping(t *testing.T) {
	tests := []struct {
		name    string
		pingErr error
		want    bool
	}{
		{"reachable", nil, true},
		{"unreachable", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolve, ch := collectResolutions()
			transport := &funcTransport{
				pingFn: func(ctx context.Context) error { return tt.pingErr },
			}
			rl := usecases.NewRequestLifecycle(transport, time.Second, resolve)

			rl.Ping(context.Background())
			ev := nextResolution(t, ch)

			pr, ok := ev.(domain.PingResolved)
			if !ok {
				t.Fatalf("expected PingResolved, got %T", ev)
			}
			if pr.OK != tt.want {
				t.Fatalf("got OK=%v, want %v", pr.OK, tt.want)
			}
		})
	}
}
