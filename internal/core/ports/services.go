package ports

import (
	"context"
	"encoding/json"

	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

// QueryTransport performs the remote statistics call for an AOI.
// Errors are turned into failed query results by the request lifecycle.
type QueryTransport interface {
	Fetch(ctx context.Context, endpointID string, ring orb.Ring) (json.RawMessage, error)
	Ping(ctx context.Context) error
}

// DrawTool receives imperative commands from the interaction machine.
// Implementations must not block.
type DrawTool interface {
	EnableDrawing()
	DisableDrawing()
}

// SnapshotPublisher receives every published interaction snapshot.
// Implementations must not block.
type SnapshotPublisher interface {
	PublishSnapshot(ctx context.Context, snap domain.Snapshot) error
}

// EventSink accepts interaction events. Dispatch queues without waiting;
// Submit waits for the event to be applied and returns its validation error.
type EventSink interface {
	Dispatch(ctx context.Context, ev domain.Event) error
	Submit(ctx context.Context, ev domain.Event) (domain.Snapshot, error)
}

// CaptureSubscriber delivers GeometryCapture events from an external source.
type CaptureSubscriber interface {
	SubscribeCapture(ctx context.Context, sink EventSink) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}
