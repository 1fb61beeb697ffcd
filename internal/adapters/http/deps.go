package http

import (
	"context"
	"log/slog"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/core/ports"
)

// Machine is the interaction machine as seen by the outer surfaces.
type Machine interface {
	Submit(ctx context.Context, ev domain.Event) (domain.Snapshot, error)
	Dispatch(ctx context.Context, ev domain.Event) error
	Snapshot() domain.Snapshot
	Endpoints() []string
}

// Pinger is satisfied by backends that can be probed for readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ConnChecker reports connection state without a round trip.
type ConnChecker interface {
	Healthy() bool
}

// Dependencies holds everything the HTTP surfaces need. Optional backends
// are nil when not configured.
type Dependencies struct {
	Machine  Machine
	Hub      *Hub
	Map      domain.MapView
	QueryLog ports.QueryLogRepository
	DB       Pinger
	Cache    Pinger
	NATS     ConnChecker
	Logger   *slog.Logger
	Version  string
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}
