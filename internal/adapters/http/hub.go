package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/pkg/metrics"
)

const clientBuffer = 32

// Frame types pushed to presentation clients.
const (
	FrameSnapshot = "snapshot"
	FrameCommand  = "command"
	FrameError    = "error"
)

// Frame is one server-to-client WebSocket message.
type Frame struct {
	Type     string             `json:"type"`
	Snapshot *domain.Snapshot   `json:"snapshot,omitempty"`
	Command  domain.DrawCommand `json:"command,omitempty"`
	Message  string             `json:"message,omitempty"`
}

// Hub fans snapshots and draw tool commands out to connected clients.
// It implements ports.SnapshotPublisher and ports.DrawTool. Delivery never
// blocks the caller: a client whose buffer is full misses the frame.
type Hub struct {
	logger *slog.Logger

	mu      sync.RWMutex
	clients map[string]chan []byte
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger:  logger.With("component", "ws_hub"),
		clients: make(map[string]chan []byte),
	}
}

// AddClient registers id and returns its outbound frame channel.
func (h *Hub) AddClient(id string) <-chan []byte {
	h.mu.Lock()
	defer h.mu.Unlock()

	if existing, ok := h.clients[id]; ok {
		close(existing)
	}
	ch := make(chan []byte, clientBuffer)
	h.clients[id] = ch
	metrics.ActiveWebSockets.Set(float64(len(h.clients)))
	h.logger.Debug("ws client registered", "client_id", id, "clients", len(h.clients))
	return ch
}

// RemoveClient unregisters id and closes its channel.
func (h *Hub) RemoveClient(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if ch, ok := h.clients[id]; ok {
		close(ch)
		delete(h.clients, id)
		metrics.ActiveWebSockets.Set(float64(len(h.clients)))
		h.logger.Debug("ws client removed", "client_id", id, "clients", len(h.clients))
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) PublishSnapshot(ctx context.Context, snap domain.Snapshot) error {
	return h.broadcast(Frame{Type: FrameSnapshot, Snapshot: &snap})
}

func (h *Hub) EnableDrawing() {
	_ = h.broadcast(Frame{Type: FrameCommand, Command: domain.CommandEnableDrawing})
}

func (h *Hub) DisableDrawing() {
	_ = h.broadcast(Frame{Type: FrameCommand, Command: domain.CommandDisableDrawing})
}

func (h *Hub) broadcast(f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, ch := range h.clients {
		select {
		case ch <- data:
		default:
			metrics.DroppedFrames.Inc()
			h.logger.Warn("ws client buffer full, dropping frame", "client_id", id, "type", f.Type)
		}
	}
	return nil
}

// snapshotVersion returns the version of an encoded snapshot frame.
func snapshotVersion(data []byte) (uint64, bool) {
	var f struct {
		Type     string `json:"type"`
		Snapshot *struct {
			Version uint64 `json:"version"`
		} `json:"snapshot"`
	}
	if err := json.Unmarshal(data, &f); err != nil || f.Type != FrameSnapshot || f.Snapshot == nil {
		return 0, false
	}
	return f.Snapshot.Version, true
}
