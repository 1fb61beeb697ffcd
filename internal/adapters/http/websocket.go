package http

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/google/uuid"

	"github.com/samirrijal/aoiexplorer/internal/core/usecases"
)

const (
	wsPingInterval = 30 * time.Second
	wsWriteWait    = 10 * time.Second
	wsSubmitWait   = 5 * time.Second
)

// WebSocketHandler returns a handler that upgrades to WebSocket, pushes the
// current snapshot followed by every hub frame, and feeds client
// GeometryCapture messages into the machine.
// Clients send JSON: {"type":"polygonCompleted","geometry":{...}}
func WebSocketHandler(deps *Dependencies) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		clientID := uuid.NewString()
		logger := deps.logger().With("client_id", clientID, "remote_addr", c.RemoteAddr().String())
		logger.Info("ws client connected")

		frames := deps.Hub.AddClient(clientID)

		// Hub frames queued since AddClient may be older than this snapshot,
		// so the writer only forwards snapshots newer than the last one sent.
		snap := deps.Machine.Snapshot()
		sent := snap.Version
		if err := writeFrame(c, Frame{Type: FrameSnapshot, Snapshot: &snap}); err != nil {
			deps.Hub.RemoveClient(clientID)
			logger.Debug("ws initial snapshot failed", "error", err)
			return
		}

		done := make(chan struct{})

		// Single writer: hub frames, direct replies and keep-alive pings.
		replies := make(chan []byte, 4)
		go func() {
			ticker := time.NewTicker(wsPingInterval)
			defer ticker.Stop()
			for {
				var (
					msgType = websocket.TextMessage
					data    []byte
				)
				select {
				case f, ok := <-frames:
					if !ok {
						return
					}
					if v, isSnapshot := snapshotVersion(f); isSnapshot {
						if v <= sent {
							continue
						}
						sent = v
					}
					data = f
				case r := <-replies:
					data = r
				case <-ticker.C:
					msgType = websocket.PingMessage
				case <-done:
					return
				}
				_ = c.SetWriteDeadline(time.Now().Add(wsWriteWait))
				if err := c.WriteMessage(msgType, data); err != nil {
					logger.Debug("ws write failed", "error", err)
					return
				}
			}
		}()

		reply := func(f Frame) {
			data, err := json.Marshal(f)
			if err != nil {
				return
			}
			select {
			case replies <- data:
			default:
			}
		}

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			ev, err := usecases.DecodeCaptureMessage(msg)
			if err != nil {
				reply(Frame{Type: FrameError, Message: err.Error()})
				continue
			}

			ctx, cancel := context.WithTimeout(context.Background(), wsSubmitWait)
			_, err = deps.Machine.Submit(ctx, ev)
			cancel()
			if err != nil {
				logger.Debug("ws event rejected", "kind", ev.Kind(), "error", err)
				reply(Frame{Type: FrameError, Message: err.Error()})
			}
		}

		close(done)
		deps.Hub.RemoveClient(clientID)
		logger.Info("ws client disconnected")
	}
}

func writeFrame(c *websocket.Conn, f Frame) error {
	data, err := json.Marshal(f)
	if err != nil {
		return err
	}
	_ = c.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return c.WriteMessage(websocket.TextMessage, data)
}
