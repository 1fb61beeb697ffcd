package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// EventKind names an event variant. It is also the wire name used by the
// WebSocket and NATS ingestion adapters.
type EventKind string

const (
	KindStartDrawing    EventKind = "start_drawing"
	KindStopDrawing     EventKind = "stop_drawing"
	KindPolygonCaptured EventKind = "polygon_captured"
	KindEndpointChanged EventKind = "endpoint_changed"
	KindQueryResolved   EventKind = "query_resolved"
	KindClearError      EventKind = "clear_error"
	KindPingRequested   EventKind = "ping_requested"
	KindPingResolved    EventKind = "ping_resolved"
)

// Event is one input to the interaction machine.
type Event interface {
	Kind() EventKind
}

// StartDrawing begins a new drawing session.
type StartDrawing struct{}

// StopDrawing cancels the current drawing session.
type StopDrawing struct{}

// PolygonCaptured carries the ring handed back by the draw tool.
type PolygonCaptured struct {
	Ring orb.Ring
}

// EndpointChanged selects another remote endpoint.
type EndpointChanged struct {
	EndpointID string
}

// QueryResolved reports the outcome of the request minted with Token.
type QueryResolved struct {
	Token    RequestToken
	Endpoint string
	Result   QueryResult
	Duration time.Duration
}

// ClearError dismisses a failed query.
type ClearError struct{}

// PingRequested probes the remote API.
type PingRequested struct{}

// PingResolved reports the outcome of a probe.
type PingResolved struct {
	OK bool
}

func (StartDrawing) Kind() EventKind    { return KindStartDrawing }
func (StopDrawing) Kind() EventKind     { return KindStopDrawing }
func (PolygonCaptured) Kind() EventKind { return KindPolygonCaptured }
func (EndpointChanged) Kind() EventKind { return KindEndpointChanged }
func (QueryResolved) Kind() EventKind   { return KindQueryResolved }
func (ClearError) Kind() EventKind      { return KindClearError }
func (PingRequested) Kind() EventKind   { return KindPingRequested }
func (PingResolved) Kind() EventKind    { return KindPingResolved }
