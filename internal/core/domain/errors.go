package domain

import "errors"

var (
	// ErrInvalidEndpoint is returned when an endpoint id is not in the configured set.
	ErrInvalidEndpoint = errors.New("invalid endpoint")

	// ErrDegenerateGeometry is returned when a captured polygon cannot enclose an area.
	ErrDegenerateGeometry = errors.New("degenerate geometry")

	// ErrUnsupportedGeometry is returned for GeoJSON that is not a single-ring polygon.
	ErrUnsupportedGeometry = errors.New("unsupported geometry")

	// ErrNotDrawing is returned when a polygon arrives outside a drawing session.
	ErrNotDrawing = errors.New("drawing is not active")

	// ErrUnknownEvent is returned when the interaction machine receives an event it cannot route.
	ErrUnknownEvent = errors.New("unknown event")

	// ErrMachineStopped is returned when events are submitted after the machine loop exited.
	ErrMachineStopped = errors.New("interaction machine stopped")

	// ErrNotConfigured is returned by optional adapters that were not set up.
	ErrNotConfigured = errors.New("not configured")
)
