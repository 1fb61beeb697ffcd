package domain

import (
	"encoding/json"

	"github.com/paulmach/orb/geojson"
)

// Snapshot is the read-only projection of interaction state handed to presentation.
type Snapshot struct {
	Version         uint64            `json:"version"`
	DrawingActive   bool              `json:"drawing_active"`
	AreaOfInterest  *geojson.Geometry `json:"area_of_interest"`
	AreaMeasurement *float64          `json:"area_measurement"`
	AreaBounds      *Bounds           `json:"area_bounds,omitempty"`
	ActiveEndpoint  string            `json:"active_endpoint"`
	Endpoints       []string          `json:"endpoints"`
	QueryPhase      Phase             `json:"query_phase"`
	RequestToken    RequestToken      `json:"request_token,omitempty"`
	Payload         json.RawMessage   `json:"payload"`
	ErrorMessage    *string           `json:"error_message"`
	CaptureError    *string           `json:"capture_error"`
	Pong            bool              `json:"pong"`
}

// DrawCommand is an imperative instruction for the draw tool.
type DrawCommand string

const (
	CommandEnableDrawing  DrawCommand = "enable_drawing"
	CommandDisableDrawing DrawCommand = "disable_drawing"
)

// MapView is passed through to presentation untouched.
type MapView struct {
	Center GeoPoint `json:"center"`
	Zoom   int      `json:"zoom"`
}
