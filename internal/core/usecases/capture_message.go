package usecases

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/pkg/geospatial"
)

// Wire names of GeometryCapture messages sent by presentation clients.
const (
	CaptureDrawStarted      = "drawStarted"
	CaptureDrawStopped      = "drawStopped"
	CapturePolygonCompleted = "polygonCompleted"
	CaptureEndpointChanged  = "endpointChanged"
	CaptureClearError       = "clearError"
	CapturePing             = "ping"
)

// CaptureMessage is the JSON envelope shared by the WebSocket and NATS
// ingestion paths. A completed polygon arrives either as GeoJSON in
// Geometry or as raw [lon, lat] pairs in Coordinates.
type CaptureMessage struct {
	Type        string          `json:"type"`
	Geometry    json.RawMessage `json:"geometry,omitempty"`
	Coordinates [][]float64     `json:"coordinates,omitempty"`
	Endpoint    string          `json:"endpoint,omitempty"`
}

// DecodeCaptureMessage parses data into a machine event.
func DecodeCaptureMessage(data []byte) (domain.Event, error) {
	var msg CaptureMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode capture message: %w", err)
	}
	return msg.Event()
}

// Event maps the message onto the machine's event vocabulary.
func (m CaptureMessage) Event() (domain.Event, error) {
	switch m.Type {
	case CaptureDrawStarted:
		return domain.StartDrawing{}, nil
	case CaptureDrawStopped:
		return domain.StopDrawing{}, nil
	case CapturePolygonCompleted:
		ring, err := m.ring()
		if err != nil {
			return nil, err
		}
		return domain.PolygonCaptured{Ring: ring}, nil
	case CaptureEndpointChanged:
		return domain.EndpointChanged{EndpointID: m.Endpoint}, nil
	case CaptureClearError:
		return domain.ClearError{}, nil
	case CapturePing:
		return domain.PingRequested{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownEvent, m.Type)
	}
}

func (m CaptureMessage) ring() (orb.Ring, error) {
	if len(m.Geometry) == 0 && len(m.Coordinates) > 0 {
		return geospatial.FromCoordinates(m.Coordinates)
	}
	return geospatial.ParsePolygon(m.Geometry)
}
