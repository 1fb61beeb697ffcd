package geospatial

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

// Area returns the geodesic area enclosed by r in square meters.
func Area(r orb.Ring) float64 {
	return math.Abs(geo.Area(r))
}

// ParsePolygon decodes a GeoJSON Polygon geometry, or a Feature wrapping one,
// into its exterior ring. Holes and other geometry types are rejected.
// The ring is returned as-is; validation is left to domain.ValidateRing.
func ParsePolygon(data []byte) (orb.Ring, error) {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}

	var g orb.Geometry
	switch probe.Type {
	case "Feature":
		f, err := geojson.UnmarshalFeature(data)
		if err != nil {
			return nil, fmt.Errorf("decode feature: %w", err)
		}
		g = f.Geometry
	case "":
		return nil, fmt.Errorf("%w: missing geojson type", domain.ErrUnsupportedGeometry)
	default:
		geom, err := geojson.UnmarshalGeometry(data)
		if err != nil {
			return nil, fmt.Errorf("decode geometry: %w", err)
		}
		g = geom.Geometry()
	}

	return ringOf(g)
}

// FromCoordinates builds a ring from raw [lon, lat] pairs, closing it when
// the last vertex does not repeat the first.
func FromCoordinates(coords [][]float64) (orb.Ring, error) {
	ring := make(orb.Ring, 0, len(coords)+1)
	for i, c := range coords {
		if len(c) < 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d values", domain.ErrUnsupportedGeometry, i, len(c))
		}
		ring = append(ring, orb.Point{c[0], c[1]})
	}
	if len(ring) > 0 && !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return ring, nil
}

// ToGeoJSON wraps r as a GeoJSON Polygon geometry.
func ToGeoJSON(r orb.Ring) *geojson.Geometry {
	return geojson.NewGeometry(orb.Polygon{r})
}

// MarshalRing encodes r as a GeoJSON Polygon geometry.
func MarshalRing(r orb.Ring) ([]byte, error) {
	return json.Marshal(ToGeoJSON(r))
}

func ringOf(g orb.Geometry) (orb.Ring, error) {
	switch v := g.(type) {
	case orb.Polygon:
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: polygon has no rings", domain.ErrUnsupportedGeometry)
		}
		if len(v) > 1 {
			return nil, fmt.Errorf("%w: polygons with holes are not supported", domain.ErrUnsupportedGeometry)
		}
		return v[0], nil
	case orb.Ring:
		return v, nil
	case nil:
		return nil, fmt.Errorf("%w: missing geometry", domain.ErrUnsupportedGeometry)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedGeometry, g.GeoJSONType())
	}
}
