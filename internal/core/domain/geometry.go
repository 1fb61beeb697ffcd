package domain

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Bounds represents a geographic bounding box.
type Bounds struct {
	MinLat float64 `json:"min_lat"`
	MinLon float64 `json:"min_lon"`
	MaxLat float64 `json:"max_lat"`
	MaxLon float64 `json:"max_lon"`
}

// MinRingVertices is the number of distinct vertices a ring needs to enclose an area.
const MinRingVertices = 3

// ValidateRing checks that r is a closed ring of [lon, lat] pairs with at least
// three distinct vertices and a non-zero enclosed area.
// Every failure wraps ErrDegenerateGeometry.
func ValidateRing(r orb.Ring) error {
	if len(r) < MinRingVertices+1 {
		return fmt.Errorf("%w: ring has %d points, need at least %d", ErrDegenerateGeometry, len(r), MinRingVertices+1)
	}
	if !r.Closed() {
		return fmt.Errorf("%w: ring is not closed", ErrDegenerateGeometry)
	}

	distinct := make(map[orb.Point]struct{}, len(r))
	for i, p := range r {
		lon, lat := p[0], p[1]
		if math.IsNaN(lon) || math.IsNaN(lat) || math.IsInf(lon, 0) || math.IsInf(lat, 0) {
			return fmt.Errorf("%w: vertex %d is not a finite coordinate", ErrDegenerateGeometry, i)
		}
		if lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return fmt.Errorf("%w: vertex %d (%g, %g) is outside WGS 84 bounds", ErrDegenerateGeometry, i, lon, lat)
		}
		if i < len(r)-1 {
			distinct[p] = struct{}{}
		}
	}
	if len(distinct) < MinRingVertices {
		return fmt.Errorf("%w: ring has %d distinct vertices, need at least %d", ErrDegenerateGeometry, len(distinct), MinRingVertices)
	}

	// Collinear vertices enclose nothing.
	if planar.Area(r) == 0 {
		return fmt.Errorf("%w: ring encloses no area", ErrDegenerateGeometry)
	}
	return nil
}

// RingBounds returns the bounding box of r.
func RingBounds(r orb.Ring) Bounds {
	b := r.Bound()
	return Bounds{
		MinLat: b.Min.Lat(),
		MinLon: b.Min.Lon(),
		MaxLat: b.Max.Lat(),
		MaxLon: b.Max.Lon(),
	}
}
