package usecases

import (
	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/pkg/geospatial"
)

// AreaOfInterestModel holds the current AOI ring and its derived area.
// The area is nil exactly when the ring is nil.
type AreaOfInterestModel struct {
	ring orb.Ring
	area *float64
}

// NewAreaOfInterestModel creates an empty model.
func NewAreaOfInterestModel() *AreaOfInterestModel {
	return &AreaOfInterestModel{}
}

// Set validates r and replaces the current AOI with it. On error the model is unchanged.
func (m *AreaOfInterestModel) Set(r orb.Ring) error {
	if err := domain.ValidateRing(r); err != nil {
		return err
	}
	ring := r.Clone()
	area := geospatial.Area(ring)
	m.ring = ring
	m.area = &area
	return nil
}

// Clear removes the AOI and its area.
func (m *AreaOfInterestModel) Clear() {
	m.ring = nil
	m.area = nil
}

// IsSet reports whether an AOI is present.
func (m *AreaOfInterestModel) IsSet() bool {
	return m.ring != nil
}

// Geometry returns a copy of the AOI ring, or nil.
func (m *AreaOfInterestModel) Geometry() orb.Ring {
	if m.ring == nil {
		return nil
	}
	return m.ring.Clone()
}

// Area returns the AOI area in square meters, or nil.
func (m *AreaOfInterestModel) Area() *float64 {
	if m.area == nil {
		return nil
	}
	a := *m.area
	return &a
}
