package domain_test

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/orb"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

func TestValidateRing(t *testing.T) {
	tests := []struct {
		name    string
		ring    orb.Ring
		wantErr bool
	}{
		{"triangle", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 0}}, false},
		{"square", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}, {0, 0}}, false},
		{"two distinct vertices", orb.Ring{{0, 0}, {1, 1}, {0, 0}}, true},
		{"repeated vertex", orb.Ring{{0, 0}, {1, 1}, {1, 1}, {0, 0}}, true},
		{"not closed", orb.Ring{{0, 0}, {1, 0}, {1, 1}, {0, 1}}, true},
		{"collinear", orb.Ring{{0, 0}, {1, 1}, {2, 2}, {0, 0}}, true},
		{"out of range", orb.Ring{{0, 0}, {181, 0}, {1, 1}, {0, 0}}, true},
		{"nan", orb.Ring{{0, 0}, {math.NaN(), 0}, {1, 1}, {0, 0}}, true},
		{"empty", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateRing(tt.ring)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrDegenerateGeometry) {
					t.Fatalf("expected ErrDegenerateGeometry, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestRingBounds(t *testing.T) {
	b := domain.RingBounds(orb.Ring{{-2.9, 43.2}, {-2.8, 43.2}, {-2.8, 43.3}, {-2.9, 43.2}})
	if b.MinLon != -2.9 || b.MaxLon != -2.8 {
		t.Errorf("unexpected lon bounds: %+v", b)
	}
	if b.MinLat != 43.2 || b.MaxLat != 43.3 {
		t.Errorf("unexpected lat bounds: %+v", b)
	}
}

func TestFailed_DefaultMessage(t *testing.T) {
	r := domain.Failed("")
	if r.OK || r.Message == "" {
		t.Errorf("expected failed result with a message, got %+v", r)
	}
}
