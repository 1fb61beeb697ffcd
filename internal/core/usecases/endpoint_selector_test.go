package usecases_test

import (
	"errors"
	"testing"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
	"github.com/samirrijal/aoiexplorer/internal/core/usecases"
)

func TestNewEndpointSelector_FirstIsActive(t *testing.T) {
	s, err := usecases.NewEndpointSelector([]string{"forest-cover", "land-use"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Active() != "forest-cover" {
		t.Errorf("expected forest-cover, got %s", s.Active())
	}
}

func TestNewEndpointSelector_Invalid(t *testing.T) {
	for name, ids := range map[string][]string{
		"empty":     nil,
		"blank id":  {"a", ""},
		"duplicate": {"a", "b", "a"},
	} {
		t.Run(name, func(t *testing.T) {
			if _, err := usecases.NewEndpointSelector(ids); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestEndpointSelector_Select(t *testing.T) {
	s, _ := usecases.NewEndpointSelector([]string{"a", "b"})
	if err := s.Select("b"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Active() != "b" {
		t.Errorf("expected b, got %s", s.Active())
	}

	err := s.Select("zzz")
	if !errors.Is(err, domain.ErrInvalidEndpoint) {
		t.Fatalf("expected ErrInvalidEndpoint, got %v", err)
	}
	if s.Active() != "b" {
		t.Errorf("invalid selection must not change active endpoint, got %s", s.Active())
	}
}

func TestEndpointSelector_EndpointsIsCopy(t *testing.T) {
	s, _ := usecases.NewEndpointSelector([]string{"a", "b"})
	eps := s.Endpoints()
	eps[0] = "mutated"
	if s.Endpoints()[0] != "a" {
		t.Error("Endpoints must return a copy")
	}
}
