package usecases

import (
	"fmt"
	"slices"

	"github.com/samirrijal/aoiexplorer/internal/core/domain"
)

// EndpointSelector holds the active remote endpoint out of a fixed ordered set.
type EndpointSelector struct {
	endpoints []string
	active    string
}

// NewEndpointSelector creates a selector over ids, activating the first one.
func NewEndpointSelector(ids []string) (*EndpointSelector, error) {
	if len(ids) == 0 {
		return nil, fmt.Errorf("endpoint selector needs at least one endpoint")
	}
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			return nil, fmt.Errorf("endpoint ids must not be empty")
		}
		if _, dup := seen[id]; dup {
			return nil, fmt.Errorf("duplicate endpoint id %q", id)
		}
		seen[id] = struct{}{}
	}
	return &EndpointSelector{endpoints: slices.Clone(ids), active: ids[0]}, nil
}

// Active returns the selected endpoint id.
func (s *EndpointSelector) Active() string { return s.active }

// Endpoints returns the configured ids in order.
func (s *EndpointSelector) Endpoints() []string { return slices.Clone(s.endpoints) }

// Contains reports whether id is configured.
func (s *EndpointSelector) Contains(id string) bool {
	return slices.Contains(s.endpoints, id)
}

// Select activates id. Unknown ids return ErrInvalidEndpoint and leave the selection as is.
func (s *EndpointSelector) Select(id string) error {
	if !s.Contains(id) {
		return fmt.Errorf("%w: %q", domain.ErrInvalidEndpoint, id)
	}
	s.active = id
	return nil
}
