//go:build integration || unit || test

// Package repositorydoubles provides test doubles (spies, stubs, dummies) for
// repository interfaces. They are hand-written, no mock framework involved.
package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// SpyDiscoveryRepository implements repositories.DiscoveryRepository as a configurable spy.
type SpyDiscoveryRepository struct {
	// --- identity ---
	SourceName string

	// --- Discover ---
	Candidates    []entities.UpdateCandidate
	DiscoverErr   error
	DiscoverCalls int

	// --- Acknowledge ---
	AcknowledgeErr   error
	AcknowledgeCalls int
}

var _ repositories.DiscoveryRepository = (*SpyDiscoveryRepository)(nil)

func (s *SpyDiscoveryRepository) Name() string {
	if s.SourceName == "" {
		return "spy"
	}
	return s.SourceName
}

func (s *SpyDiscoveryRepository) Discover(_ context.Context) ([]entities.UpdateCandidate, error) {
	s.DiscoverCalls++
	return s.Candidates, s.DiscoverErr
}

func (s *SpyDiscoveryRepository) Acknowledge(_ context.Context) error {
	s.AcknowledgeCalls++
	return s.AcknowledgeErr
}
