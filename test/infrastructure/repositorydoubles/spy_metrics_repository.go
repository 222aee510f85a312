//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// SpyMetricsRepository records every observed tick.
type SpyMetricsRepository struct {
	Ticks []entities.TickResult
}

var _ repositories.MetricsRepository = (*SpyMetricsRepository)(nil)

func (s *SpyMetricsRepository) ObserveTick(result entities.TickResult) {
	s.Ticks = append(s.Ticks, result)
}
