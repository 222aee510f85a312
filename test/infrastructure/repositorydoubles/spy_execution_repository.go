//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// SpyExecutionRepository implements repositories.ExecutionRepository, recording
// every decision it accepts.
type SpyExecutionRepository struct {
	ExecutorName string
	ExecuteErr   error
	Executed     []entities.Decision
	Rejected     []entities.Decision
}

var _ repositories.ExecutionRepository = (*SpyExecutionRepository)(nil)

func (s *SpyExecutionRepository) Name() string {
	if s.ExecutorName == "" {
		return "spy"
	}
	return s.ExecutorName
}

func (s *SpyExecutionRepository) Execute(_ context.Context, decision entities.Decision) error {
	if s.ExecuteErr != nil {
		s.Rejected = append(s.Rejected, decision)
		return s.ExecuteErr
	}
	s.Executed = append(s.Executed, decision)
	return nil
}
