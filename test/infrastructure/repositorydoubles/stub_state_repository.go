//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// StubStateRepository keeps the evaluator state in memory.
type StubStateRepository struct {
	State     entities.EvaluatorState
	LoadErr   error
	SaveErr   error
	SaveCalls int
	Paths     []string
}

var _ repositories.StateRepository = (*StubStateRepository)(nil)

// Factory returns a StateRepositoryFactory that always hands out this stub.
func (s *StubStateRepository) Factory() repositories.StateRepositoryFactory {
	return func(path string) repositories.StateRepository {
		s.Paths = append(s.Paths, path)
		return s
	}
}

func (s *StubStateRepository) Load(_ context.Context) (entities.EvaluatorState, error) {
	return s.State, s.LoadErr
}

func (s *StubStateRepository) Save(_ context.Context, state entities.EvaluatorState) error {
	s.SaveCalls++
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.State = state
	return nil
}
