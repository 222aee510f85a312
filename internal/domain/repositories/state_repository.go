package repositories

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// StateRepository persists the evaluator state between process invocations.
type StateRepository interface {
	// Load returns the saved state, or an empty state when nothing was saved yet.
	Load(ctx context.Context) (entities.EvaluatorState, error)

	// Save replaces the saved state.
	Save(ctx context.Context, state entities.EvaluatorState) error
}

// StateRepositoryFactory opens the state repository stored at path.
type StateRepositoryFactory func(path string) StateRepository
