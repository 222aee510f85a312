package repositories

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// ExecutionRepository abstracts the collaborator that turns decisions into pull
// requests, branch pushes or merges on a Git hosting service.
type ExecutionRepository interface {
	// Name returns the executor identifier (e.g. "outbox", "log").
	Name() string

	// Execute hands one emitted decision over. An error means the change-set was
	// not accepted and the evaluator should retry it on a later tick.
	Execute(ctx context.Context, decision entities.Decision) error
}
