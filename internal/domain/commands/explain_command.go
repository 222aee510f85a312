package commands

import (
	"time"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/evaluator"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// Explain is the interface for the explain command.
type Explain interface {
	Execute(settings *entities.Settings, candidate entities.UpdateCandidate, at time.Time) (entities.Decision, error)
}

// ExplainCommand shows the decision a candidate would get, without touching the
// saved state.
type ExplainCommand struct {
	policies repositories.PolicyRepository
	clock    entities.Clock
}

// NewExplainCommand creates a new ExplainCommand.
func NewExplainCommand(policies repositories.PolicyRepository, clock entities.Clock) *ExplainCommand {
	return &ExplainCommand{policies: policies, clock: clock}
}

// Execute evaluates candidate at the given instant, or now when at is zero.
func (it *ExplainCommand) Execute(
	settings *entities.Settings,
	candidate entities.UpdateCandidate,
	at time.Time,
) (entities.Decision, error) {
	policy, err := it.policies.Load(settings.PolicyPath)
	if err != nil {
		return entities.Decision{}, err
	}
	if at.IsZero() {
		at = it.clock.Now()
	}
	return evaluator.New().Explain(policy, candidate, at), nil
}
