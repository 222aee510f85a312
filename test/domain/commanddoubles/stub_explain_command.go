//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"time"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// StubExplainCommand is a stub implementation of commands.Explain.
type StubExplainCommand struct {
	Decision      entities.Decision
	Err           error
	LastCandidate entities.UpdateCandidate
	LastAt        time.Time
}

var _ commands.Explain = (*StubExplainCommand)(nil)

func (s *StubExplainCommand) Execute(
	_ *entities.Settings,
	candidate entities.UpdateCandidate,
	at time.Time,
) (entities.Decision, error) {
	s.LastCandidate = candidate
	s.LastAt = at
	return s.Decision, s.Err
}
