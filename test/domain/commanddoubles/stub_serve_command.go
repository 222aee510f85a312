//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// StubServeCommand is a stub implementation of commands.Serve recording the
// signals it receives.
type StubServeCommand struct {
	Err error

	TickResult  entities.TickResult
	TickCalls   int
	Submitted   []entities.UpdateCandidate
	Triggered   []string
	Completed   []string
	CompleteHit bool
	Closed      []string
	CloseResult entities.Decision
	CloseHit    bool
	Explained   []entities.UpdateCandidate
	Decision    entities.Decision
	Tracked     []entities.TrackedCandidate
}

var _ commands.Serve = (*StubServeCommand)(nil)

func (s *StubServeCommand) Prepare(_ context.Context, _ *entities.Settings) error { return s.Err }

func (s *StubServeCommand) Run(_ context.Context) error { return s.Err }

func (s *StubServeCommand) Tick(_ context.Context) (entities.TickResult, error) {
	s.TickCalls++
	return s.TickResult, s.Err
}

func (s *StubServeCommand) Submit(candidates ...entities.UpdateCandidate) {
	s.Submitted = append(s.Submitted, candidates...)
}

func (s *StubServeCommand) Trigger(_ context.Context, key string) error {
	s.Triggered = append(s.Triggered, key)
	return s.Err
}

func (s *StubServeCommand) Complete(_ context.Context, key string) (bool, error) {
	s.Completed = append(s.Completed, key)
	return s.CompleteHit, s.Err
}

func (s *StubServeCommand) Close(_ context.Context, packageName string) (entities.Decision, bool, error) {
	s.Closed = append(s.Closed, packageName)
	return s.CloseResult, s.CloseHit, s.Err
}

func (s *StubServeCommand) Explain(candidate entities.UpdateCandidate) (entities.Decision, error) {
	s.Explained = append(s.Explained, candidate)
	return s.Decision, s.Err
}

func (s *StubServeCommand) Pending() []entities.TrackedCandidate { return s.Tracked }
