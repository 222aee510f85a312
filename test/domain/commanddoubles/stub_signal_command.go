//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// StubSignalCommand is a stub implementation of commands.Signal.
type StubSignalCommand struct {
	Err         error
	Triggered   []string
	Completed   []string
	CompleteHit bool
	Closed      []string
	CloseResult entities.Decision
	CloseHit    bool
}

var _ commands.Signal = (*StubSignalCommand)(nil)

func (s *StubSignalCommand) Trigger(_ context.Context, _ *entities.Settings, key string) error {
	s.Triggered = append(s.Triggered, key)
	return s.Err
}

func (s *StubSignalCommand) Complete(_ context.Context, _ *entities.Settings, key string) (bool, error) {
	s.Completed = append(s.Completed, key)
	return s.CompleteHit, s.Err
}

func (s *StubSignalCommand) Close(
	_ context.Context,
	_ *entities.Settings,
	packageName string,
) (entities.Decision, bool, error) {
	s.Closed = append(s.Closed, packageName)
	return s.CloseResult, s.CloseHit, s.Err
}
