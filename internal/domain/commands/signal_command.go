package commands

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// Signal is the interface for operator signals applied to the saved state
// between two runs.
type Signal interface {
	Trigger(ctx context.Context, settings *entities.Settings, key string) error
	Complete(ctx context.Context, settings *entities.Settings, key string) (bool, error)
	Close(ctx context.Context, settings *entities.Settings, packageName string) (entities.Decision, bool, error)
}

// SignalCommand loads the saved state, applies one signal and saves it back.
type SignalCommand struct {
	states repositories.StateRepositoryFactory
	clock  entities.Clock
}

// NewSignalCommand creates a new SignalCommand.
func NewSignalCommand(states repositories.StateRepositoryFactory, clock entities.Clock) *SignalCommand {
	return &SignalCommand{states: states, clock: clock}
}

// Trigger records a manual flush of key for the next run.
func (it *SignalCommand) Trigger(ctx context.Context, settings *entities.Settings, key string) error {
	return it.apply(ctx, settings, func(sess *session) {
		sess.evaluator.Trigger(key)
	})
}

// Complete frees the concurrency slot held by the change-set key.
func (it *SignalCommand) Complete(ctx context.Context, settings *entities.Settings, key string) (bool, error) {
	var completed bool
	err := it.apply(ctx, settings, func(sess *session) {
		completed = sess.evaluator.Complete(key)
	})
	if err == nil && !completed {
		logger.Warnf("No open change-set %q", key)
	}
	return completed, err
}

// Close vetoes the pending candidate of packageName.
func (it *SignalCommand) Close(
	ctx context.Context,
	settings *entities.Settings,
	packageName string,
) (entities.Decision, bool, error) {
	var (
		decision entities.Decision
		closed   bool
	)
	err := it.apply(ctx, settings, func(sess *session) {
		decision, closed = sess.evaluator.Close(packageName, it.clock.Now())
	})
	return decision, closed, err
}

func (it *SignalCommand) apply(ctx context.Context, settings *entities.Settings, signal func(sess *session)) error {
	sess, err := openSession(ctx, it.states, settings.StatePath)
	if err != nil {
		return err
	}
	signal(sess)
	return sess.save(ctx, it.clock.Now())
}
