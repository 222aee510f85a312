//go:build unit

package commands_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/evaluator"
	"github.com/rios0rios0/autopolicy/test/domain/entitydoubles"
	builders "github.com/rios0rios0/autopolicy/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/autopolicy/test/infrastructure/repositorydoubles"
)

// savedState returns the state left behind by a tick that deferred cobra and
// emitted the JS group.
func savedState() entities.EvaluatorState {
	ev := evaluator.New()
	ev.Tick(builders.DublinPolicy(), dublin(3, 9, 30), []entities.UpdateCandidate{
		npmCandidate("react", dublin(3, 9, 0)),
		goCandidate("github.com/spf13/cobra", dublin(3, 9, 0)),
	})
	return ev.Snapshot(dublin(3, 9, 30))
}

func TestSignalCommand(t *testing.T) {
	t.Parallel()

	t.Run("should persist a trigger for the next run", func(t *testing.T) {
		t.Parallel()

		// given
		state := &doubles.StubStateRepository{State: savedState()}
		command := commands.NewSignalCommand(state.Factory(), entitydoubles.NewStubClock(dublin(3, 10, 0)))

		// when
		err := command.Trigger(context.Background(), testSettings(), "Go modules")

		// then
		require.NoError(t, err)
		assert.Equal(t, []string{"Go modules"}, state.State.Triggers)
		assert.Equal(t, dublin(3, 10, 0), state.State.SavedAt)
		assert.Equal(t, []string{"state.cbor"}, state.Paths)
	})

	t.Run("should complete an open change-set", func(t *testing.T) {
		t.Parallel()

		// given
		state := &doubles.StubStateRepository{State: savedState()}
		command := commands.NewSignalCommand(state.Factory(), entitydoubles.NewStubClock(dublin(3, 10, 0)))

		// when
		completed, err := command.Complete(context.Background(), testSettings(), "JS prod dependencies")

		// then
		require.NoError(t, err)
		assert.True(t, completed)
		assert.Empty(t, state.State.Limiter.Open)
	})

	t.Run("should report an unknown change-set without failing", func(t *testing.T) {
		t.Parallel()

		// given
		state := &doubles.StubStateRepository{}
		command := commands.NewSignalCommand(state.Factory(), entitydoubles.NewStubClock(dublin(3, 10, 0)))

		// when
		completed, err := command.Complete(context.Background(), testSettings(), "Go modules")

		// then
		require.NoError(t, err)
		assert.False(t, completed)
	})

	t.Run("should close the pending candidate of a package", func(t *testing.T) {
		t.Parallel()

		// given
		state := &doubles.StubStateRepository{State: savedState()}
		command := commands.NewSignalCommand(state.Factory(), entitydoubles.NewStubClock(dublin(3, 10, 0)))

		// when
		decision, closed, err := command.Close(context.Background(), testSettings(), "github.com/spf13/cobra")

		// then
		require.NoError(t, err)
		assert.True(t, closed)
		assert.Equal(t, entities.SuppressClosed, decision.Suppression)
		assert.Empty(t, state.State.Pending)
		assert.Len(t, state.State.Closed, 1)
	})

	t.Run("should not save when the state cannot be loaded", func(t *testing.T) {
		t.Parallel()

		// given
		state := &doubles.StubStateRepository{LoadErr: errors.New("corrupt state")}
		command := commands.NewSignalCommand(state.Factory(), entitydoubles.NewStubClock(dublin(3, 10, 0)))

		// when
		err := command.Trigger(context.Background(), testSettings(), "Go modules")

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "corrupt state")
		assert.Zero(t, state.SaveCalls)
	})
}
