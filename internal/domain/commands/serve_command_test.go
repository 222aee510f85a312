//go:build unit

package commands_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/discovery"
	"github.com/rios0rios0/autopolicy/test/domain/entitydoubles"
	builders "github.com/rios0rios0/autopolicy/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/autopolicy/test/infrastructure/repositorydoubles"
)

type serveFixture struct {
	source   *doubles.SpyDiscoveryRepository
	executor *doubles.SpyExecutionRepository
	state    *doubles.StubStateRepository
	metrics  *doubles.SpyMetricsRepository
	clock    *entitydoubles.StubClock
	command  *commands.ServeCommand
}

func newServeFixture() *serveFixture {
	f := &serveFixture{
		source:   &doubles.SpyDiscoveryRepository{},
		executor: &doubles.SpyExecutionRepository{},
		state:    &doubles.StubStateRepository{},
		metrics:  &doubles.SpyMetricsRepository{},
		clock:    entitydoubles.NewStubClock(dublin(3, 9, 30)),
	}
	f.command = commands.NewServeCommand(
		&doubles.StubPolicyRepository{Policy: builders.DublinPolicy()},
		f.state.Factory(),
		discoveryRegistry(f.source),
		executionRegistry(f.executor, &doubles.SpyExecutionRepository{}),
		discovery.NewMemoryQueueRepository(),
		f.metrics,
		f.clock,
	)
	return f
}

func (f *serveFixture) prepare(t *testing.T) {
	t.Helper()
	require.NoError(t, f.command.Prepare(context.Background(), testSettings()))
}

func TestServeCommandBeforePrepare(t *testing.T) {
	t.Parallel()

	t.Run("should refuse ticks and signals until prepared", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		ctx := context.Background()

		// when
		_, tickErr := f.command.Tick(ctx)
		triggerErr := f.command.Trigger(ctx, "Go modules")
		_, explainErr := f.command.Explain(npmCandidate("react", dublin(3, 9, 0)))
		runErr := f.command.Run(ctx)

		// then
		require.ErrorIs(t, tickErr, commands.ErrNotPrepared)
		require.ErrorIs(t, triggerErr, commands.ErrNotPrepared)
		require.ErrorIs(t, explainErr, commands.ErrNotPrepared)
		require.ErrorIs(t, runErr, commands.ErrNotPrepared)
		assert.Nil(t, f.command.Pending())
	})
}

func TestServeCommandTick(t *testing.T) {
	t.Parallel()

	t.Run("should emit candidates submitted through the queue", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.prepare(t)
		f.command.Submit(npmCandidate("react", dublin(3, 9, 0)))

		// when
		result, err := f.command.Tick(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, "JS prod dependencies", result.Emitted[0].Key)
		assert.Len(t, f.executor.Executed, 1)
		assert.Equal(t, 1, f.state.SaveCalls)
		assert.Equal(t, 1, f.source.AcknowledgeCalls)
		assert.Len(t, f.metrics.Ticks, 1)
	})

	t.Run("should not redeliver queued candidates on the next tick", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.prepare(t)
		f.command.Submit(npmCandidate("react", dublin(3, 9, 0)))
		_, err := f.command.Tick(context.Background())
		require.NoError(t, err)

		// when
		result, err := f.command.Tick(context.Background())

		// then
		require.NoError(t, err)
		assert.Empty(t, result.Emitted)
		assert.Len(t, f.executor.Executed, 1)
	})

	t.Run("should merge source and queue candidates into one group", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.source.Candidates = []entities.UpdateCandidate{npmCandidate("react", dublin(3, 9, 0))}
		f.prepare(t)
		f.command.Submit(npmCandidate("lodash", dublin(3, 9, 5)))

		// when
		result, err := f.command.Tick(context.Background())

		// then
		require.NoError(t, err)
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, []string{"react", "lodash"}, result.Emitted[0].PackageNames())
	})
}

func TestServeCommandSignals(t *testing.T) {
	t.Parallel()

	t.Run("should flush a triggered group outside its rule schedule", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.prepare(t)
		ctx := context.Background()
		f.command.Submit(goCandidate("github.com/spf13/cobra", dublin(3, 9, 0)))
		first, err := f.command.Tick(ctx)
		require.NoError(t, err)
		require.Len(t, first.Deferred, 1)

		// when
		require.NoError(t, f.command.Trigger(ctx, "Go modules"))
		result, err := f.command.Tick(ctx)

		// then
		require.NoError(t, err)
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, "manual trigger", result.Emitted[0].Reason)
		assert.Empty(t, f.command.Pending())
	})

	t.Run("should free the slot of a completed change-set once", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.prepare(t)
		ctx := context.Background()
		f.command.Submit(npmCandidate("react", dublin(3, 9, 0)))
		_, err := f.command.Tick(ctx)
		require.NoError(t, err)

		// when
		first, firstErr := f.command.Complete(ctx, "JS prod dependencies")
		second, secondErr := f.command.Complete(ctx, "JS prod dependencies")

		// then
		require.NoError(t, firstErr)
		require.NoError(t, secondErr)
		assert.True(t, first)
		assert.False(t, second)
		assert.Empty(t, f.state.State.Limiter.Open)
	})

	t.Run("should veto a closed package and its rediscovery", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.prepare(t)
		ctx := context.Background()
		cobra := goCandidate("github.com/spf13/cobra", dublin(3, 9, 0))
		f.command.Submit(cobra)
		_, err := f.command.Tick(ctx)
		require.NoError(t, err)

		// when
		decision, closed, closeErr := f.command.Close(ctx, "github.com/spf13/cobra")
		f.command.Submit(cobra)
		result, tickErr := f.command.Tick(ctx)

		// then
		require.NoError(t, closeErr)
		require.NoError(t, tickErr)
		assert.True(t, closed)
		assert.Equal(t, entities.SuppressClosed, decision.Suppression)
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, entities.SuppressClosed, result.Suppressed[0].Suppression)
		assert.Empty(t, f.command.Pending())
	})

	t.Run("should report nothing to close for an unknown package", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.prepare(t)

		// when
		_, closed, err := f.command.Close(context.Background(), "left-pad")

		// then
		require.NoError(t, err)
		assert.False(t, closed)
	})
}

func TestServeCommandExplain(t *testing.T) {
	t.Parallel()

	t.Run("should explain against the served policy without queuing the candidate", func(t *testing.T) {
		t.Parallel()

		// given
		f := newServeFixture()
		f.prepare(t)

		// when
		decision, err := f.command.Explain(goCandidate("github.com/spf13/cobra", dublin(3, 9, 0)))

		// then
		require.NoError(t, err)
		assert.False(t, decision.Ready)
		assert.Equal(t, "Go modules", decision.GroupName)
		assert.Equal(t, dublin(5, 8, 0), decision.NextActive)
		assert.Empty(t, f.command.Pending())
	})
}
