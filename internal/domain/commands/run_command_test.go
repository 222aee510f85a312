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

type runFixture struct {
	source   *doubles.SpyDiscoveryRepository
	executor *doubles.SpyExecutionRepository
	dryRun   *doubles.SpyExecutionRepository
	state    *doubles.StubStateRepository
	policies *doubles.StubPolicyRepository
	metrics  *doubles.SpyMetricsRepository
	command  *commands.RunCommand
}

func newRunFixture(candidates ...entities.UpdateCandidate) *runFixture {
	f := &runFixture{
		source:   &doubles.SpyDiscoveryRepository{Candidates: candidates},
		executor: &doubles.SpyExecutionRepository{},
		dryRun:   &doubles.SpyExecutionRepository{ExecutorName: entities.ExecutorLog},
		state:    &doubles.StubStateRepository{},
		policies: &doubles.StubPolicyRepository{Policy: builders.DublinPolicy()},
		metrics:  &doubles.SpyMetricsRepository{},
	}
	f.command = commands.NewRunCommand(
		f.policies,
		f.state.Factory(),
		discoveryRegistry(f.source),
		executionRegistry(f.executor, f.dryRun),
		f.metrics,
		entitydoubles.NewStubClock(dublin(3, 9, 30)),
	)
	return f
}

func TestRunCommandExecute(t *testing.T) {
	t.Parallel()

	t.Run("should hand emitted change-sets to the executor and persist the state", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture(npmCandidate("react", dublin(3, 9, 0)))

		// when
		result, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, result.Emitted, 1)
		require.Len(t, f.executor.Executed, 1)
		assert.Equal(t, "JS prod dependencies", f.executor.Executed[0].Key)
		assert.Equal(t, 1, f.state.SaveCalls)
		assert.Equal(t, []string{"state.cbor"}, f.state.Paths)
		assert.Equal(t, 1, f.source.AcknowledgeCalls)
		assert.Len(t, f.metrics.Ticks, 1)
		assert.Equal(t, []string{"JS prod dependencies"}, f.state.State.Limiter.Open)
	})

	t.Run("should keep deferred candidates in the saved state", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture(goCandidate("github.com/spf13/cobra", dublin(3, 9, 0)))

		// when
		result, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Empty(t, f.executor.Executed)
		require.Len(t, result.Deferred, 1)
		require.Len(t, f.state.State.Pending, 1)
		assert.Equal(t, "github.com/spf13/cobra", f.state.State.Pending[0].Candidate.PackageName)
	})

	t.Run("should emit a candidate restored from a previous run once its window opens", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture()
		previous := evaluator.New()
		previous.Tick(builders.DublinPolicy(), dublin(2, 12, 0), []entities.UpdateCandidate{
			npmCandidate("react", dublin(2, 11, 0)),
		})
		f.state.State = previous.Snapshot(dublin(2, 12, 0))

		// when
		result, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{})

		// then
		require.NoError(t, err)
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, []string{"react"}, result.Emitted[0].PackageNames())
		assert.Empty(t, f.state.State.Pending)
	})

	t.Run("should requeue a change-set the executor rejects", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture(npmCandidate("react", dublin(3, 9, 0)))
		f.executor.ExecuteErr = errors.New("outbox unavailable")

		// when
		result, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Equal(t, 1, result.Failed)
		assert.Equal(t, 1, result.Pending)
		require.Len(t, f.state.State.Pending, 1)
		assert.Empty(t, f.state.State.Limiter.Open)
	})

	t.Run("should log decisions and leave state and inbox untouched on a dry run", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture(npmCandidate("react", dublin(3, 9, 0)))

		// when
		result, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{DryRun: true})

		// then
		require.NoError(t, err)
		assert.Len(t, result.Emitted, 1)
		assert.Len(t, f.dryRun.Executed, 1)
		assert.Empty(t, f.executor.Executed)
		assert.Zero(t, f.state.SaveCalls)
		assert.Zero(t, f.source.AcknowledgeCalls)
	})

	t.Run("should still evaluate pending candidates when discovery fails", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture()
		f.source.DiscoverErr = errors.New("inbox unreadable")

		// when
		_, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{})

		// then
		require.NoError(t, err)
		assert.Len(t, f.metrics.Ticks, 1)
		assert.Equal(t, 1, f.state.SaveCalls)
	})

	t.Run("should fail before discovery when the policy cannot be loaded", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture(npmCandidate("react", dublin(3, 9, 0)))
		f.policies.LoadErr = entities.ErrInvalidPolicy

		// when
		_, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{})

		// then
		require.ErrorIs(t, err, entities.ErrInvalidPolicy)
		assert.Zero(t, f.source.DiscoverCalls)
		assert.Zero(t, f.state.SaveCalls)
	})

	t.Run("should fail for an unknown discovery source", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture()
		settings := testSettings()
		settings.Discovery = "carrier-pigeon"

		// when
		_, err := f.command.Execute(context.Background(), settings, commands.RunOptions{})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown discovery type")
	})

	t.Run("should report a failed save without acknowledging the inbox", func(t *testing.T) {
		t.Parallel()

		// given
		f := newRunFixture(npmCandidate("react", dublin(3, 9, 0)))
		f.state.SaveErr = errors.New("disk full")

		// when
		_, err := f.command.Execute(context.Background(), testSettings(), commands.RunOptions{})

		// then
		require.Error(t, err)
		assert.Contains(t, err.Error(), "disk full")
		assert.Zero(t, f.source.AcknowledgeCalls)
	})
}

func TestDescribeNext(t *testing.T) {
	t.Parallel()

	t.Run("should point at a manual trigger when schedules never overlap", func(t *testing.T) {
		t.Parallel()

		// given
		deferral := entities.Deferral{NeverOverlaps: true}

		// when
		described := commands.DescribeNext(deferral)

		// then
		assert.Contains(t, described, "manual trigger")
	})

	t.Run("should render the next active instant", func(t *testing.T) {
		t.Parallel()

		// given
		deferral := entities.Deferral{NextActive: dublin(5, 9, 0)}

		// when
		described := commands.DescribeNext(deferral)

		// then
		assert.Equal(t, "2026-03-05T09:00:00Z", described)
	})
}
