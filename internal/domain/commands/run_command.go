package commands

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/autopolicy/internal/infrastructure/repositories"
)

// Run is the interface for the run command (one evaluation pass).
type Run interface {
	Execute(ctx context.Context, settings *entities.Settings, opts RunOptions) (entities.TickResult, error)
}

// RunOptions holds runtime options for a single run.
type RunOptions struct {
	DryRun  bool
	Verbose bool
}

// RunCommand performs one evaluation pass, the mode intended for a cronjob:
// load policy and state -> discover -> tick -> execute -> save.
type RunCommand struct {
	policies          repositories.PolicyRepository
	states            repositories.StateRepositoryFactory
	discoveryRegistry *infraRepos.DiscoveryRegistry
	executionRegistry *infraRepos.ExecutionRegistry
	metrics           repositories.MetricsRepository
	clock             entities.Clock
}

// NewRunCommand creates a new RunCommand.
func NewRunCommand(
	policies repositories.PolicyRepository,
	states repositories.StateRepositoryFactory,
	discoveryRegistry *infraRepos.DiscoveryRegistry,
	executionRegistry *infraRepos.ExecutionRegistry,
	metrics repositories.MetricsRepository,
	clock entities.Clock,
) *RunCommand {
	return &RunCommand{
		policies:          policies,
		states:            states,
		discoveryRegistry: discoveryRegistry,
		executionRegistry: executionRegistry,
		metrics:           metrics,
		clock:             clock,
	}
}

// Execute runs one pass. A dry run logs the decisions instead of executing them
// and leaves both the state and the inbox untouched.
func (it *RunCommand) Execute(
	ctx context.Context,
	settings *entities.Settings,
	opts RunOptions,
) (entities.TickResult, error) {
	if opts.Verbose {
		logger.SetLevel(logger.DebugLevel)
	}

	policy, err := it.policies.Load(settings.PolicyPath)
	if err != nil {
		return entities.TickResult{}, err
	}

	discovery, err := it.discoveryRegistry.Get(settings.Discovery, settings)
	if err != nil {
		return entities.TickResult{}, err
	}
	executorName := settings.Executor
	if opts.DryRun {
		executorName = entities.ExecutorLog
	}
	executor, err := it.executionRegistry.Get(executorName, settings)
	if err != nil {
		return entities.TickResult{}, err
	}

	sess, err := openSession(ctx, it.states, settings.StatePath)
	if err != nil {
		return entities.TickResult{}, err
	}

	now := it.clock.Now()
	result := runCycle(ctx, sess.evaluator, policy, now, discovery, executor)
	it.metrics.ObserveTick(result)

	logger.Infof(
		"Run complete: %d emitted, %d suppressed, %d deferred, %d pending, %d failed",
		len(result.Emitted), len(result.Suppressed), len(result.Deferred), result.Pending, result.Failed,
	)

	if opts.DryRun {
		logger.Info("[DRY RUN] State and inbox left untouched")
		return result, nil
	}

	if err = sess.save(ctx, now); err != nil {
		return result, err
	}
	if err = discovery.Acknowledge(ctx); err != nil {
		return result, fmt.Errorf("failed to acknowledge %s: %w", discovery.Name(), err)
	}
	return result, nil
}
