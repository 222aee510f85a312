package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/autopolicy/internal/infrastructure/repositories"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/discovery"
)

// ErrNotPrepared is returned when the serve command is used before Prepare.
var ErrNotPrepared = errors.New("serve command is not prepared")

// Serve is the interface for the long-running evaluator. Ticks and signals are
// serialized: each one holds the evaluator for its whole duration.
type Serve interface {
	Prepare(ctx context.Context, settings *entities.Settings) error
	Run(ctx context.Context) error
	Tick(ctx context.Context) (entities.TickResult, error)
	Submit(candidates ...entities.UpdateCandidate)
	Trigger(ctx context.Context, key string) error
	Complete(ctx context.Context, key string) (bool, error)
	Close(ctx context.Context, packageName string) (entities.Decision, bool, error)
	Explain(candidate entities.UpdateCandidate) (entities.Decision, error)
	Pending() []entities.TrackedCandidate
}

// ServeCommand keeps an evaluator in memory and ticks it on a fixed interval.
// Candidates come from the configured discovery source plus an in-process queue
// fed through Submit; the state is saved after every tick and every signal.
type ServeCommand struct {
	mu sync.Mutex

	policies          repositories.PolicyRepository
	states            repositories.StateRepositoryFactory
	discoveryRegistry *infraRepos.DiscoveryRegistry
	executionRegistry *infraRepos.ExecutionRegistry
	queue             repositories.CandidateQueue
	metrics           repositories.MetricsRepository
	clock             entities.Clock

	interval  time.Duration
	policy    *entities.Policy
	session   *session
	discovery repositories.DiscoveryRepository
	executor  repositories.ExecutionRepository
}

// NewServeCommand creates a new ServeCommand.
func NewServeCommand(
	policies repositories.PolicyRepository,
	states repositories.StateRepositoryFactory,
	discoveryRegistry *infraRepos.DiscoveryRegistry,
	executionRegistry *infraRepos.ExecutionRegistry,
	queue repositories.CandidateQueue,
	metrics repositories.MetricsRepository,
	clock entities.Clock,
) *ServeCommand {
	return &ServeCommand{
		policies:          policies,
		states:            states,
		discoveryRegistry: discoveryRegistry,
		executionRegistry: executionRegistry,
		queue:             queue,
		metrics:           metrics,
		clock:             clock,
	}
}

// Prepare loads the policy and the saved state and resolves the collaborators.
func (it *ServeCommand) Prepare(ctx context.Context, settings *entities.Settings) error {
	policy, err := it.policies.Load(settings.PolicyPath)
	if err != nil {
		return err
	}
	source, err := it.discoveryRegistry.Get(settings.Discovery, settings)
	if err != nil {
		return err
	}
	executor, err := it.executionRegistry.Get(settings.Executor, settings)
	if err != nil {
		return err
	}
	sess, err := openSession(ctx, it.states, settings.StatePath)
	if err != nil {
		return err
	}

	it.mu.Lock()
	defer it.mu.Unlock()
	it.interval = settings.TickInterval
	it.policy = policy
	it.session = sess
	it.discovery = discovery.NewCompositeDiscoveryRepository(source, it.queue)
	it.executor = executor
	logger.Infof("Serving policy %q (%d rules), ticking every %s", policy.Name, len(policy.Rules), it.interval)
	return nil
}

// Run ticks immediately and then on every interval until ctx is cancelled. A
// failing tick is logged and retried on the next interval.
func (it *ServeCommand) Run(ctx context.Context) error {
	it.mu.Lock()
	interval := it.interval
	it.mu.Unlock()
	if interval <= 0 {
		return ErrNotPrepared
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		if _, err := it.Tick(ctx); err != nil {
			logger.Errorf("Tick failed: %v", err)
		}
		select {
		case <-ctx.Done():
			logger.Info("Evaluator stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// Tick runs one evaluation pass now.
func (it *ServeCommand) Tick(ctx context.Context) (entities.TickResult, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.session == nil {
		return entities.TickResult{}, ErrNotPrepared
	}

	now := it.clock.Now()
	result := runCycle(ctx, it.session.evaluator, it.policy, now, it.discovery, it.executor)
	it.metrics.ObserveTick(result)

	if err := it.session.save(ctx, now); err != nil {
		return result, err
	}
	if err := it.discovery.Acknowledge(ctx); err != nil {
		return result, fmt.Errorf("failed to acknowledge %s: %w", it.discovery.Name(), err)
	}
	return result, nil
}

// Submit queues candidates for the next tick.
func (it *ServeCommand) Submit(candidates ...entities.UpdateCandidate) {
	it.queue.Enqueue(candidates...)
}

// Trigger flushes the group or package named key on the next tick, outside its
// rule schedule but still inside the global one.
func (it *ServeCommand) Trigger(ctx context.Context, key string) error {
	return it.signal(ctx, func(sess *session, _ time.Time) {
		sess.evaluator.Trigger(key)
		logger.Infof("Manual trigger recorded for %q", key)
	})
}

// Complete frees the concurrency slot of the change-set key.
func (it *ServeCommand) Complete(ctx context.Context, key string) (bool, error) {
	var completed bool
	err := it.signal(ctx, func(sess *session, _ time.Time) {
		completed = sess.evaluator.Complete(key)
	})
	return completed, err
}

// Close vetoes the pending candidate of packageName.
func (it *ServeCommand) Close(ctx context.Context, packageName string) (entities.Decision, bool, error) {
	var (
		decision entities.Decision
		closed   bool
	)
	err := it.signal(ctx, func(sess *session, now time.Time) {
		decision, closed = sess.evaluator.Close(packageName, now)
	})
	return decision, closed, err
}

// Explain evaluates candidate against the served policy without changing state.
func (it *ServeCommand) Explain(candidate entities.UpdateCandidate) (entities.Decision, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.session == nil {
		return entities.Decision{}, ErrNotPrepared
	}
	return it.session.evaluator.Explain(it.policy, candidate, it.clock.Now()), nil
}

// Pending lists the candidates waiting for a decision.
func (it *ServeCommand) Pending() []entities.TrackedCandidate {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.session == nil {
		return nil
	}
	return it.session.evaluator.Pending()
}

func (it *ServeCommand) signal(ctx context.Context, apply func(sess *session, now time.Time)) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	if it.session == nil {
		return ErrNotPrepared
	}
	now := it.clock.Now()
	apply(it.session, now)
	return it.session.save(ctx, now)
}
