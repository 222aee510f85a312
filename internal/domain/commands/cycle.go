package commands

import (
	"context"
	"fmt"
	"strings"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/evaluator"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// session is an evaluator restored from a state repository.
type session struct {
	store     repositories.StateRepository
	evaluator *evaluator.Evaluator
}

func openSession(ctx context.Context, states repositories.StateRepositoryFactory, path string) (*session, error) {
	store := states(path)
	state, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	ev := evaluator.New()
	ev.Restore(state)
	logger.Debugf("Restored %d pending candidates from %q", len(state.Pending), path)
	return &session{store: store, evaluator: ev}, nil
}

func (s *session) save(ctx context.Context, now time.Time) error {
	if err := s.store.Save(ctx, s.evaluator.Snapshot(now)); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// runCycle discovers new candidates, runs one evaluation pass and hands every
// emitted change-set to the executor. Change-sets the executor rejects go back to
// the pending set for the next pass.
func runCycle(
	ctx context.Context,
	ev *evaluator.Evaluator,
	policy *entities.Policy,
	now time.Time,
	discovery repositories.DiscoveryRepository,
	executor repositories.ExecutionRepository,
) entities.TickResult {
	incoming, err := discovery.Discover(ctx)
	if err != nil {
		// whatever the healthy sources returned is still evaluated
		logger.Errorf("Discovery from %q failed: %v", discovery.Name(), err)
	}
	if len(incoming) > 0 {
		logger.Infof("Discovered %d update candidates from %s", len(incoming), discovery.Name())
	}

	result := ev.Tick(policy, now, incoming)

	for _, decision := range result.Suppressed {
		logger.WithFields(logger.Fields{
			"package": decision.Candidate().PackageName,
			"version": decision.Candidate().CandidateVersion,
			"reason":  decision.Suppression,
		}).Infof("Suppressed %s: %s", decision.Candidate(), decision.Reason)
	}
	for _, deferral := range result.Deferred {
		logger.WithFields(logger.Fields{
			"key":    deferral.Key,
			"reason": deferral.Reason,
		}).Debugf("Deferred %s until %s", strings.Join(deferral.PackageNames, ", "), describeNext(deferral))
	}

	for _, decision := range result.Emitted {
		if execErr := executor.Execute(ctx, decision); execErr != nil {
			logger.Errorf("Failed to hand over change-set %q to %s: %v", decision.Key, executor.Name(), execErr)
			ev.Requeue(decision)
			result.Failed++
			continue
		}
		logger.WithFields(logger.Fields{
			"key":    decision.Key,
			"action": decision.Action,
		}).Infof("Emitted %s for %s", decision.Action, strings.Join(decision.PackageNames(), ", "))
	}

	result.Pending = len(ev.Pending())
	return result
}

func describeNext(deferral entities.Deferral) string {
	switch {
	case deferral.NeverOverlaps:
		return "a manual trigger (schedules never overlap)"
	case deferral.NextActive.IsZero():
		return "the next tick"
	default:
		return deferral.NextActive.Format(time.RFC3339)
	}
}
