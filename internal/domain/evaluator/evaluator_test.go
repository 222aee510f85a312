//go:build unit

package evaluator_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/evaluator"
	builders "github.com/rios0rios0/autopolicy/test/domain/entitybuilders"
)

// March 2026 in Dublin is UTC+0 until the last Sunday. The 3rd is a Tuesday and
// the 5th the first Thursday of the month.
func dublin(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, builders.Dublin)
}

func npmCandidate(name string, detectedAt time.Time) entities.UpdateCandidate {
	return builders.NewCandidateBuilder().
		WithPackageName(name).
		WithManager(entities.ManagerNPM).
		WithDepType("dependencies").
		WithUpdateType(entities.UpdateMinor).
		WithDetectedAt(detectedAt).
		BuildCandidate()
}

func TestEvaluatorScenarios(t *testing.T) {
	t.Parallel()

	t.Run("should automerge an npm minor inside the Tuesday window as a JS prod group", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		now := dublin(3, 9, 30)
		candidate := npmCandidate("react", dublin(3, 9, 0))

		// when
		result := evaluator.New().Tick(policy, now, []entities.UpdateCandidate{candidate})

		// then
		require.Len(t, result.Emitted, 1)
		decision := result.Emitted[0]
		assert.Equal(t, entities.ActionOpenAndAutomerge, decision.Action)
		assert.Equal(t, "JS prod dependencies", decision.GroupName)
		assert.Equal(t, []string{"react"}, decision.PackageNames())
		assert.Equal(t, []string{"dependencies"}, decision.Labels)
		assert.Equal(t, entities.StateEmitted, decision.State)
		assert.Zero(t, result.Pending)
	})

	t.Run("should open a reviewed pull request for a Go major on the monthly upgrade day", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		candidate := builders.NewCandidateBuilder().
			WithPackageName("github.com/spf13/cobra").
			WithManager(entities.ManagerGoMod).
			WithUpdateType(entities.UpdateMajor).
			BuildCandidate()

		// when
		decision := evaluator.New().Explain(policy, candidate, dublin(3, 11, 0))

		// then
		assert.Equal(t, entities.ActionOpenPullRequest, decision.Action)
		assert.False(t, decision.Automerge)
		assert.Equal(t, "Monthly Upgrade Day (majors)", decision.GroupName)
		assert.Equal(t, []string{"on the first thursday of the month after 09:00 and before 12:00"}, decision.Schedule)
		assert.Equal(t, []string{"go-modules", "monthly-majors"}, decision.MatchedRules)
		assert.Equal(t, []string{"dependencies", "major"}, decision.Labels)
		assert.False(t, decision.Ready)
		assert.True(t, decision.NextActive.Equal(dublin(5, 9, 0)))
	})

	t.Run("should defer a digest forever when its window never meets the global window", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		candidate := builders.NewCandidateBuilder().
			WithPackageName("node").
			WithManager(entities.ManagerDockerfile).
			WithUpdateType(entities.UpdateDigest).
			WithDetectedAt(dublin(3, 6, 0)).
			BuildCandidate()
		subject := evaluator.New()

		// when
		first := subject.Tick(policy, dublin(3, 6, 30), []entities.UpdateCandidate{candidate})
		second := subject.Tick(policy, dublin(4, 9, 0), nil)

		// then
		for _, result := range []entities.TickResult{first, second} {
			assert.Empty(t, result.Emitted)
			assert.Empty(t, result.Suppressed)
			require.Len(t, result.Deferred, 1)
			assert.Equal(t, entities.DeferWindow, result.Deferred[0].Reason)
			assert.True(t, result.Deferred[0].NeverOverlaps)
			assert.Equal(t, 1, result.Pending)
		}
		pending := subject.Pending()
		require.Len(t, pending, 1)
		assert.True(t, pending[0].NeverOverlapWarned)
		assert.Equal(t, entities.StateWindowPending, pending[0].State)
	})
}

func TestEvaluatorTick(t *testing.T) {
	t.Parallel()

	t.Run("should batch every grouped candidate into one decision", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		subject.Tick(policy, dublin(2, 9, 0), []entities.UpdateCandidate{
			npmCandidate("react", dublin(2, 8, 0)),
			npmCandidate("vue", dublin(2, 8, 30)),
		})

		// when
		result := subject.Tick(policy, dublin(3, 9, 0), nil)

		// then
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, []string{"react", "vue"}, result.Emitted[0].PackageNames())
		assert.Equal(t, "JS prod dependencies", result.Emitted[0].Key)
	})

	t.Run("should combine group settings conservatively", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().
			WithRule(entities.Rule{Name: "group", Predicate: matchAll(), Settings: entities.RuleSettings{
				GroupName:     entities.Ptr("all"),
				Automerge:     entities.Ptr(true),
				AutomergeMode: entities.Ptr(entities.AutomergeBranch),
			}}).
			WithRule(entities.Rule{
				Name:      "vue is reviewed",
				Predicate: entities.MatchCriteria{PackageNames: []string{"vue"}},
				Settings:  entities.RuleSettings{Automerge: entities.Ptr(false), Priority: entities.Ptr(5)},
			}).
			BuildPolicy()

		// when
		result := evaluator.New().Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{
			npmCandidate("react", dublin(2, 8, 0)),
			npmCandidate("vue", dublin(2, 8, 30)),
		})

		// then
		require.Len(t, result.Emitted, 1)
		decision := result.Emitted[0]
		assert.False(t, decision.Automerge)
		assert.Equal(t, entities.ActionOpenPullRequest, decision.Action)
		assert.Equal(t, 5, decision.Priority)
		assert.Equal(t, []string{"group", "vue is reviewed"}, decision.MatchedRules)
	})

	t.Run("should defer exactly the latest change-set over the concurrent limit", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().WithLimits(2, 0).BuildPolicy()
		incoming := []entities.UpdateCandidate{
			npmCandidate("c", dublin(2, 10, 0)),
			npmCandidate("a", dublin(2, 8, 0)),
			npmCandidate("b", dublin(2, 9, 0)),
		}
		subject := evaluator.New()

		// when
		result := subject.Tick(policy, dublin(3, 9, 0), incoming)

		// then
		require.Len(t, result.Emitted, 2)
		assert.Equal(t, "a", result.Emitted[0].Key)
		assert.Equal(t, "b", result.Emitted[1].Key)
		require.Len(t, result.Deferred, 1)
		assert.Equal(t, "c", result.Deferred[0].Key)
		assert.Equal(t, entities.DeferRateLimit, result.Deferred[0].Reason)
		assert.Equal(t, entities.StateReady, subject.Pending()[0].State)
	})

	t.Run("should defer exactly the latest change-set over the hourly limit", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().WithLimits(0, 2).BuildPolicy()
		subject := evaluator.New()
		incoming := []entities.UpdateCandidate{
			npmCandidate("c", dublin(2, 10, 0)),
			npmCandidate("a", dublin(2, 8, 0)),
			npmCandidate("b", dublin(2, 9, 0)),
		}

		// when
		result := subject.Tick(policy, dublin(3, 9, 0), incoming)
		nextHour := subject.Tick(policy, dublin(3, 10, 0), nil)

		// then
		require.Len(t, result.Emitted, 2)
		assert.Equal(t, "a", result.Emitted[0].Key)
		assert.Equal(t, "b", result.Emitted[1].Key)
		require.Len(t, result.Deferred, 1)
		assert.Equal(t, "c", result.Deferred[0].Key)
		assert.Equal(t, entities.DeferRateLimit, result.Deferred[0].Reason)
		assert.True(t, result.Deferred[0].NextActive.Equal(dublin(3, 10, 0)))
		require.Len(t, nextHour.Emitted, 1)
		assert.Equal(t, "c", nextHour.Emitted[0].Key)
	})

	t.Run("should emit the deferred change-set once a slot completes", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().WithLimits(1, 0).BuildPolicy()
		subject := evaluator.New()
		subject.Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{
			npmCandidate("a", dublin(2, 8, 0)),
			npmCandidate("b", dublin(2, 9, 0)),
		})

		// when
		completed := subject.Complete("a")
		result := subject.Tick(policy, dublin(3, 9, 5), nil)

		// then
		assert.True(t, completed)
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, "b", result.Emitted[0].Key)
	})

	t.Run("should emit higher priority change-sets first", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().
			WithLimits(1, 0).
			WithRule(entities.Rule{
				Name:      "urgent",
				Predicate: entities.MatchCriteria{PackageNames: []string{"late"}},
				Settings:  entities.RuleSettings{Priority: entities.Ptr(10)},
			}).
			BuildPolicy()

		// when
		result := evaluator.New().Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{
			npmCandidate("early", dublin(2, 8, 0)),
			npmCandidate("late", dublin(2, 9, 0)),
		})

		// then
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, "late", result.Emitted[0].Key)
	})

	t.Run("should supersede a pending candidate with a newer one for the same package", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		older := builders.NewCandidateBuilder().
			WithPackageName("react").WithVersions("18.0.0", "18.1.0").WithDetectedAt(dublin(2, 8, 0)).
			BuildCandidate()
		newer := builders.NewCandidateBuilder().
			WithPackageName("react").WithVersions("18.0.0", "18.2.0").WithDetectedAt(dublin(2, 9, 0)).
			BuildCandidate()
		subject.Tick(policy, dublin(2, 8, 0), []entities.UpdateCandidate{older})

		// when
		result := subject.Tick(policy, dublin(2, 9, 0), []entities.UpdateCandidate{newer})

		// then
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, entities.SuppressSuperseded, result.Suppressed[0].Suppression)
		assert.Equal(t, "18.1.0", result.Suppressed[0].Candidate().CandidateVersion)
		pending := subject.Pending()
		require.Len(t, pending, 1)
		assert.Equal(t, "18.2.0", pending[0].Candidate.CandidateVersion)
	})

	t.Run("should keep the original candidate when the same update is rediscovered", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		candidate := npmCandidate("react", dublin(2, 8, 0))
		subject.Tick(policy, dublin(2, 8, 0), []entities.UpdateCandidate{candidate})

		// when
		rediscovered := candidate
		rediscovered.DetectedAt = dublin(2, 9, 0)
		result := subject.Tick(policy, dublin(2, 9, 0), []entities.UpdateCandidate{rediscovered})

		// then
		assert.Empty(t, result.Suppressed)
		assert.True(t, subject.Pending()[0].Candidate.DetectedAt.Equal(dublin(2, 8, 0)))
	})

	t.Run("should flush a triggered group outside its rule window", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		deferred := subject.Tick(policy, dublin(4, 9, 0), []entities.UpdateCandidate{npmCandidate("react", dublin(4, 8, 0))})

		// when
		subject.Trigger("JS prod dependencies")
		result := subject.Tick(policy, dublin(4, 9, 5), nil)

		// then
		require.Len(t, deferred.Deferred, 1)
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, "manual trigger", result.Emitted[0].Reason)
		assert.Empty(t, subject.Snapshot(dublin(4, 9, 5)).Triggers)
	})

	t.Run("should not let a trigger bypass the global window", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		subject.Trigger("JS prod dependencies")

		// when
		result := subject.Tick(policy, dublin(4, 7, 0), []entities.UpdateCandidate{npmCandidate("react", dublin(4, 6, 0))})

		// then
		assert.Empty(t, result.Emitted)
		require.Len(t, result.Deferred, 1)
		assert.True(t, result.Deferred[0].NextActive.Equal(dublin(4, 8, 0)))
		assert.False(t, result.Deferred[0].NeverOverlaps)
	})

	t.Run("should wait for the minimum release age", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().
			WithRule(entities.Rule{Name: "cooldown", Predicate: matchAll(), Settings: entities.RuleSettings{
				ExtraDelay: entities.Ptr(72 * time.Hour),
			}}).
			BuildPolicy()
		candidate := builders.NewCandidateBuilder().
			WithReleasedAt(dublin(2, 9, 0)).
			WithDetectedAt(dublin(2, 10, 0)).
			BuildCandidate()
		subject := evaluator.New()

		// when
		early := subject.Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{candidate})
		late := subject.Tick(policy, dublin(5, 9, 0), nil)

		// then
		require.Len(t, early.Deferred, 1)
		assert.Equal(t, entities.DeferReleaseAge, early.Deferred[0].Reason)
		assert.True(t, early.Deferred[0].NextActive.Equal(dublin(5, 9, 0)))
		require.Len(t, late.Emitted, 1)
	})

	t.Run("should suppress candidates disabled by a rule", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().
			WithRule(entities.Rule{Name: "off", Predicate: matchAll(), Settings: entities.RuleSettings{
				Enabled: entities.Ptr(false),
			}}).
			BuildPolicy()

		// when
		result := evaluator.New().Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{npmCandidate("react", dublin(3, 8, 0))})

		// then
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, entities.SuppressDisabled, result.Suppressed[0].Suppression)
		assert.Equal(t, []string{"off"}, result.Suppressed[0].MatchedRules)
		assert.Zero(t, result.Pending)
	})

	t.Run("should suppress candidates whose predicate fails", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().
			WithRule(entities.Rule{Name: "broken", Predicate: entities.PredicateFunc(
				func(entities.UpdateCandidate) (bool, error) { return false, errors.New("no such field") },
			)}).
			BuildPolicy()

		// when
		result := evaluator.New().Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{npmCandidate("react", dublin(3, 8, 0))})

		// then
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, entities.SuppressPredicateError, result.Suppressed[0].Suppression)
		assert.Contains(t, result.Suppressed[0].Reason, "no such field")
	})

	t.Run("should suppress invalid candidates", func(t *testing.T) {
		t.Parallel()

		// given
		invalid := builders.NewCandidateBuilder().WithPackageName("").BuildCandidate()

		// when
		result := evaluator.New().Tick(builders.DublinPolicy(), dublin(3, 9, 0), []entities.UpdateCandidate{invalid})

		// then
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, entities.SuppressInvalidCandidate, result.Suppressed[0].Suppression)
	})

	t.Run("should suppress a rejected record with its reason and keep its neighbours", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().BuildPolicy()
		rejected := npmCandidate("react", dublin(3, 8, 0))
		rejected.Rejection = "line 6: field typo not found"

		// when
		result := evaluator.New().Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{
			npmCandidate("lodash", dublin(3, 8, 0)),
			rejected,
		})

		// then
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, "lodash", result.Emitted[0].Key)
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, entities.SuppressInvalidCandidate, result.Suppressed[0].Suppression)
		assert.Contains(t, result.Suppressed[0].Reason, "field typo not found")
	})

	t.Run("should suppress a closed candidate and its rediscovery", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		candidate := npmCandidate("react", dublin(4, 8, 0))
		subject.Tick(policy, dublin(4, 9, 0), []entities.UpdateCandidate{candidate})

		// when
		closed, ok := subject.Close("react", dublin(4, 9, 1))
		result := subject.Tick(policy, dublin(4, 9, 2), []entities.UpdateCandidate{candidate})

		// then
		assert.True(t, ok)
		assert.Equal(t, entities.SuppressClosed, closed.Suppression)
		assert.Equal(t, entities.StateSuppressed, closed.State)
		require.Len(t, result.Suppressed, 1)
		assert.Equal(t, entities.SuppressClosed, result.Suppressed[0].Suppression)
		assert.Zero(t, result.Pending)
	})

	t.Run("should requeue a change-set whose execution failed", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().WithLimits(1, 1).BuildPolicy()
		subject := evaluator.New()
		emitted := subject.Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{npmCandidate("react", dublin(3, 8, 0))})
		require.Len(t, emitted.Emitted, 1)

		// when
		subject.Requeue(emitted.Emitted[0])
		retried := subject.Tick(policy, dublin(3, 9, 5), nil)

		// then
		require.Len(t, retried.Emitted, 1)
		assert.Equal(t, "react", retried.Emitted[0].Key)
	})

	t.Run("should keep the open slot when a re-admitted change-set fails", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.NewPolicyBuilder().WithLimits(1, 0).BuildPolicy()
		subject := evaluator.New()
		subject.Tick(policy, dublin(3, 9, 0), []entities.UpdateCandidate{npmCandidate("react", dublin(3, 8, 0))})
		update := builders.NewCandidateBuilder().
			WithPackageName("react").
			WithVersions("1.0.0", "1.2.0").
			WithDetectedAt(dublin(3, 9, 5)).
			BuildCandidate()
		readmitted := subject.Tick(policy, dublin(3, 9, 10), []entities.UpdateCandidate{update})
		require.Len(t, readmitted.Emitted, 1)

		// when
		subject.Requeue(readmitted.Emitted[0])
		result := subject.Tick(policy, dublin(3, 9, 15), []entities.UpdateCandidate{npmCandidate("lodash", dublin(3, 9, 12))})

		// then
		assert.False(t, readmitted.Emitted[0].Reserved)
		assert.Equal(t, []string{"react"}, subject.Snapshot(dublin(3, 9, 15)).Limiter.Open)
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, "react", result.Emitted[0].Key)
		require.Len(t, result.Deferred, 1)
		assert.Equal(t, "lodash", result.Deferred[0].Key)
		assert.Equal(t, entities.DeferRateLimit, result.Deferred[0].Reason)
	})

	t.Run("should flush an emitted group so only later members form the next change-set", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		first := subject.Tick(policy, dublin(3, 9, 30), []entities.UpdateCandidate{npmCandidate("react", dublin(3, 9, 0))})
		require.Len(t, first.Emitted, 1)

		// when
		second := subject.Tick(policy, dublin(3, 9, 45), []entities.UpdateCandidate{npmCandidate("vue", dublin(3, 9, 40))})

		// then
		require.Len(t, second.Emitted, 1)
		assert.Equal(t, "JS prod dependencies", second.Emitted[0].GroupName)
		assert.Equal(t, []string{"vue"}, second.Emitted[0].PackageNames())
	})

	t.Run("should carry pending work across a snapshot", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		subject.Tick(policy, dublin(4, 9, 0), []entities.UpdateCandidate{npmCandidate("react", dublin(4, 8, 0))})
		subject.Trigger("JS prod dependencies")

		// when
		restored := evaluator.New()
		restored.Restore(subject.Snapshot(dublin(4, 9, 0)))
		result := restored.Tick(policy, dublin(4, 9, 5), nil)

		// then
		require.Len(t, result.Emitted, 1)
		assert.Equal(t, []string{"react"}, result.Emitted[0].PackageNames())
	})
}

func TestEvaluatorExplain(t *testing.T) {
	t.Parallel()

	t.Run("should give the same decision on repeated calls", func(t *testing.T) {
		t.Parallel()

		// given
		policy := builders.DublinPolicy()
		subject := evaluator.New()
		candidate := builders.NewCandidateBuilder().WithDetectedAt(time.Time{}).BuildCandidate()
		now := dublin(3, 9, 0)

		// when
		first := subject.Explain(policy, candidate, now)
		second := subject.Explain(policy, candidate, now)

		// then
		assert.Equal(t, first, second)
		assert.Empty(t, subject.Pending())
	})

	t.Run("should flag schedules that never meet the global window", func(t *testing.T) {
		t.Parallel()

		// given
		candidate := builders.NewCandidateBuilder().
			WithManager(entities.ManagerDockerCompose).
			WithUpdateType(entities.UpdateDigest).
			BuildCandidate()

		// when
		decision := evaluator.New().Explain(builders.DublinPolicy(), candidate, dublin(3, 6, 30))

		// then
		assert.Equal(t, entities.ActionMergeImmediately, decision.Action)
		assert.False(t, decision.Ready)
		assert.Equal(t, entities.StateWindowPending, decision.State)
		assert.True(t, decision.NeverOverlaps)
		assert.True(t, decision.NextActive.IsZero())
	})
}
