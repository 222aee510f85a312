package evaluator

import (
	"fmt"
	"slices"
	"sort"
	"time"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// Evaluator holds the candidates awaiting a decision between ticks. It is not safe
// for concurrent use; callers serialize ticks and signals.
type Evaluator struct {
	matcher  *Matcher
	grouping *GroupingEngine
	limiter  *RateLimiter
	pending  map[string]*entities.TrackedCandidate
	triggers map[string]struct{}
	closed   map[string]struct{}
}

// New creates an evaluator with no pending work.
func New() *Evaluator {
	return &Evaluator{
		matcher:  NewMatcher(),
		grouping: NewGroupingEngine(),
		limiter:  NewRateLimiter(),
		pending:  make(map[string]*entities.TrackedCandidate),
		triggers: make(map[string]struct{}),
		closed:   make(map[string]struct{}),
	}
}

// Restore replaces the evaluator state with a persisted snapshot. Group
// membership is rebuilt on the next tick.
func (it *Evaluator) Restore(state entities.EvaluatorState) {
	it.grouping = NewGroupingEngine()
	it.pending = make(map[string]*entities.TrackedCandidate, len(state.Pending))
	for _, tracked := range state.Pending {
		it.pending[tracked.Candidate.PackageName] = &tracked
		if tracked.GroupName != "" {
			it.grouping.Assign(tracked.Candidate.PackageName, tracked.GroupName)
		}
	}
	it.triggers = toSet(state.Triggers)
	it.closed = toSet(state.Closed)
	it.limiter.Restore(state.Limiter)
}

// Snapshot exports the evaluator state for persistence.
func (it *Evaluator) Snapshot(now time.Time) entities.EvaluatorState {
	return entities.EvaluatorState{
		Pending:  it.Pending(),
		Triggers: fromSet(it.triggers),
		Closed:   fromSet(it.closed),
		Limiter:  it.limiter.Snapshot(),
		SavedAt:  now,
	}
}

// Pending returns copies of the tracked candidates in processing order.
func (it *Evaluator) Pending() []entities.TrackedCandidate {
	tracked := make([]entities.TrackedCandidate, 0, len(it.pending))
	for _, candidate := range it.pending {
		tracked = append(tracked, *candidate)
	}
	sort.Slice(tracked, func(i, j int) bool {
		return tracked[i].Candidate.Before(tracked[j].Candidate)
	})
	return tracked
}

// Trigger requests a flush of the group (or single package) named key on the next
// tick, regardless of its rule schedule. The global schedule still applies.
func (it *Evaluator) Trigger(key string) {
	it.triggers[key] = struct{}{}
}

// Complete tells the limiter the change-set identified by key was merged or closed.
func (it *Evaluator) Complete(key string) bool {
	return it.limiter.Complete(key)
}

// Close vetoes the pending candidate of packageName and every later rediscovery
// of the same version. It returns the suppression when something was pending.
func (it *Evaluator) Close(packageName string, now time.Time) (entities.Decision, bool) {
	tracked, ok := it.pending[packageName]
	if !ok {
		return entities.Decision{}, false
	}
	it.closed[closedKey(tracked.Candidate)] = struct{}{}
	it.forget(packageName)
	return suppression(tracked.Candidate, entities.SuppressClosed, now), true
}

// Requeue returns the candidates of a decision whose execution failed to the
// pending set and gives back the limiter capacity it reserved. A change-set that
// was already open keeps its slot.
func (it *Evaluator) Requeue(decision entities.Decision) {
	if decision.Reserved {
		it.limiter.Release(decision.Key, decision.DecidedAt)
	}
	for _, candidate := range decision.Candidates {
		if existing, ok := it.pending[candidate.PackageName]; ok && !candidate.DetectedAt.After(existing.Candidate.DetectedAt) {
			continue
		}
		it.pending[candidate.PackageName] = &entities.TrackedCandidate{
			Candidate:   candidate,
			State:       entities.StateReady,
			GroupName:   decision.GroupName,
			FirstSeenAt: decision.DecidedAt,
		}
	}
}

// Tick runs one evaluation pass: intake of incoming candidates, rule matching of
// everything pending, readiness checks and emission of the admitted change-sets.
func (it *Evaluator) Tick(policy *entities.Policy, now time.Time, incoming []entities.UpdateCandidate) entities.TickResult {
	result := entities.TickResult{Tick: now}

	it.intake(now, incoming, &result)
	settings := it.match(policy, now, &result)

	for _, unit := range it.units(settings) {
		it.evaluateUnit(policy, now, unit, &result)
	}

	result.Pending = len(it.pending)
	return result
}

// Explain evaluates a single candidate against policy at now without touching
// any state. Calling it twice gives the same decision.
func (it *Evaluator) Explain(policy *entities.Policy, candidate entities.UpdateCandidate, now time.Time) entities.Decision {
	normalized, err := candidate.Normalize(now)
	if err != nil {
		decision := suppression(candidate, entities.SuppressInvalidCandidate, now)
		decision.Reason = err.Error()
		return decision
	}

	match, err := it.matcher.Match(policy, normalized)
	if err != nil {
		decision := suppression(normalized, entities.SuppressPredicateError, now)
		decision.Reason = err.Error()
		return decision
	}
	if !match.Effective.Enabled {
		decision := suppression(normalized, entities.SuppressDisabled, now)
		decision.MatchedRules = match.Rules
		return decision
	}

	u := unit{
		key:   unitKey(normalized.PackageName, match.Effective.GroupName),
		group: match.Effective.GroupName,
	}
	u.add(normalized, match)
	decision := u.decision(now)

	aged := normalized.ReleaseAge(now) >= match.Effective.ExtraDelay
	active := entities.IsActiveWithin(policy.Schedule, match.Effective.Schedule, now)
	decision.Ready = aged && active
	if !decision.Ready {
		decision.State = entities.StateWindowPending
	}
	switch {
	case !aged:
		decision.Reason = fmt.Sprintf("waiting for release age %s", match.Effective.ExtraDelay)
		decision.NextActive, decision.NeverOverlaps = nextAfterDelay(policy, match.Effective, normalized, now)
	case !active:
		next, ok := entities.NextActive(policy.Schedule, match.Effective.Schedule, now)
		decision.NextActive, decision.NeverOverlaps = next, !ok
		decision.Reason = "outside schedule"
		if !ok {
			decision.Reason = "global and rule schedules never overlap"
		}
	}
	return decision
}

func (it *Evaluator) intake(now time.Time, incoming []entities.UpdateCandidate, result *entities.TickResult) {
	normalized := make([]entities.UpdateCandidate, 0, len(incoming))
	for _, candidate := range incoming {
		n, err := candidate.Normalize(now)
		if err != nil {
			logger.Warnf("Suppressing candidate %s: %v", candidate, err)
			decision := suppression(candidate, entities.SuppressInvalidCandidate, now)
			decision.Reason = err.Error()
			result.Suppressed = append(result.Suppressed, decision)
			continue
		}
		normalized = append(normalized, n)
	}
	sort.SliceStable(normalized, func(i, j int) bool { return normalized[i].Before(normalized[j]) })

	for _, candidate := range normalized {
		if _, closed := it.closed[closedKey(candidate)]; closed {
			result.Suppressed = append(result.Suppressed, suppression(candidate, entities.SuppressClosed, now))
			continue
		}

		existing, ok := it.pending[candidate.PackageName]
		switch {
		case !ok:
		case existing.Candidate.CandidateVersion == candidate.CandidateVersion &&
			existing.Candidate.Manager == candidate.Manager:
			// rediscovery of the same update keeps its original detection time
			continue
		case candidate.DetectedAt.Before(existing.Candidate.DetectedAt):
			result.Suppressed = append(result.Suppressed, suppression(candidate, entities.SuppressSuperseded, now))
			continue
		default:
			logger.Infof("Candidate %s supersedes %s", candidate, existing.Candidate)
			result.Suppressed = append(result.Suppressed,
				suppression(existing.Candidate, entities.SuppressSuperseded, now))
		}

		it.pending[candidate.PackageName] = &entities.TrackedCandidate{
			Candidate:   candidate,
			State:       entities.StateDiscovered,
			FirstSeenAt: now,
		}
	}
}

// match re-evaluates every pending candidate against the current policy, drops the
// ones vetoed by a rule and refreshes group membership.
func (it *Evaluator) match(policy *entities.Policy, now time.Time, result *entities.TickResult) map[string]MatchResult {
	settings := make(map[string]MatchResult, len(it.pending))
	for _, tracked := range it.Pending() {
		candidate := tracked.Candidate
		match, err := it.matcher.Match(policy, candidate)
		if err != nil {
			logger.Errorf("Suppressing candidate %s: %v", candidate, err)
			decision := suppression(candidate, entities.SuppressPredicateError, now)
			decision.Reason = err.Error()
			result.Suppressed = append(result.Suppressed, decision)
			it.forget(candidate.PackageName)
			continue
		}
		for _, conflict := range match.Conflicts {
			logger.Warnf("Candidate %s: %v", candidate, conflict)
		}
		if !match.Effective.Enabled {
			decision := suppression(candidate, entities.SuppressDisabled, now)
			decision.MatchedRules = match.Rules
			result.Suppressed = append(result.Suppressed, decision)
			it.forget(candidate.PackageName)
			continue
		}

		it.grouping.Assign(candidate.PackageName, match.Effective.GroupName)
		current := it.pending[candidate.PackageName]
		current.GroupName = match.Effective.GroupName
		if current.State == entities.StateDiscovered {
			current.State = entities.StateMatched
		}
		settings[candidate.PackageName] = match
	}
	return settings
}

// units builds the change-sets to consider this tick: one per group bucket and one
// per ungrouped candidate, highest priority first, then by earliest member.
func (it *Evaluator) units(settings map[string]MatchResult) []*unit {
	var units []*unit
	for _, group := range it.grouping.Names() {
		u := &unit{key: group, group: group}
		members := it.grouping.Members(group)
		sort.Slice(members, func(i, j int) bool {
			return it.pending[members[i]].Candidate.Before(it.pending[members[j]].Candidate)
		})
		for _, member := range members {
			u.add(it.pending[member].Candidate, settings[member])
		}
		units = append(units, u)
	}
	for name, tracked := range it.pending {
		if _, grouped := it.grouping.GroupOf(name); grouped {
			continue
		}
		u := &unit{key: name}
		u.add(tracked.Candidate, settings[name])
		units = append(units, u)
	}

	sort.SliceStable(units, func(i, j int) bool {
		if units[i].priority != units[j].priority {
			return units[i].priority > units[j].priority
		}
		return units[i].candidates[0].Before(units[j].candidates[0])
	})
	return units
}

func (it *Evaluator) evaluateUnit(policy *entities.Policy, now time.Time, u *unit, result *entities.TickResult) {
	_, triggered := it.triggers[u.key]

	aged, waiting := u.splitByReleaseAge(now)
	if len(aged) == 0 {
		next := waiting[0]
		for _, readyAt := range waiting[1:] {
			next = earlier(next, readyAt)
		}
		it.postpone(u, entities.DeferReleaseAge, next, false, result)
		return
	}
	if len(waiting) > 0 {
		u = u.only(aged)
	}

	rule := u.schedule
	if triggered {
		rule = entities.Schedule{}
	}
	if !entities.IsActiveWithin(policy.Schedule, rule, now) {
		next, ok := entities.NextActive(policy.Schedule, rule, now)
		if !ok {
			it.warnNeverOverlaps(u)
		}
		it.postpone(u, entities.DeferWindow, next, !ok, result)
		return
	}

	decision := u.decision(now)
	if triggered {
		decision.Reason = "manual trigger"
	}
	decision.Reserved = !it.limiter.IsOpen(u.key)
	if !it.limiter.Admit(u.key, now, policy.Limits, decision.Action != entities.ActionMergeImmediately) {
		it.postpone(u, entities.DeferRateLimit, now.Truncate(time.Hour).Add(time.Hour), false, result)
		return
	}

	delete(it.triggers, u.key)
	it.flush(u)
	decision.State = entities.StateEmitted
	result.Emitted = append(result.Emitted, decision)
}

func (it *Evaluator) postpone(
	u *unit,
	reason entities.DeferReason,
	next time.Time,
	neverOverlaps bool,
	result *entities.TickResult,
) {
	state := entities.StateWindowPending
	if reason == entities.DeferRateLimit {
		state = entities.StateReady
	}
	for _, candidate := range u.candidates {
		it.pending[candidate.PackageName].State = state
	}
	result.Deferred = append(result.Deferred, entities.Deferral{
		Key:           u.key,
		GroupName:     u.group,
		PackageNames:  u.packageNames(),
		Reason:        reason,
		NextActive:    next,
		NeverOverlaps: neverOverlaps,
	})
}

func (it *Evaluator) warnNeverOverlaps(u *unit) {
	warn := false
	for _, candidate := range u.candidates {
		tracked := it.pending[candidate.PackageName]
		if !tracked.NeverOverlapWarned {
			tracked.NeverOverlapWarned = true
			warn = true
		}
	}
	if warn {
		logger.Warnf("Change-set %q stays pending: its schedule %v never overlaps the global schedule",
			u.key, u.schedule.Strings())
	}
}

// flush drops the members of an emitted unit from the pending set and its bucket.
func (it *Evaluator) flush(u *unit) {
	names := u.packageNames()
	if u.group != "" {
		it.grouping.Flush(u.group, names)
	}
	for _, name := range names {
		it.forget(name)
	}
}

func (it *Evaluator) forget(packageName string) {
	delete(it.pending, packageName)
	it.grouping.Remove(packageName)
}

// unit is one change-set under consideration: a group bucket or a single candidate.
type unit struct {
	key        string
	group      string
	candidates []entities.UpdateCandidate
	matches    []MatchResult

	schedule      entities.Schedule
	automerge     bool
	automergeMode entities.AutomergeMode
	priority      int
	labels        []string
	rules         []string
}

func (u *unit) add(candidate entities.UpdateCandidate, match MatchResult) {
	effective := match.Effective
	first := len(u.candidates) == 0
	u.candidates = append(u.candidates, candidate)
	u.matches = append(u.matches, match)

	if first {
		u.schedule = effective.Schedule
		u.automerge = effective.Automerge
		u.automergeMode = effective.AutomergeMode
		u.priority = effective.Priority
	} else {
		u.automerge = u.automerge && effective.Automerge
		if effective.AutomergeMode != entities.AutomergeBranch {
			u.automergeMode = entities.AutomergePR
		}
		u.priority = max(u.priority, effective.Priority)
	}
	u.labels = appendUnique(u.labels, effective.Labels...)
	u.rules = appendUnique(u.rules, match.Rules...)
}

func (u *unit) action() entities.Action {
	return entities.EffectiveSettings{Automerge: u.automerge, AutomergeMode: u.automergeMode}.Action()
}

func (u *unit) decision(now time.Time) entities.Decision {
	return entities.Decision{
		Key:           u.key,
		Candidates:    slices.Clone(u.candidates),
		Action:        u.action(),
		Automerge:     u.automerge,
		AutomergeMode: u.automergeMode,
		Schedule:      u.schedule.Strings(),
		GroupName:     u.group,
		Labels:        slices.Clone(u.labels),
		Priority:      u.priority,
		MatchedRules:  slices.Clone(u.rules),
		DecidedAt:     now,
		State:         entities.StateDecided,
		Ready:         true,
	}
}

// splitByReleaseAge separates members whose extra delay has elapsed from the rest,
// returning the indexes of the former and the ready times of the latter.
func (u *unit) splitByReleaseAge(now time.Time) ([]int, []time.Time) {
	var aged []int
	var waiting []time.Time
	for i, candidate := range u.candidates {
		delay := u.matches[i].Effective.ExtraDelay
		if candidate.ReleaseAge(now) >= delay {
			aged = append(aged, i)
			continue
		}
		waiting = append(waiting, candidate.AvailableSince().Add(delay))
	}
	return aged, waiting
}

// only rebuilds the unit from a subset of its members.
func (u *unit) only(indexes []int) *unit {
	subset := &unit{key: u.key, group: u.group}
	for _, i := range indexes {
		subset.add(u.candidates[i], u.matches[i])
	}
	return subset
}

func (u *unit) packageNames() []string {
	names := make([]string, 0, len(u.candidates))
	for _, candidate := range u.candidates {
		names = append(names, candidate.PackageName)
	}
	return names
}

func unitKey(packageName, group string) string {
	if group != "" {
		return group
	}
	return packageName
}

func suppression(candidate entities.UpdateCandidate, reason entities.SuppressReason, now time.Time) entities.Decision {
	return entities.Decision{
		Key:         candidate.PackageName,
		Candidates:  []entities.UpdateCandidate{candidate},
		Action:      entities.ActionSuppress,
		Suppression: reason,
		Reason:      string(reason),
		DecidedAt:   now,
		State:       entities.StateSuppressed,
	}
}

func nextAfterDelay(
	policy *entities.Policy,
	effective entities.EffectiveSettings,
	candidate entities.UpdateCandidate,
	now time.Time,
) (time.Time, bool) {
	readyAt := candidate.AvailableSince().Add(effective.ExtraDelay)
	if readyAt.Before(now) {
		readyAt = now
	}
	next, ok := entities.NextActive(policy.Schedule, effective.Schedule, readyAt)
	return next, !ok
}

func earlier(a, b time.Time) time.Time {
	if b.Before(a) {
		return b
	}
	return a
}

func closedKey(candidate entities.UpdateCandidate) string {
	return candidate.PackageName + "@" + candidate.CandidateVersion
}

func appendUnique(values []string, extra ...string) []string {
	for _, value := range extra {
		if !slices.Contains(values, value) {
			values = append(values, value)
		}
	}
	return values
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

func fromSet(set map[string]struct{}) []string {
	values := make([]string, 0, len(set))
	for value := range set {
		values = append(values, value)
	}
	sort.Strings(values)
	return values
}
