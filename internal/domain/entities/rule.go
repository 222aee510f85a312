package entities

import (
	"fmt"
	"regexp"
	"slices"
	"time"
)

// AutomergeMode selects how an automerged change-set lands.
type AutomergeMode string

const (
	// AutomergeBranch merges the update branch directly, without a pull request.
	AutomergeBranch AutomergeMode = "branch"
	// AutomergePR opens a pull request and merges it without review.
	AutomergePR AutomergeMode = "pr"
)

// ParseAutomergeMode validates an automerge mode name.
func ParseAutomergeMode(raw string) (AutomergeMode, error) {
	switch mode := AutomergeMode(raw); mode {
	case AutomergeBranch, AutomergePR:
		return mode, nil
	}
	return "", fmt.Errorf("unknown automerge type %q (expected %q or %q)", raw, AutomergeBranch, AutomergePR)
}

// RulePredicate decides whether a rule applies to a candidate. An error means the
// candidate could not be evaluated and must be suppressed, not that it did not match.
type RulePredicate interface {
	Matches(candidate UpdateCandidate) (bool, error)
}

// PredicateFunc adapts a plain function to RulePredicate.
type PredicateFunc func(candidate UpdateCandidate) (bool, error)

// Matches calls f.
func (f PredicateFunc) Matches(candidate UpdateCandidate) (bool, error) {
	return f(candidate)
}

// AllOf matches when every predicate matches. Evaluation stops at the first miss.
type AllOf []RulePredicate

// Matches implements RulePredicate.
func (a AllOf) Matches(candidate UpdateCandidate) (bool, error) {
	for _, predicate := range a {
		ok, err := predicate.Matches(candidate)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// MatchCriteria is the declarative predicate of a rule. Every non-empty field must
// be satisfied; empty fields are wildcards.
type MatchCriteria struct {
	Managers               []Manager
	DepTypes               []string
	UpdateTypes            []UpdateType
	ExcludeUpdateTypes     []UpdateType
	PackageNames           []string
	PackagePatterns        []*regexp.Regexp
	ExcludePackagePatterns []*regexp.Regexp
	VulnerabilityAlert     *bool
}

// Matches implements RulePredicate.
func (m MatchCriteria) Matches(candidate UpdateCandidate) (bool, error) {
	if len(m.Managers) > 0 && !slices.Contains(m.Managers, candidate.Manager) {
		return false, nil
	}
	if len(m.DepTypes) > 0 && !slices.Contains(m.DepTypes, candidate.DepType) {
		return false, nil
	}
	if len(m.UpdateTypes) > 0 && !slices.Contains(m.UpdateTypes, candidate.UpdateType) {
		return false, nil
	}
	if slices.Contains(m.ExcludeUpdateTypes, candidate.UpdateType) {
		return false, nil
	}
	if len(m.PackageNames) > 0 || len(m.PackagePatterns) > 0 {
		named := slices.Contains(m.PackageNames, candidate.PackageName)
		if !named && !anyPatternMatches(m.PackagePatterns, candidate.PackageName) {
			return false, nil
		}
	}
	if anyPatternMatches(m.ExcludePackagePatterns, candidate.PackageName) {
		return false, nil
	}
	if m.VulnerabilityAlert != nil && *m.VulnerabilityAlert != candidate.VulnerabilityAlert {
		return false, nil
	}
	return true, nil
}

func anyPatternMatches(patterns []*regexp.Regexp, value string) bool {
	for _, pattern := range patterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// RuleSettings holds the optional fields a rule may set. Nil means "not set by this
// rule". Labels nil means unset; AddLabels accumulates across matching rules.
type RuleSettings struct {
	GroupName     *string
	Schedule      *Schedule
	Automerge     *bool
	AutomergeMode *AutomergeMode
	ExtraDelay    *time.Duration
	Priority      *int
	Enabled       *bool
	Labels        []string
	AddLabels     []string
}

// Merge overlays override on s field by field: every field set in override wins,
// every field it leaves unset keeps the value from s. AddLabels are appended.
// Merge is associative, so folding rules left to right in declaration order gives
// the same result however the list is split.
func (s RuleSettings) Merge(override RuleSettings) RuleSettings {
	merged := s
	if override.GroupName != nil {
		merged.GroupName = override.GroupName
	}
	if override.Schedule != nil {
		merged.Schedule = override.Schedule
	}
	if override.Automerge != nil {
		merged.Automerge = override.Automerge
	}
	if override.AutomergeMode != nil {
		merged.AutomergeMode = override.AutomergeMode
	}
	if override.ExtraDelay != nil {
		merged.ExtraDelay = override.ExtraDelay
	}
	if override.Priority != nil {
		merged.Priority = override.Priority
	}
	if override.Enabled != nil {
		merged.Enabled = override.Enabled
	}
	if override.Labels != nil {
		merged.Labels = override.Labels
	}
	if len(override.AddLabels) > 0 {
		merged.AddLabels = append(slices.Clone(s.AddLabels), override.AddLabels...)
	}
	return merged
}

// Resolve turns merged settings into concrete values, applying built-in defaults:
// no group, no schedule restriction, no automerge, pull-request mode, enabled.
func (s RuleSettings) Resolve() EffectiveSettings {
	effective := EffectiveSettings{
		Schedule:      Schedule{},
		AutomergeMode: AutomergePR,
		Enabled:       true,
	}
	if s.GroupName != nil {
		effective.GroupName = *s.GroupName
	}
	if s.Schedule != nil {
		effective.Schedule = *s.Schedule
	}
	if s.Automerge != nil {
		effective.Automerge = *s.Automerge
	}
	if s.AutomergeMode != nil {
		effective.AutomergeMode = *s.AutomergeMode
	}
	if s.ExtraDelay != nil {
		effective.ExtraDelay = *s.ExtraDelay
	}
	if s.Priority != nil {
		effective.Priority = *s.Priority
	}
	if s.Enabled != nil {
		effective.Enabled = *s.Enabled
	}
	for _, label := range append(slices.Clone(s.Labels), s.AddLabels...) {
		if !slices.Contains(effective.Labels, label) {
			effective.Labels = append(effective.Labels, label)
		}
	}
	return effective
}

// EffectiveSettings is the pointwise merge of every matching rule over the defaults.
type EffectiveSettings struct {
	GroupName     string
	Schedule      Schedule
	Automerge     bool
	AutomergeMode AutomergeMode
	ExtraDelay    time.Duration
	Priority      int
	Enabled       bool
	Labels        []string
}

// Action derives the decision action for these settings.
func (e EffectiveSettings) Action() Action {
	switch {
	case !e.Automerge:
		return ActionOpenPullRequest
	case e.AutomergeMode == AutomergeBranch:
		return ActionMergeImmediately
	default:
		return ActionOpenAndAutomerge
	}
}

// Rule is one entry of the ordered policy rule list.
type Rule struct {
	Name        string
	Description string
	Predicate   RulePredicate
	Settings    RuleSettings
}

// Ptr returns a pointer to v. Handy for building RuleSettings literals.
func Ptr[T any](v T) *T {
	return &v
}
