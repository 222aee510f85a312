package evaluator

import (
	"fmt"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// GroupConflict records two matched rules assigning different group names.
// The later rule wins; the conflict is only reported.
type GroupConflict struct {
	Candidate string
	Previous  string
	Winner    string
	Rule      string
}

// Error implements error so conflicts can be logged with %v and matched with errors.Is.
func (c GroupConflict) Error() string {
	return fmt.Sprintf("%s: rule %q moves group %q to %q",
		entities.ErrAmbiguousGroupConflict, c.Rule, c.Previous, c.Winner)
}

// Unwrap exposes entities.ErrAmbiguousGroupConflict.
func (c GroupConflict) Unwrap() error {
	return entities.ErrAmbiguousGroupConflict
}

// MatchResult is the outcome of running every policy rule against a candidate.
type MatchResult struct {
	Settings  entities.RuleSettings
	Effective entities.EffectiveSettings
	Rules     []string
	Conflicts []GroupConflict
}

// Matcher runs the ordered rule list of a policy against candidates.
type Matcher struct{}

// NewMatcher creates a Matcher.
func NewMatcher() *Matcher {
	return &Matcher{}
}

// Match evaluates rules in declaration order and folds every matching rule over the
// policy defaults field by field: a later rule overrides only the fields it sets.
// A predicate error aborts the match; the caller suppresses the candidate.
func (it *Matcher) Match(policy *entities.Policy, candidate entities.UpdateCandidate) (MatchResult, error) {
	result := MatchResult{Settings: policy.Defaults}

	for _, rule := range policy.Rules {
		matched, err := rule.Predicate.Matches(candidate)
		if err != nil {
			return MatchResult{}, fmt.Errorf("rule %q: %w: %w", rule.Name, entities.ErrInvalidRulePredicate, err)
		}
		if !matched {
			continue
		}

		if conflict, ok := groupConflict(result.Settings, rule, candidate); ok {
			result.Conflicts = append(result.Conflicts, conflict)
		}
		result.Settings = result.Settings.Merge(rule.Settings)
		result.Rules = append(result.Rules, rule.Name)
	}

	result.Effective = result.Settings.Resolve()
	return result, nil
}

func groupConflict(
	current entities.RuleSettings,
	rule entities.Rule,
	candidate entities.UpdateCandidate,
) (GroupConflict, bool) {
	if current.GroupName == nil || rule.Settings.GroupName == nil {
		return GroupConflict{}, false
	}
	previous, next := *current.GroupName, *rule.Settings.GroupName
	if previous == "" || next == "" || previous == next {
		return GroupConflict{}, false
	}
	return GroupConflict{
		Candidate: candidate.PackageName,
		Previous:  previous,
		Winner:    next,
		Rule:      rule.Name,
	}, true
}
