package entities

import (
	"errors"
	"fmt"
	"time"
)

// Limits caps change-set creation. Zero means unlimited.
type Limits struct {
	ConcurrentLimit int
	HourlyLimit     int
}

// Policy is an immutable snapshot of the rules, windows and limits. It is loaded
// once and handed to every evaluation pass explicitly.
type Policy struct {
	Name     string
	Timezone *time.Location
	Schedule Schedule
	Limits   Limits
	Defaults RuleSettings
	Rules    []Rule
}

// Validate checks the snapshot is complete enough to evaluate.
func (p *Policy) Validate() error {
	var errs []error
	if p.Timezone == nil {
		errs = append(errs, errors.New("timezone is required"))
	}
	if err := p.Schedule.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("schedule: %w", err))
	}
	if p.Limits.ConcurrentLimit < 0 || p.Limits.HourlyLimit < 0 {
		errs = append(errs, errors.New("limits must not be negative"))
	}

	seen := make(map[string]bool, len(p.Rules))
	for i, rule := range p.Rules {
		if rule.Name == "" {
			errs = append(errs, fmt.Errorf("rules[%d]: name is required", i))
		}
		if seen[rule.Name] {
			errs = append(errs, fmt.Errorf("rules[%d]: duplicate rule name %q", i, rule.Name))
		}
		seen[rule.Name] = true
		if rule.Predicate == nil {
			errs = append(errs, fmt.Errorf("rule %q: %w: predicate is missing", rule.Name, ErrInvalidRulePredicate))
		}
		if rule.Settings.Schedule != nil {
			if err := rule.Settings.Schedule.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("rule %q: schedule: %w", rule.Name, err))
			}
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidPolicy, errors.Join(errs...))
	}
	return nil
}

// RuleNames lists the rule names in declaration order.
func (p *Policy) RuleNames() []string {
	names := make([]string, 0, len(p.Rules))
	for _, rule := range p.Rules {
		names = append(names, rule.Name)
	}
	return names
}
