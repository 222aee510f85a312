package commands

import (
	"fmt"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// Validate is the interface for the validate command.
type Validate interface {
	Execute(path string) (ValidationReport, error)
}

// RuleSummary describes one compiled rule.
type RuleSummary struct {
	Name      string
	GroupName string
	Schedule  []string
}

// ValidationReport summarises a policy that loaded successfully. Warnings flag
// rules whose schedule never coincides with the global one: their candidates
// only move on a manual trigger.
type ValidationReport struct {
	Name     string
	Timezone string
	Schedule []string
	Limits   entities.Limits
	Rules    []RuleSummary
	Warnings []string
}

// ValidateCommand loads a policy document and reports on it.
type ValidateCommand struct {
	policies repositories.PolicyRepository
	clock    entities.Clock
}

// NewValidateCommand creates a new ValidateCommand.
func NewValidateCommand(policies repositories.PolicyRepository, clock entities.Clock) *ValidateCommand {
	return &ValidateCommand{policies: policies, clock: clock}
}

// Execute loads the policy at path. Any structural problem is returned as error.
func (it *ValidateCommand) Execute(path string) (ValidationReport, error) {
	policy, err := it.policies.Load(path)
	if err != nil {
		return ValidationReport{}, err
	}

	report := ValidationReport{
		Name:     policy.Name,
		Timezone: policy.Timezone.String(),
		Schedule: policy.Schedule.Strings(),
		Limits:   policy.Limits,
	}
	now := it.clock.Now()
	for _, rule := range policy.Rules {
		summary := RuleSummary{Name: rule.Name}
		if rule.Settings.GroupName != nil {
			summary.GroupName = *rule.Settings.GroupName
		}
		if rule.Settings.Schedule != nil {
			summary.Schedule = rule.Settings.Schedule.Strings()
			if _, ok := entities.NextActive(policy.Schedule, *rule.Settings.Schedule, now); !ok {
				report.Warnings = append(report.Warnings, fmt.Sprintf(
					"rule %q: schedule %v never overlaps the global schedule %v",
					rule.Name, summary.Schedule, report.Schedule))
			}
		}
		report.Rules = append(report.Rules, summary)
	}
	return report, nil
}
