//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"slices"
	"time"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// Dublin is the timezone of the default policy.
var Dublin = mustLoadLocation("Europe/Dublin") //nolint:gochecknoglobals // test fixture

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

// PolicyBuilder helps create test policies with a fluent interface. Schedules are
// given in the textual grammar and parsed in the builder's timezone.
type PolicyBuilder struct {
	*testkit.BaseBuilder
	name     string
	timezone *time.Location
	schedule []string
	limits   entities.Limits
	defaults entities.RuleSettings
	rules    []entities.Rule
}

// NewPolicyBuilder creates a policy with no rules, no limits and no global window.
func NewPolicyBuilder() *PolicyBuilder {
	return &PolicyBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "test-policy",
		timezone:    Dublin,
	}
}

// WithTimezone sets the policy timezone.
func (b *PolicyBuilder) WithTimezone(loc *time.Location) *PolicyBuilder {
	b.timezone = loc
	return b
}

// WithSchedule sets the global schedule expressions.
func (b *PolicyBuilder) WithSchedule(expressions ...string) *PolicyBuilder {
	b.schedule = expressions
	return b
}

// WithLimits sets the concurrent and hourly limits.
func (b *PolicyBuilder) WithLimits(concurrent, hourly int) *PolicyBuilder {
	b.limits = entities.Limits{ConcurrentLimit: concurrent, HourlyLimit: hourly}
	return b
}

// WithDefaults sets the settings every candidate starts from.
func (b *PolicyBuilder) WithDefaults(defaults entities.RuleSettings) *PolicyBuilder {
	b.defaults = defaults
	return b
}

// WithRule appends a rule.
func (b *PolicyBuilder) WithRule(rule entities.Rule) *PolicyBuilder {
	b.rules = append(b.rules, rule)
	return b
}

// WithScheduledRule appends a rule whose settings carry the given schedule expressions.
func (b *PolicyBuilder) WithScheduledRule(
	name string,
	predicate entities.RulePredicate,
	settings entities.RuleSettings,
	schedule ...string,
) *PolicyBuilder {
	if len(schedule) > 0 {
		parsed := b.parse(schedule)
		settings.Schedule = &parsed
	}
	return b.WithRule(entities.Rule{Name: name, Predicate: predicate, Settings: settings})
}

func (b *PolicyBuilder) parse(expressions []string) entities.Schedule {
	schedule, err := entities.ParseSchedule(expressions, b.timezone)
	if err != nil {
		panic(err)
	}
	return schedule
}

// Build creates the policy (satisfies testkit.Builder interface).
func (b *PolicyBuilder) Build() interface{} {
	return b.BuildPolicy()
}

// BuildPolicy creates the policy with a concrete return type.
func (b *PolicyBuilder) BuildPolicy() *entities.Policy {
	return &entities.Policy{
		Name:     b.name,
		Timezone: b.timezone,
		Schedule: b.parse(b.schedule),
		Limits:   b.limits,
		Defaults: b.defaults,
		Rules:    slices.Clone(b.rules),
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *PolicyBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.name = "test-policy"
	b.timezone = Dublin
	b.schedule = nil
	b.limits = entities.Limits{}
	b.defaults = entities.RuleSettings{}
	b.rules = nil
	return b
}

// Clone creates a deep copy of the PolicyBuilder.
func (b *PolicyBuilder) Clone() testkit.Builder {
	return &PolicyBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		name:        b.name,
		timezone:    b.timezone,
		schedule:    slices.Clone(b.schedule),
		limits:      b.limits,
		defaults:    b.defaults,
		rules:       slices.Clone(b.rules),
	}
}

// DublinPolicy reproduces the core of the default policy: the 08:00-18:00 Dublin
// global window, the limits and the rules the evaluation scenarios depend on.
func DublinPolicy() *entities.Policy {
	return NewPolicyBuilder().
		WithSchedule("after 08:00 and before 18:00").
		WithLimits(20, 10).
		WithDefaults(entities.RuleSettings{Labels: []string{"dependencies"}}).
		WithScheduledRule("js-prod",
			entities.MatchCriteria{
				Managers:    []entities.Manager{entities.ManagerNPM, entities.ManagerPNPM, entities.ManagerYarn},
				DepTypes:    []string{"dependencies"},
				UpdateTypes: []entities.UpdateType{entities.UpdateMinor, entities.UpdatePatch},
			},
			entities.RuleSettings{
				GroupName: entities.Ptr("JS prod dependencies"),
				Automerge: entities.Ptr(true),
			},
			"on tuesday before 10:00").
		WithScheduledRule("go-modules",
			entities.MatchCriteria{Managers: []entities.Manager{entities.ManagerGoMod}},
			entities.RuleSettings{GroupName: entities.Ptr("Go modules"), Automerge: entities.Ptr(true)},
			"on thursday before 10:00").
		WithScheduledRule("docker-digests",
			entities.MatchCriteria{
				Managers:    []entities.Manager{entities.ManagerDockerfile, entities.ManagerDockerCompose},
				UpdateTypes: []entities.UpdateType{entities.UpdateDigest},
			},
			entities.RuleSettings{
				GroupName:     entities.Ptr("Docker digests"),
				Automerge:     entities.Ptr(true),
				AutomergeMode: entities.Ptr(entities.AutomergeBranch),
			},
			"before 07:00").
		WithScheduledRule("monthly-majors",
			entities.MatchCriteria{UpdateTypes: []entities.UpdateType{entities.UpdateMajor}},
			entities.RuleSettings{
				GroupName: entities.Ptr("Monthly Upgrade Day (majors)"),
				Automerge: entities.Ptr(false),
				AddLabels: []string{"major"},
			},
			"on the first thursday of the month after 09:00 and before 12:00").
		BuildPolicy()
}
