package policy

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

const (
	defaultTimezone = "UTC"

	lockFileRuleName      = "lockFileMaintenance"
	vulnerabilityRuleName = "vulnerabilityAlerts"
	osvRuleName           = "osvVulnerabilityAlerts"
)

// compiler turns a decoded document into an immutable policy, collecting every
// problem instead of stopping at the first one.
type compiler struct {
	env  *cel.Env
	loc  *time.Location
	errs []error
}

func compile(doc *document) (*entities.Policy, error) {
	env, err := newCELEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create expression environment: %w", err)
	}
	c := &compiler{env: env}

	timezone := doc.Timezone
	if timezone == "" {
		timezone = defaultTimezone
	}
	c.loc, err = time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %w", entities.ErrInvalidPolicy, timezone, err)
	}

	policy := &entities.Policy{
		Name:     doc.Name,
		Timezone: c.loc,
		Schedule: c.schedule("schedule", doc.Schedule),
		Defaults: c.settings("defaults", doc.settingsDocument, nil),
	}
	if doc.PRConcurrentLimit != nil {
		policy.Limits.ConcurrentLimit = *doc.PRConcurrentLimit
	}
	if doc.PRHourlyLimit != nil {
		policy.Limits.HourlyLimit = *doc.PRHourlyLimit
	}

	if block := doc.LockFileMaintenance; block != nil {
		policy.Rules = append(policy.Rules, entities.Rule{
			Name:        lockFileRuleName,
			Description: "Lock file maintenance",
			Predicate:   entities.MatchCriteria{UpdateTypes: []entities.UpdateType{entities.UpdateLockfile}},
			Settings:    c.settings(lockFileRuleName, block.settingsDocument, block.Schedule),
		})
	}

	names := make(map[string]bool, len(doc.PackageRules))
	for i, rule := range doc.PackageRules {
		name := ruleName(i, rule, names)
		names[name] = true
		policy.Rules = append(policy.Rules, entities.Rule{
			Name:        name,
			Description: rule.Description,
			Predicate:   c.predicate(name, rule),
			Settings:    c.settings(name, rule.settingsDocument, rule.Schedule),
		})
	}

	if block := doc.VulnerabilityAlerts; block != nil {
		policy.Rules = append(policy.Rules, c.vulnerabilityRule(vulnerabilityRuleName, "Vulnerability alerts", block))
	}
	// candidates carry one alert flag whatever the advisory source, so OSV
	// settings apply on top of the GitHub ones
	if block := doc.OSVAlerts; block != nil {
		policy.Rules = append(policy.Rules, c.vulnerabilityRule(osvRuleName, "OSV vulnerability alerts", block))
	}

	if len(c.errs) > 0 {
		return nil, fmt.Errorf("%w: %w", entities.ErrInvalidPolicy, errors.Join(c.errs...))
	}
	if err = policy.Validate(); err != nil {
		return nil, err
	}
	return policy, nil
}

// ruleName prefers the explicit name, then a unique description, then the position.
func ruleName(index int, rule ruleDocument, taken map[string]bool) string {
	for _, candidate := range []string{rule.Name, rule.Description} {
		if candidate != "" && !taken[candidate] {
			return candidate
		}
	}
	return fmt.Sprintf("packageRules[%d]", index)
}

func (c *compiler) fail(scope string, err error) {
	c.errs = append(c.errs, fmt.Errorf("%s: %w", scope, err))
}

func (c *compiler) schedule(scope string, expressions stringList) entities.Schedule {
	schedule, err := entities.ParseSchedule(expressions, c.loc)
	if err != nil {
		c.fail(scope, err)
		return entities.Schedule{}
	}
	return schedule
}

func (c *compiler) settings(scope string, doc settingsDocument, schedule stringList) entities.RuleSettings {
	settings := entities.RuleSettings{
		GroupName: doc.GroupName,
		Automerge: doc.Automerge,
		Priority:  doc.PRPriority,
		Enabled:   doc.Enabled,
		Labels:    doc.Labels,
		AddLabels: doc.AddLabels,
	}
	if doc.AutomergeType != nil {
		mode, err := entities.ParseAutomergeMode(*doc.AutomergeType)
		if err != nil {
			c.fail(scope, err)
		}
		settings.AutomergeMode = &mode
	}
	if doc.MinimumReleaseAge != nil {
		age, err := parseAge(*doc.MinimumReleaseAge)
		if err != nil {
			c.fail(scope, err)
		}
		settings.ExtraDelay = &age
	}
	if schedule != nil {
		parsed := c.schedule(scope+": schedule", schedule)
		settings.Schedule = &parsed
	}
	return settings
}

func (c *compiler) predicate(scope string, rule ruleDocument) entities.RulePredicate {
	criteria := entities.MatchCriteria{
		DepTypes:           rule.MatchDepTypes,
		PackageNames:       rule.MatchPackageNames,
		VulnerabilityAlert: rule.MatchVulnerabilityAlert,
	}
	for _, raw := range rule.MatchManagers {
		manager, err := entities.ParseManager(raw)
		if err != nil {
			c.fail(scope, fmt.Errorf("%w: %w", entities.ErrInvalidRulePredicate, err))
			continue
		}
		criteria.Managers = append(criteria.Managers, manager)
	}
	criteria.UpdateTypes = c.updateTypes(scope, rule.MatchUpdateTypes)
	criteria.ExcludeUpdateTypes = c.updateTypes(scope, rule.ExcludeUpdateTypes)
	criteria.PackagePatterns = c.patterns(scope, rule.MatchPackagePatterns)
	criteria.ExcludePackagePatterns = c.patterns(scope, rule.ExcludePackagePatterns)

	if rule.MatchExpression == "" {
		return criteria
	}
	expression, err := compileExpression(c.env, rule.MatchExpression)
	if err != nil {
		c.fail(scope, err)
		return criteria
	}
	return entities.AllOf{criteria, expression}
}

func (c *compiler) updateTypes(scope string, raw []string) []entities.UpdateType {
	var updateTypes []entities.UpdateType
	for _, value := range raw {
		updateType, err := entities.ParseUpdateType(value)
		if err != nil {
			c.fail(scope, fmt.Errorf("%w: %w", entities.ErrInvalidRulePredicate, err))
			continue
		}
		updateTypes = append(updateTypes, updateType)
	}
	return updateTypes
}

func (c *compiler) patterns(scope string, raw []string) []*regexp.Regexp {
	var patterns []*regexp.Regexp
	for _, value := range raw {
		pattern, err := regexp.Compile(value)
		if err != nil {
			c.fail(scope, fmt.Errorf("%w: pattern %q: %w", entities.ErrInvalidRulePredicate, value, err))
			continue
		}
		patterns = append(patterns, pattern)
	}
	return patterns
}

// vulnerabilityRule goes last so it overrides every package rule. Unless the
// block says otherwise, security fixes are ungrouped, ignore rule schedules and
// skip the release-age cool-down.
func (c *compiler) vulnerabilityRule(name, description string, block *blockDocument) entities.Rule {
	settings := c.settings(name, block.settingsDocument, block.Schedule)
	if settings.Schedule == nil {
		settings.Schedule = &entities.Schedule{}
	}
	if settings.GroupName == nil {
		settings.GroupName = entities.Ptr("")
	}
	if settings.ExtraDelay == nil {
		settings.ExtraDelay = entities.Ptr(time.Duration(0))
	}
	return entities.Rule{
		Name:        name,
		Description: description,
		Predicate:   entities.MatchCriteria{VulnerabilityAlert: entities.Ptr(true)},
		Settings:    settings,
	}
}
