package policy

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// document is the on-disk shape of a policy, shared by every format. Keys follow
// the Renovate vocabulary so existing presets translate line by line.
type document struct {
	Schema              string          `yaml:"$schema"`
	Name                string          `yaml:"name"`
	Description         string          `yaml:"description"`
	Timezone            string          `yaml:"timezone"`
	Schedule            stringList      `yaml:"schedule"`
	PRConcurrentLimit   *int            `yaml:"prConcurrentLimit"`
	PRHourlyLimit       *int            `yaml:"prHourlyLimit"`
	LockFileMaintenance *blockDocument  `yaml:"lockFileMaintenance"`
	VulnerabilityAlerts *blockDocument  `yaml:"vulnerabilityAlerts"`
	OSVAlerts           *blockDocument  `yaml:"osvVulnerabilityAlerts"`
	PackageRules        []ruleDocument  `yaml:"packageRules"`
	settingsDocument    `yaml:",inline"`
}

// settingsDocument holds the fields a rule, a special block or the defaults may set.
type settingsDocument struct {
	GroupName         *string  `yaml:"groupName"`
	Automerge         *bool    `yaml:"automerge"`
	AutomergeType     *string  `yaml:"automergeType"`
	MinimumReleaseAge *string  `yaml:"minimumReleaseAge"`
	PRPriority        *int     `yaml:"prPriority"`
	Enabled           *bool    `yaml:"enabled"`
	Labels            []string `yaml:"labels"`
	AddLabels         []string `yaml:"addLabels"`
}

type ruleDocument struct {
	Name                    string     `yaml:"name"`
	Description             string     `yaml:"description"`
	MatchManagers           []string   `yaml:"matchManagers"`
	MatchDepTypes           []string   `yaml:"matchDepTypes"`
	MatchUpdateTypes        []string   `yaml:"matchUpdateTypes"`
	ExcludeUpdateTypes      []string   `yaml:"excludeUpdateTypes"`
	MatchPackageNames       []string   `yaml:"matchPackageNames"`
	MatchPackagePatterns    []string   `yaml:"matchPackagePatterns"`
	ExcludePackagePatterns  []string   `yaml:"excludePackagePatterns"`
	MatchVulnerabilityAlert *bool      `yaml:"matchVulnerabilityAlert"`
	MatchExpression         string     `yaml:"matchExpression"`
	Schedule                stringList `yaml:"schedule"`
	settingsDocument        `yaml:",inline"`
}

// blockDocument configures lockFileMaintenance, vulnerabilityAlerts and
// osvVulnerabilityAlerts.
type blockDocument struct {
	Schedule         stringList `yaml:"schedule"`
	settingsDocument `yaml:",inline"`
}

// stringList accepts either a single string or a list of strings. In schedule
// fields an item may also be a structured window, rendered to the text grammar.
type stringList []string

func (s *stringList) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		*s = stringList{value.Value}
		return nil
	case yaml.MappingNode:
		rendered, err := renderWindow(value)
		if err != nil {
			return err
		}
		*s = stringList{rendered}
		return nil
	case yaml.SequenceNode:
		items := stringList{}
		for _, item := range value.Content {
			if item.Kind == yaml.SequenceNode {
				return fmt.Errorf("line %d: nested lists are not allowed", item.Line)
			}
			var parsed stringList
			if err := parsed.UnmarshalYAML(item); err != nil {
				return err
			}
			items = append(items, parsed...)
		}
		*s = items
		return nil
	}
	return fmt.Errorf("line %d: expected a string or a list of strings", value.Line)
}

// windowDocument is the structured form of a schedule entry:
// {days: [thursday], weekOfMonth: first, after: "09:00", before: "12:00"}.
type windowDocument struct {
	Days        []string `yaml:"days"`
	WeekOfMonth string   `yaml:"weekOfMonth"`
	DaysOfMonth []int    `yaml:"daysOfMonth"`
	After       string   `yaml:"after"`
	Before      string   `yaml:"before"`
}

var windowFields = map[string]struct{}{ //nolint:gochecknoglobals // lookup table
	"days": {}, "weekOfMonth": {}, "daysOfMonth": {}, "after": {}, "before": {},
}

// renderWindow turns a structured window into the equivalent schedule text so
// both forms go through the same parser.
func renderWindow(node *yaml.Node) (string, error) {
	for i := 0; i < len(node.Content); i += 2 {
		key := node.Content[i]
		if _, ok := windowFields[key.Value]; !ok {
			return "", fmt.Errorf("line %d: field %s not found in type schedule window", key.Line, key.Value)
		}
	}
	var window windowDocument
	if err := node.Decode(&window); err != nil {
		return "", err
	}

	var parts []string
	switch {
	case window.WeekOfMonth != "":
		if len(window.Days) != 1 {
			return "", fmt.Errorf("line %d: weekOfMonth needs exactly one day", node.Line)
		}
		parts = append(parts, fmt.Sprintf("on the %s %s of the month", window.WeekOfMonth, window.Days[0]))
	case len(window.Days) > 0:
		parts = append(parts, "on "+strings.Join(window.Days, " and "))
	}
	for _, day := range window.DaysOfMonth {
		parts = append(parts, fmt.Sprintf("on the %d%s day of the month", day, ordinalSuffix(day)))
	}
	if window.After != "" {
		parts = append(parts, "after "+window.After)
	}
	if window.Before != "" {
		parts = append(parts, "before "+window.Before)
	}
	if len(parts) == 0 {
		return "at any time", nil
	}
	return strings.Join(parts, " and "), nil
}

func ordinalSuffix(day int) string {
	switch {
	case day%100 >= 11 && day%100 <= 13:
		return "th"
	case day%10 == 1:
		return "st"
	case day%10 == 2:
		return "nd"
	case day%10 == 3:
		return "rd"
	}
	return "th"
}

var agePattern = regexp.MustCompile(`^(\d+)\s*(minutes?|mins?|hours?|h|days?|d|weeks?|w)$`)

// parseAge converts "3 days", "12 hours", "1 week" or a Go duration such as "72h".
func parseAge(raw string) (time.Duration, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if match := agePattern.FindStringSubmatch(value); match != nil {
		amount, _ := strconv.Atoi(match[1])
		unit := time.Minute
		switch match[2][0] {
		case 'h':
			unit = time.Hour
		case 'd':
			unit = 24 * time.Hour
		case 'w':
			unit = 7 * 24 * time.Hour
		}
		return time.Duration(amount) * unit, nil
	}

	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid release age %q", raw)
	}
	if duration < 0 {
		return 0, fmt.Errorf("release age %q must not be negative", raw)
	}
	return duration, nil
}
