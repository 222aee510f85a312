package policy

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// hclDocument mirrors document with snake_case attributes and one labelled
// "rule" block per package rule. Settings shared with rules stay in Remain and are
// decoded strictly afterwards, so unknown attributes are still rejected.
type hclDocument struct {
	Name                string    `hcl:"name,optional"`
	Description         string    `hcl:"description,optional"`
	Timezone            string    `hcl:"timezone,optional"`
	Schedule            cty.Value `hcl:"schedule,optional"`
	PRConcurrentLimit   *int      `hcl:"pr_concurrent_limit,optional"`
	PRHourlyLimit       *int      `hcl:"pr_hourly_limit,optional"`
	LockFileMaintenance *hclBlock `hcl:"lock_file_maintenance,block"`
	VulnerabilityAlerts *hclBlock `hcl:"vulnerability_alerts,block"`
	OSVAlerts           *hclBlock `hcl:"osv_vulnerability_alerts,block"`
	Rules               []hclRule `hcl:"rule,block"`
	Remain              hcl.Body  `hcl:",remain"`
}

type hclRule struct {
	Name                    string    `hcl:"name,label"`
	Description             string    `hcl:"description,optional"`
	MatchManagers           []string  `hcl:"match_managers,optional"`
	MatchDepTypes           []string  `hcl:"match_dep_types,optional"`
	MatchUpdateTypes        []string  `hcl:"match_update_types,optional"`
	ExcludeUpdateTypes      []string  `hcl:"exclude_update_types,optional"`
	MatchPackageNames       []string  `hcl:"match_package_names,optional"`
	MatchPackagePatterns    []string  `hcl:"match_package_patterns,optional"`
	ExcludePackagePatterns  []string  `hcl:"exclude_package_patterns,optional"`
	MatchVulnerabilityAlert *bool     `hcl:"match_vulnerability_alert,optional"`
	MatchExpression         string    `hcl:"match_expression,optional"`
	Schedule                cty.Value `hcl:"schedule,optional"`
	Remain                  hcl.Body  `hcl:",remain"`
}

type hclBlock struct {
	Schedule cty.Value `hcl:"schedule,optional"`
	Remain   hcl.Body  `hcl:",remain"`
}

type hclSettings struct {
	GroupName         *string  `hcl:"group_name,optional"`
	Automerge         *bool    `hcl:"automerge,optional"`
	AutomergeType     *string  `hcl:"automerge_type,optional"`
	MinimumReleaseAge *string  `hcl:"minimum_release_age,optional"`
	PRPriority        *int     `hcl:"pr_priority,optional"`
	Enabled           *bool    `hcl:"enabled,optional"`
	Labels            []string `hcl:"labels,optional"`
	AddLabels         []string `hcl:"add_labels,optional"`
}

func decodeHCL(filename string, data []byte) (*document, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, filename)
	if diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", entities.ErrInvalidPolicy, diags)
	}

	var raw hclDocument
	if diags = gohcl.DecodeBody(file.Body, nil, &raw); diags.HasErrors() {
		return nil, fmt.Errorf("%w: %w", entities.ErrInvalidPolicy, diags)
	}

	doc := &document{
		Name:              raw.Name,
		Description:       raw.Description,
		Timezone:          raw.Timezone,
		PRConcurrentLimit: raw.PRConcurrentLimit,
		PRHourlyLimit:     raw.PRHourlyLimit,
	}
	var err error
	if doc.Schedule, err = ctyStrings("schedule", raw.Schedule); err != nil {
		return nil, err
	}
	if doc.settingsDocument, err = decodeHCLSettings(raw.Remain); err != nil {
		return nil, err
	}
	if doc.LockFileMaintenance, err = raw.LockFileMaintenance.document("lock_file_maintenance"); err != nil {
		return nil, err
	}
	if doc.VulnerabilityAlerts, err = raw.VulnerabilityAlerts.document("vulnerability_alerts"); err != nil {
		return nil, err
	}
	if doc.OSVAlerts, err = raw.OSVAlerts.document("osv_vulnerability_alerts"); err != nil {
		return nil, err
	}

	for _, rule := range raw.Rules {
		converted, convertErr := rule.document()
		if convertErr != nil {
			return nil, convertErr
		}
		doc.PackageRules = append(doc.PackageRules, converted)
	}
	return doc, nil
}

func (r hclRule) document() (ruleDocument, error) {
	scope := fmt.Sprintf("rule %q", r.Name)
	schedule, err := ctyStrings(scope+": schedule", r.Schedule)
	if err != nil {
		return ruleDocument{}, err
	}
	settings, err := decodeHCLSettings(r.Remain)
	if err != nil {
		return ruleDocument{}, fmt.Errorf("%s: %w", scope, err)
	}
	return ruleDocument{
		Name:                    r.Name,
		Description:             r.Description,
		MatchManagers:           r.MatchManagers,
		MatchDepTypes:           r.MatchDepTypes,
		MatchUpdateTypes:        r.MatchUpdateTypes,
		ExcludeUpdateTypes:      r.ExcludeUpdateTypes,
		MatchPackageNames:       r.MatchPackageNames,
		MatchPackagePatterns:    r.MatchPackagePatterns,
		ExcludePackagePatterns:  r.ExcludePackagePatterns,
		MatchVulnerabilityAlert: r.MatchVulnerabilityAlert,
		MatchExpression:         r.MatchExpression,
		Schedule:                schedule,
		settingsDocument:        settings,
	}, nil
}

func (b *hclBlock) document(scope string) (*blockDocument, error) {
	if b == nil {
		return nil, nil
	}
	schedule, err := ctyStrings(scope+": schedule", b.Schedule)
	if err != nil {
		return nil, err
	}
	settings, err := decodeHCLSettings(b.Remain)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", scope, err)
	}
	return &blockDocument{Schedule: schedule, settingsDocument: settings}, nil
}

func decodeHCLSettings(body hcl.Body) (settingsDocument, error) {
	var raw hclSettings
	if body != nil {
		if diags := gohcl.DecodeBody(body, nil, &raw); diags.HasErrors() {
			return settingsDocument{}, fmt.Errorf("%w: %w", entities.ErrInvalidPolicy, diags)
		}
	}
	return settingsDocument{
		GroupName:         raw.GroupName,
		Automerge:         raw.Automerge,
		AutomergeType:     raw.AutomergeType,
		MinimumReleaseAge: raw.MinimumReleaseAge,
		PRPriority:        raw.PRPriority,
		Enabled:           raw.Enabled,
		Labels:            raw.Labels,
		AddLabels:         raw.AddLabels,
	}, nil
}

// ctyStrings accepts a string or a list of strings. A missing attribute stays nil.
func ctyStrings(scope string, value cty.Value) (stringList, error) {
	if value.IsNull() {
		return nil, nil
	}
	if value.Type().Equals(cty.String) {
		return stringList{value.AsString()}, nil
	}

	list, err := convert.Convert(value, cty.List(cty.String))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: expected a string or a list of strings: %w",
			entities.ErrInvalidPolicy, scope, err)
	}
	items := stringList{}
	if err = gocty.FromCtyValue(list, (*[]string)(&items)); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", entities.ErrInvalidPolicy, scope, err)
	}
	return items, nil
}
