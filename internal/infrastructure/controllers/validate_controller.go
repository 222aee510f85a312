package controllers

import (
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// ValidateController handles the "validate" subcommand.
type ValidateController struct {
	command commands.Validate
}

// NewValidateController creates a new ValidateController.
func NewValidateController(command commands.Validate) *ValidateController {
	return &ValidateController{command: command}
}

// GetBind returns the Cobra command metadata for the validate controller.
func (it *ValidateController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "validate [policy]",
		Short: "Check a policy document",
		Long: `Load a policy document (YAML, JSON with comments or HCL) and report every
structural problem: unknown fields, malformed schedules, invalid match
expressions. Rules whose schedule never overlaps the global one are listed
as warnings. Without an argument the policy of the settings file is used.`,
		Args: cobra.MaximumNArgs(1),
	}
}

// Execute validates the policy and exits non-zero when it is invalid.
func (it *ValidateController) Execute(cmd *cobra.Command, args []string) error {
	applyVerbose(cmd)

	path := ""
	if len(args) > 0 {
		path = args[0]
	} else {
		settings, err := loadSettings(cmd)
		if err != nil {
			return err
		}
		path = settings.PolicyPath
	}

	report, err := it.command.Execute(path)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Policy %q is valid\n", path)
	fmt.Fprintf(out, "  timezone: %s\n", report.Timezone)
	fmt.Fprintf(out, "  schedule: %s\n", strings.Join(report.Schedule, "; "))
	fmt.Fprintf(out, "  limits:   %d concurrent, %d per hour\n",
		report.Limits.ConcurrentLimit, report.Limits.HourlyLimit)
	fmt.Fprintf(out, "  rules:\n")
	for _, rule := range report.Rules {
		line := "    - " + rule.Name
		if rule.GroupName != "" {
			line += fmt.Sprintf(" [%s]", rule.GroupName)
		}
		if len(rule.Schedule) > 0 {
			line += ": " + strings.Join(rule.Schedule, "; ")
		}
		fmt.Fprintln(out, line)
	}
	for _, warning := range report.Warnings {
		logger.Warn(warning)
	}
	return nil
}
