package controllers

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// ExplainController handles the "explain" subcommand.
type ExplainController struct {
	command commands.Explain
}

// NewExplainController creates a new ExplainController.
func NewExplainController(command commands.Explain) *ExplainController {
	return &ExplainController{command: command}
}

// GetBind returns the Cobra command metadata for the explain controller.
func (it *ExplainController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "explain <package>",
		Short: "Show the decision a candidate would get",
		Long: `Evaluate a single update candidate against the policy and print the
decision as JSON: matched rules, effective group and schedule, action, and
when the windows next coincide. The saved state is not touched.

Example:
  autopolicy explain react --manager npm --from 18.2.0 --to 18.3.1 --at 2026-03-03T09:30:00Z`,
		Args: cobra.ExactArgs(1),
	}
}

// AddFlags adds the explain-specific flags to the given Cobra command.
func (it *ExplainController) AddFlags(cmd *cobra.Command) {
	cmd.Flags().String("manager", string(entities.ManagerNPM), "Package manager (npm, gomod, dockerfile, ...)")
	cmd.Flags().String("dep-type", "dependencies", "Dependency type (dependencies, devDependencies, ...)")
	cmd.Flags().String("update-type", "", "Update type; derived from the versions when empty")
	cmd.Flags().String("from", "", "Current version")
	cmd.Flags().String("to", "", "Candidate version")
	cmd.Flags().String("released-at", "", "Release time of the candidate version (RFC 3339)")
	cmd.Flags().Bool("vulnerability", false, "The update fixes a known vulnerability")
	cmd.Flags().String("at", "", "Evaluate at this instant instead of now (RFC 3339)")
}

// Execute prints the decision.
func (it *ExplainController) Execute(cmd *cobra.Command, args []string) error {
	applyVerbose(cmd)
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	candidate, at, err := candidateFromFlags(cmd, args[0])
	if err != nil {
		return err
	}

	decision, err := it.command.Execute(settings, candidate, at)
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(decision, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode decision: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func candidateFromFlags(cmd *cobra.Command, packageName string) (entities.UpdateCandidate, time.Time, error) {
	rawManager, _ := cmd.Flags().GetString("manager")
	depType, _ := cmd.Flags().GetString("dep-type")
	rawUpdateType, _ := cmd.Flags().GetString("update-type")
	from, _ := cmd.Flags().GetString("from")
	to, _ := cmd.Flags().GetString("to")
	releasedAt, _ := cmd.Flags().GetString("released-at")
	vulnerability, _ := cmd.Flags().GetBool("vulnerability")
	rawAt, _ := cmd.Flags().GetString("at")

	manager, err := entities.ParseManager(rawManager)
	if err != nil {
		return entities.UpdateCandidate{}, time.Time{}, err
	}
	candidate := entities.UpdateCandidate{
		Manager:            manager,
		DepType:            depType,
		PackageName:        packageName,
		CurrentVersion:     from,
		CandidateVersion:   to,
		VulnerabilityAlert: vulnerability,
	}
	if rawUpdateType != "" {
		if candidate.UpdateType, err = entities.ParseUpdateType(rawUpdateType); err != nil {
			return entities.UpdateCandidate{}, time.Time{}, err
		}
	}
	if releasedAt != "" {
		if candidate.ReleasedAt, err = time.Parse(time.RFC3339, releasedAt); err != nil {
			return entities.UpdateCandidate{}, time.Time{}, fmt.Errorf("invalid --released-at: %w", err)
		}
	}

	var at time.Time
	if rawAt != "" {
		if at, err = time.Parse(time.RFC3339, rawAt); err != nil {
			return entities.UpdateCandidate{}, time.Time{}, fmt.Errorf("invalid --at: %w", err)
		}
		candidate.DetectedAt = at
	}
	return candidate, at, nil
}
