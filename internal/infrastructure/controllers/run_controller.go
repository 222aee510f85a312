package controllers

import (
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// RunController handles the "run" subcommand (one evaluation pass).
type RunController struct {
	command commands.Run
}

// NewRunController creates a new RunController.
func NewRunController(command commands.Run) *RunController {
	return &RunController{command: command}
}

// GetBind returns the Cobra command metadata for the run controller.
func (it *RunController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "run",
		Short: "Run one evaluation pass",
		Long: `Read new update candidates from the inbox, evaluate everything pending
against the policy and hand the change-sets that are due to the executor.

This is the command intended to be used in a cronjob. The evaluator state
(pending candidates, manual triggers, rate-limit counters) is saved between
runs, so a candidate deferred today is emitted by the first run inside
its window.`,
		Args: cobra.NoArgs,
	}
}

// Execute runs one pass.
func (it *RunController) Execute(cmd *cobra.Command, _ []string) error {
	dryRun, _ := cmd.Flags().GetBool("dry-run")
	verbose := applyVerbose(cmd)

	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}

	_, err = it.command.Execute(cmd.Context(), settings, commands.RunOptions{
		DryRun:  dryRun,
		Verbose: verbose,
	})
	return err
}
