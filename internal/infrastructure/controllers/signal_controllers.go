package controllers

import (
	"fmt"

	logger "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/rios0rios0/autopolicy/internal/domain/commands"
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// TriggerController handles the "trigger" subcommand.
type TriggerController struct {
	command commands.Signal
}

// NewTriggerController creates a new TriggerController.
func NewTriggerController(command commands.Signal) *TriggerController {
	return &TriggerController{command: command}
}

// GetBind returns the Cobra command metadata for the trigger controller.
func (it *TriggerController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "trigger <group-or-package>",
		Short: "Flush a group on the next run, outside its rule schedule",
		Long: `Record a manual trigger for a group (or an ungrouped package). The next
run emits it even outside its rule schedule; the global schedule and the
rate limits still apply.`,
		Args: cobra.ExactArgs(1),
	}
}

// Execute records the trigger.
func (it *TriggerController) Execute(cmd *cobra.Command, args []string) error {
	applyVerbose(cmd)
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	if err = it.command.Trigger(cmd.Context(), settings, args[0]); err != nil {
		return err
	}
	logger.Infof("Trigger recorded for %q, it flushes on the next run", args[0])
	return nil
}

// CompleteController handles the "complete" subcommand.
type CompleteController struct {
	command commands.Signal
}

// NewCompleteController creates a new CompleteController.
func NewCompleteController(command commands.Signal) *CompleteController {
	return &CompleteController{command: command}
}

// GetBind returns the Cobra command metadata for the complete controller.
func (it *CompleteController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "complete <change-set>",
		Short: "Mark a change-set as merged or closed",
		Long: `Tell the rate limiter that the change-set (group name or package name)
was merged or closed, freeing its concurrency slot.`,
		Args: cobra.ExactArgs(1),
	}
}

// Execute frees the slot.
func (it *CompleteController) Execute(cmd *cobra.Command, args []string) error {
	applyVerbose(cmd)
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	completed, err := it.command.Complete(cmd.Context(), settings, args[0])
	if err != nil {
		return err
	}
	if completed {
		logger.Infof("Change-set %q completed", args[0])
	}
	return nil
}

// CloseController handles the "close" subcommand.
type CloseController struct {
	command commands.Signal
}

// NewCloseController creates a new CloseController.
func NewCloseController(command commands.Signal) *CloseController {
	return &CloseController{command: command}
}

// GetBind returns the Cobra command metadata for the close controller.
func (it *CloseController) GetBind() entities.ControllerBind {
	return entities.ControllerBind{
		Use:   "close <package>",
		Short: "Veto the pending update of a package",
		Long: `Drop the pending update of a package. The same version is suppressed
when it is discovered again; a newer version is evaluated normally.`,
		Args: cobra.ExactArgs(1),
	}
}

// Execute vetoes the update.
func (it *CloseController) Execute(cmd *cobra.Command, args []string) error {
	applyVerbose(cmd)
	settings, err := loadSettings(cmd)
	if err != nil {
		return err
	}
	decision, closed, err := it.command.Close(cmd.Context(), settings, args[0])
	if err != nil {
		return err
	}
	if !closed {
		return fmt.Errorf("nothing pending for %q", args[0])
	}
	logger.Infof("Closed %s", decision.Candidate())
	return nil
}
