package controllers

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// RegisterProviders registers all controller providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register controller constructors
	for _, constructor := range []interface{}{
		NewRunController,
		NewServeController,
		NewValidateController,
		NewExplainController,
		NewTriggerController,
		NewCompleteController,
		NewCloseController,
		NewControllers,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	return nil
}

// NewControllers aggregates all controllers into a slice for the AppInternal.
func NewControllers(
	runController *RunController,
	serveController *ServeController,
	validateController *ValidateController,
	explainController *ExplainController,
	triggerController *TriggerController,
	completeController *CompleteController,
	closeController *CloseController,
) *[]entities.Controller {
	return &[]entities.Controller{
		runController,
		serveController,
		validateController,
		explainController,
		triggerController,
		completeController,
		closeController,
	}
}
