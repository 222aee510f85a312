package commands

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all command providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register command constructors
	for _, constructor := range []interface{}{
		NewRunCommand,
		NewServeCommand,
		NewSignalCommand,
		NewValidateCommand,
		NewExplainCommand,
	} {
		if err := container.Provide(constructor); err != nil {
			return err
		}
	}

	// Bind interfaces to implementations
	if err := container.Provide(func(impl *RunCommand) Run {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ServeCommand) Serve {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *SignalCommand) Signal {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ValidateCommand) Validate {
		return impl
	}); err != nil {
		return err
	}
	if err := container.Provide(func(impl *ExplainCommand) Explain {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
