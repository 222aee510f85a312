package entities

import (
	"go.uber.org/dig"
)

// RegisterProviders registers all entity providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Settings requires a config file path, provided by controllers layer
	if err := container.Provide(func() Clock {
		return NewSystemClock()
	}); err != nil {
		return err
	}

	return nil
}
