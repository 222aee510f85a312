package entities

import "github.com/spf13/cobra"

// ControllerBind carries the Cobra metadata a controller exposes.
type ControllerBind struct {
	Use   string
	Short string
	Long  string
	Args  cobra.PositionalArgs
}

// Controller is a CLI entry point built into a Cobra subcommand.
type Controller interface {
	GetBind() ControllerBind
	Execute(cmd *cobra.Command, args []string) error
}

// FlagBinder is implemented by controllers that declare their own flags.
type FlagBinder interface {
	AddFlags(cmd *cobra.Command)
}
