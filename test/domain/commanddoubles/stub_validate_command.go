//go:build integration || unit || test

package commanddoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/autopolicy/internal/domain/commands"
)

// StubValidateCommand is a stub implementation of commands.Validate.
type StubValidateCommand struct {
	Report    commands.ValidationReport
	Err       error
	LastPaths []string
}

var _ commands.Validate = (*StubValidateCommand)(nil)

func (s *StubValidateCommand) Execute(path string) (commands.ValidationReport, error) {
	s.LastPaths = append(s.LastPaths, path)
	return s.Report, s.Err
}
