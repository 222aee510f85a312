package entities

import "errors"

var (
	// ErrInvalidWindowSpec is returned when a schedule or time window cannot be resolved.
	ErrInvalidWindowSpec = errors.New("invalid window spec")

	// ErrInvalidRulePredicate is returned when a rule predicate cannot be compiled or evaluated.
	ErrInvalidRulePredicate = errors.New("invalid rule predicate")

	// ErrInvalidPolicy is returned when a policy document fails validation.
	ErrInvalidPolicy = errors.New("invalid policy")

	// ErrInvalidCandidate is returned when an update candidate lacks required data.
	ErrInvalidCandidate = errors.New("invalid update candidate")

	// ErrAmbiguousGroupConflict marks two matched rules assigning different groups.
	// It is only ever logged: the last matching rule wins.
	ErrAmbiguousGroupConflict = errors.New("ambiguous group conflict")
)
