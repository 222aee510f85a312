package entities

import "time"

// LifecycleState is the position of a candidate in the evaluation state machine:
// Discovered -> Matched -> WindowPending -> Ready -> Decided -> Suppressed | Emitted.
type LifecycleState string

const (
	StateDiscovered    LifecycleState = "discovered"
	StateMatched       LifecycleState = "matched"
	StateWindowPending LifecycleState = "window-pending"
	StateReady         LifecycleState = "ready"
	StateDecided       LifecycleState = "decided"
	StateSuppressed    LifecycleState = "suppressed"
	StateEmitted       LifecycleState = "emitted"
)

// TrackedCandidate is a candidate the evaluator still holds between ticks.
type TrackedCandidate struct {
	Candidate   UpdateCandidate `json:"candidate"`
	State       LifecycleState  `json:"state"`
	GroupName   string          `json:"groupName,omitempty"`
	FirstSeenAt time.Time       `json:"firstSeenAt"`

	// NeverOverlapWarned remembers that the "windows never coincide" warning was logged.
	NeverOverlapWarned bool `json:"neverOverlapWarned,omitempty"`
}

// LimiterState is the persisted form of the rate limiter counters.
type LimiterState struct {
	HourStart       time.Time `json:"hourStart"`
	CreatedThisHour int       `json:"createdThisHour"`
	Open            []string  `json:"open"`
}

// EvaluatorState is everything the evaluator keeps between ticks: pending
// candidates, manual triggers not yet consumed, closed package versions and the
// limiter counters.
type EvaluatorState struct {
	Pending  []TrackedCandidate `json:"pending"`
	Triggers []string           `json:"triggers"`
	Closed   []string           `json:"closed,omitempty"`
	Limiter  LimiterState       `json:"limiter"`
	SavedAt  time.Time          `json:"savedAt"`
}
