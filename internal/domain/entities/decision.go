package entities

import (
	"time"
)

// Action is what the execution collaborator should do with a change-set.
type Action string

const (
	ActionSuppress         Action = "suppress"
	ActionOpenPullRequest  Action = "open-pull-request"
	ActionOpenAndAutomerge Action = "open-and-automerge"
	ActionMergeImmediately Action = "merge-immediately"
)

// SuppressReason explains a terminal veto.
type SuppressReason string

const (
	SuppressSuperseded       SuppressReason = "superseded"
	SuppressClosed           SuppressReason = "closed"
	SuppressDisabled         SuppressReason = "disabled"
	SuppressInvalidCandidate SuppressReason = "invalid-candidate"
	SuppressPredicateError   SuppressReason = "predicate-error"
)

// DeferReason explains why a ready or pending unit was not emitted on this tick.
type DeferReason string

const (
	DeferWindow     DeferReason = "window"
	DeferReleaseAge DeferReason = "release-age"
	DeferRateLimit  DeferReason = "rate-limit"
)

// Decision is the outcome of evaluating a candidate, or a whole group, against a
// policy snapshot. It is derived on every pass and never stored.
type Decision struct {
	// Key identifies the change-set: the group name for groups, the package name otherwise.
	Key           string            `json:"key"`
	Candidates    []UpdateCandidate `json:"candidates"`
	Action        Action            `json:"action"`
	Automerge     bool              `json:"automerge"`
	AutomergeMode AutomergeMode     `json:"automergeMode"`
	Schedule      []string          `json:"schedule,omitempty"`
	GroupName     string            `json:"groupName,omitempty"`
	Labels        []string          `json:"labels,omitempty"`
	Priority      int               `json:"priority,omitempty"`
	MatchedRules  []string          `json:"matchedRules,omitempty"`
	Suppression   SuppressReason    `json:"suppression,omitempty"`
	Reason        string            `json:"reason,omitempty"`
	DecidedAt     time.Time         `json:"decidedAt"`

	// State is where the decision leaves its candidates: Suppressed, Emitted, or
	// Decided and WindowPending for the answers of Explain.
	State LifecycleState `json:"state,omitempty"`

	// Reserved marks an emitted change-set that took fresh limiter capacity, as
	// opposed to an update of one that was already open.
	Reserved bool `json:"-"`

	// Ready and NextActive are filled by Explain: whether the unit could be emitted
	// at DecidedAt and, if not, when the windows next coincide.
	Ready         bool      `json:"ready"`
	NextActive    time.Time `json:"nextActive,omitzero"`
	NeverOverlaps bool      `json:"neverOverlaps,omitempty"`
}

// Candidate returns the first candidate covered by the decision.
func (d Decision) Candidate() UpdateCandidate {
	if len(d.Candidates) == 0 {
		return UpdateCandidate{}
	}
	return d.Candidates[0]
}

// PackageNames lists the packages covered by the decision.
func (d Decision) PackageNames() []string {
	names := make([]string, 0, len(d.Candidates))
	for _, candidate := range d.Candidates {
		names = append(names, candidate.PackageName)
	}
	return names
}

// Deferral records a unit that stays pending after a tick.
type Deferral struct {
	Key           string      `json:"key"`
	GroupName     string      `json:"groupName,omitempty"`
	PackageNames  []string    `json:"packageNames"`
	Reason        DeferReason `json:"reason"`
	NextActive    time.Time   `json:"nextActive,omitzero"`
	NeverOverlaps bool        `json:"neverOverlaps,omitempty"`
}

// TickResult summarises one evaluation pass.
type TickResult struct {
	Tick       time.Time
	Emitted    []Decision
	Suppressed []Decision
	Deferred   []Deferral
	Pending    int
	Failed     int
}
