package repositories

import (
	"context"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
)

// DiscoveryRepository abstracts the external process that detects available
// dependency updates (registry scanning, manifest parsing, version graphs).
// The evaluator only consumes the resulting candidates.
type DiscoveryRepository interface {
	// Name returns the discovery source identifier (e.g. "file", "queue").
	Name() string

	// Discover returns the candidates detected since the last acknowledgement.
	Discover(ctx context.Context) ([]entities.UpdateCandidate, error)

	// Acknowledge marks everything returned by the last Discover as consumed, so a
	// later Discover never hands the same candidates out twice.
	Acknowledge(ctx context.Context) error
}

// CandidateQueue is a discovery source fed by callers in the same process.
type CandidateQueue interface {
	DiscoveryRepository

	// Enqueue adds candidates for the next Discover.
	Enqueue(candidates ...entities.UpdateCandidate)
}
