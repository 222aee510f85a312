package discovery

import (
	"context"
	"slices"
	"sync"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

const queueName = "queue"

// MemoryQueueRepository is a discovery source fed in-process, by the control API.
// Candidates handed out by Discover are redelivered until acknowledged.
type MemoryQueueRepository struct {
	mu       sync.Mutex
	queued   []entities.UpdateCandidate
	inflight []entities.UpdateCandidate
}

var _ repositories.CandidateQueue = (*MemoryQueueRepository)(nil)

// NewMemoryQueueRepository creates an empty queue.
func NewMemoryQueueRepository() *MemoryQueueRepository {
	return &MemoryQueueRepository{}
}

func (it *MemoryQueueRepository) Name() string { return queueName }

// Enqueue adds candidates for the next Discover.
func (it *MemoryQueueRepository) Enqueue(candidates ...entities.UpdateCandidate) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.queued = append(it.queued, candidates...)
}

// Discover moves every queued candidate in flight and returns all in-flight ones.
func (it *MemoryQueueRepository) Discover(_ context.Context) ([]entities.UpdateCandidate, error) {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.inflight = append(it.inflight, it.queued...)
	it.queued = nil
	return slices.Clone(it.inflight), nil
}

// Acknowledge drops the in-flight candidates.
func (it *MemoryQueueRepository) Acknowledge(_ context.Context) error {
	it.mu.Lock()
	defer it.mu.Unlock()
	it.inflight = nil
	return nil
}

// Len returns how many candidates wait for discovery, in flight included.
func (it *MemoryQueueRepository) Len() int {
	it.mu.Lock()
	defer it.mu.Unlock()
	return len(it.queued) + len(it.inflight)
}
