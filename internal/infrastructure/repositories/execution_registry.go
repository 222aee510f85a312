package repositories

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	domainRepos "github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// ExecutionFactory is a constructor function that creates an ExecutionRepository from the runtime settings.
type ExecutionFactory func(settings *entities.Settings) domainRepos.ExecutionRepository

// ExecutionRegistry manages all registered executors.
type ExecutionRegistry struct {
	executors map[string]ExecutionFactory
}

// NewExecutionRegistry creates an empty executor registry.
func NewExecutionRegistry() *ExecutionRegistry {
	return &ExecutionRegistry{
		executors: make(map[string]ExecutionFactory),
	}
}

// Register adds an executor factory under the given name (e.g. "outbox").
func (r *ExecutionRegistry) Register(name string, factory ExecutionFactory) {
	r.executors[name] = factory
}

// Get returns a configured executor for the given name.
func (r *ExecutionRegistry) Get(name string, settings *entities.Settings) (domainRepos.ExecutionRepository, error) {
	factory, ok := r.executors[name]
	if !ok {
		return nil, fmt.Errorf("unknown executor type: %q", name)
	}
	return factory(settings), nil
}

// Names returns the sorted list of registered executor names.
func (r *ExecutionRegistry) Names() []string {
	names := make([]string, 0, len(r.executors))
	for name := range r.executors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
