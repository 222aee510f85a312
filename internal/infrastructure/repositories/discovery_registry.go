package repositories

import (
	"fmt"
	"sort"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	domainRepos "github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// DiscoveryFactory is a constructor function that creates a DiscoveryRepository from the runtime settings.
type DiscoveryFactory func(settings *entities.Settings) domainRepos.DiscoveryRepository

// DiscoveryRegistry manages all registered discovery sources.
type DiscoveryRegistry struct {
	sources map[string]DiscoveryFactory
}

// NewDiscoveryRegistry creates an empty discovery registry.
func NewDiscoveryRegistry() *DiscoveryRegistry {
	return &DiscoveryRegistry{
		sources: make(map[string]DiscoveryFactory),
	}
}

// Register adds a discovery factory under the given name (e.g. "file").
func (r *DiscoveryRegistry) Register(name string, factory DiscoveryFactory) {
	r.sources[name] = factory
}

// Get returns a configured discovery source for the given name.
func (r *DiscoveryRegistry) Get(name string, settings *entities.Settings) (domainRepos.DiscoveryRepository, error) {
	factory, ok := r.sources[name]
	if !ok {
		return nil, fmt.Errorf("unknown discovery type: %q", name)
	}
	return factory(settings), nil
}

// Names returns the sorted list of registered discovery names.
func (r *DiscoveryRegistry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for name := range r.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
