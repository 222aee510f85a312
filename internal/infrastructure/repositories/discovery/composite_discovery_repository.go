package discovery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// CompositeDiscoveryRepository merges several discovery sources. A failing source
// does not hide the candidates of the others, nor the ones it returned with its error.
type CompositeDiscoveryRepository struct {
	sources []repositories.DiscoveryRepository
}

var _ repositories.DiscoveryRepository = (*CompositeDiscoveryRepository)(nil)

// NewCompositeDiscoveryRepository combines sources in the given order.
func NewCompositeDiscoveryRepository(sources ...repositories.DiscoveryRepository) *CompositeDiscoveryRepository {
	return &CompositeDiscoveryRepository{sources: sources}
}

func (it *CompositeDiscoveryRepository) Name() string {
	names := make([]string, 0, len(it.sources))
	for _, source := range it.sources {
		names = append(names, source.Name())
	}
	return strings.Join(names, "+")
}

func (it *CompositeDiscoveryRepository) Discover(ctx context.Context) ([]entities.UpdateCandidate, error) {
	var all []entities.UpdateCandidate
	var errs []error
	for _, source := range it.sources {
		candidates, err := source.Discover(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		}
		all = append(all, candidates...)
	}
	return all, errors.Join(errs...)
}

func (it *CompositeDiscoveryRepository) Acknowledge(ctx context.Context) error {
	var errs []error
	for _, source := range it.sources {
		if err := source.Acknowledge(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", source.Name(), err))
		}
	}
	return errors.Join(errs...)
}
