package repositories

import (
	"go.uber.org/dig"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	domainRepos "github.com/rios0rios0/autopolicy/internal/domain/repositories"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/discovery"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/execution"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/metrics"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/policy"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/state"
)

// RegisterProviders registers all repository providers with the DIG container.
func RegisterProviders(container *dig.Container) error {
	// Register discovery registry with all discovery factories
	if err := container.Provide(func() *DiscoveryRegistry {
		reg := NewDiscoveryRegistry()
		reg.Register(entities.DiscoveryFile, discovery.NewFileDiscoveryFromSettings)
		return reg
	}); err != nil {
		return err
	}

	// Register execution registry with all executor factories
	if err := container.Provide(func() *ExecutionRegistry {
		reg := NewExecutionRegistry()
		reg.Register(entities.ExecutorOutbox, execution.NewOutboxExecutionFromSettings)
		reg.Register(entities.ExecutorLog, execution.NewLogExecutionFromSettings)
		return reg
	}); err != nil {
		return err
	}

	// In-process candidate queue fed by the control API
	if err := container.Provide(func() domainRepos.CandidateQueue {
		return discovery.NewMemoryQueueRepository()
	}); err != nil {
		return err
	}

	if err := container.Provide(func() domainRepos.StateRepositoryFactory {
		return state.NewCBORStateRepository
	}); err != nil {
		return err
	}
	if err := container.Provide(policy.NewFilePolicyRepository); err != nil {
		return err
	}

	// Metrics: the concrete type serves /metrics, the interface records ticks
	if err := container.Provide(metrics.NewPrometheusMetricsRepository); err != nil {
		return err
	}
	if err := container.Provide(func(impl *metrics.PrometheusMetricsRepository) domainRepos.MetricsRepository {
		return impl
	}); err != nil {
		return err
	}

	return nil
}
