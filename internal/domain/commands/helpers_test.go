//go:build unit

package commands_test

import (
	"time"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
	infraRepos "github.com/rios0rios0/autopolicy/internal/infrastructure/repositories"
	builders "github.com/rios0rios0/autopolicy/test/domain/entitybuilders"
	doubles "github.com/rios0rios0/autopolicy/test/infrastructure/repositorydoubles"
)

const spyName = "spy"

// March 2026 in Dublin: the 3rd is a Tuesday, the 5th the first Thursday.
func dublin(day, hour, minute int) time.Time {
	return time.Date(2026, time.March, day, hour, minute, 0, 0, builders.Dublin)
}

func testSettings() *entities.Settings {
	return &entities.Settings{
		PolicyPath:   "policy.yaml",
		StatePath:    "state.cbor",
		Discovery:    spyName,
		Executor:     spyName,
		TickInterval: time.Minute,
	}
}

func npmCandidate(name string, detectedAt time.Time) entities.UpdateCandidate {
	return builders.NewCandidateBuilder().
		WithPackageName(name).
		WithDetectedAt(detectedAt).
		BuildCandidate()
}

func goCandidate(name string, detectedAt time.Time) entities.UpdateCandidate {
	return builders.NewCandidateBuilder().
		WithPackageName(name).
		WithManager(entities.ManagerGoMod).
		WithDepType("require").
		WithUpdateType(entities.UpdatePatch).
		WithVersions("v1.2.0", "v1.2.1").
		WithDetectedAt(detectedAt).
		BuildCandidate()
}

func discoveryRegistry(source *doubles.SpyDiscoveryRepository) *infraRepos.DiscoveryRegistry {
	registry := infraRepos.NewDiscoveryRegistry()
	registry.Register(spyName, func(_ *entities.Settings) repositories.DiscoveryRepository {
		return source
	})
	return registry
}

func executionRegistry(executor, dryRun *doubles.SpyExecutionRepository) *infraRepos.ExecutionRegistry {
	registry := infraRepos.NewExecutionRegistry()
	registry.Register(spyName, func(_ *entities.Settings) repositories.ExecutionRepository {
		return executor
	})
	registry.Register(entities.ExecutorLog, func(_ *entities.Settings) repositories.ExecutionRepository {
		return dryRun
	})
	return registry
}
