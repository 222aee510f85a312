package execution

import (
	"context"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// LogExecutionRepository only logs decisions. It backs --dry-run.
type LogExecutionRepository struct{}

var _ repositories.ExecutionRepository = (*LogExecutionRepository)(nil)

func NewLogExecutionRepository() *LogExecutionRepository {
	return &LogExecutionRepository{}
}

// NewLogExecutionFromSettings ignores settings; it matches the registry factory signature.
func NewLogExecutionFromSettings(_ *entities.Settings) repositories.ExecutionRepository {
	return NewLogExecutionRepository()
}

func (it *LogExecutionRepository) Name() string { return entities.ExecutorLog }

func (it *LogExecutionRepository) Execute(_ context.Context, decision entities.Decision) error {
	logger.WithFields(logger.Fields{
		"key":      decision.Key,
		"action":   decision.Action,
		"group":    decision.GroupName,
		"labels":   strings.Join(decision.Labels, ","),
		"priority": decision.Priority,
	}).Infof("[DRY RUN] Would %s for %s", decision.Action, strings.Join(decision.PackageNames(), ", "))
	return nil
}
