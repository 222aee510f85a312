package execution

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// OutboxExecutionRepository appends every emitted decision as one JSON line to the
// outbox file. A downstream job (the pull-request bot) tails it and replies with
// completion signals.
type OutboxExecutionRepository struct {
	mu   sync.Mutex
	path string
}

var _ repositories.ExecutionRepository = (*OutboxExecutionRepository)(nil)

// NewOutboxExecutionRepository creates an executor writing to path.
func NewOutboxExecutionRepository(path string) *OutboxExecutionRepository {
	return &OutboxExecutionRepository{path: path}
}

// NewOutboxExecutionFromSettings builds the outbox executor configured in settings.
func NewOutboxExecutionFromSettings(settings *entities.Settings) repositories.ExecutionRepository {
	return NewOutboxExecutionRepository(settings.OutboxPath)
}

func (it *OutboxExecutionRepository) Name() string { return entities.ExecutorOutbox }

func (it *OutboxExecutionRepository) Execute(ctx context.Context, decision entities.Decision) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision %q: %w", decision.Key, err)
	}

	it.mu.Lock()
	defer it.mu.Unlock()

	if err = os.MkdirAll(filepath.Dir(it.path), 0o750); err != nil {
		return fmt.Errorf("failed to create outbox directory: %w", err)
	}
	file, err := os.OpenFile(it.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open outbox %q: %w", it.path, err)
	}
	defer file.Close()

	if _, err = file.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("failed to write outbox %q: %w", it.path, err)
	}
	return nil
}
