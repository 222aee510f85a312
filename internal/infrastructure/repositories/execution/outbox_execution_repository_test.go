//go:build unit

package execution_test

import (
	"bufio"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/infrastructure/repositories/execution"
)

func jsDecision() entities.Decision {
	return entities.Decision{
		Key: "JS prod dependencies",
		Candidates: []entities.UpdateCandidate{{
			ID:               "c1",
			Manager:          entities.ManagerNPM,
			PackageName:      "react",
			CandidateVersion: "18.3.1",
			DetectedAt:       time.Date(2026, time.March, 3, 9, 0, 0, 0, time.UTC),
		}},
		Action:        entities.ActionOpenAndAutomerge,
		Automerge:     true,
		AutomergeMode: entities.AutomergePR,
		GroupName:     "JS prod dependencies",
		Labels:        []string{"dependencies"},
		DecidedAt:     time.Date(2026, time.March, 3, 9, 30, 0, 0, time.UTC),
		Ready:         true,
	}
}

func readLines(t *testing.T, path string) []entities.Decision {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	var decisions []entities.Decision
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		var decision entities.Decision
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &decision))
		decisions = append(decisions, decision)
	}
	require.NoError(t, scanner.Err())
	return decisions
}

func TestOutboxExecutionRepository(t *testing.T) {
	t.Parallel()

	t.Run("should append one JSON line per decision", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "out", "decisions.jsonl")
		repo := execution.NewOutboxExecutionRepository(path)

		// when
		require.NoError(t, repo.Execute(context.Background(), jsDecision()))
		require.NoError(t, repo.Execute(context.Background(), jsDecision()))

		// then
		decisions := readLines(t, path)
		require.Len(t, decisions, 2)
		assert.Equal(t, "JS prod dependencies", decisions[0].Key)
		assert.Equal(t, entities.ActionOpenAndAutomerge, decisions[0].Action)
		assert.Equal(t, []string{"react"}, decisions[1].PackageNames())
	})

	t.Run("should refuse to write once the context is cancelled", func(t *testing.T) {
		t.Parallel()

		// given
		path := filepath.Join(t.TempDir(), "decisions.jsonl")
		repo := execution.NewOutboxExecutionRepository(path)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		// when
		err := repo.Execute(ctx, jsDecision())

		// then
		require.ErrorIs(t, err, context.Canceled)
		assert.NoFileExists(t, path)
	})

	t.Run("should name the executors after their settings value", func(t *testing.T) {
		t.Parallel()

		// given
		settings := &entities.Settings{OutboxPath: filepath.Join(t.TempDir(), "decisions.jsonl")}

		// when
		outbox := execution.NewOutboxExecutionFromSettings(settings)
		dryRun := execution.NewLogExecutionFromSettings(settings)

		// then
		assert.Equal(t, entities.ExecutorOutbox, outbox.Name())
		assert.Equal(t, entities.ExecutorLog, dryRun.Name())
		require.NoError(t, dryRun.Execute(context.Background(), jsDecision()))
		assert.NoFileExists(t, settings.OutboxPath)
	})
}
