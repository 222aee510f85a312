package state

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fxamacker/cbor/v2"
	logger "github.com/sirupsen/logrus"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

var (
	encMode cbor.EncMode //nolint:gochecknoglobals // immutable codec configuration
	decMode cbor.DecMode //nolint:gochecknoglobals // immutable codec configuration
)

func init() {
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// timestamps keep their nanoseconds and offset
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("state: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("state: CBOR decoder initialization failed: " + err.Error())
	}
}

// CBORStateRepository stores the evaluator state as one CBOR document on disk.
// Saves go through a temporary file and a rename, so a crash never leaves a
// truncated snapshot behind.
type CBORStateRepository struct {
	path string
}

var _ repositories.StateRepository = (*CBORStateRepository)(nil)

// NewCBORStateRepository creates a store at path.
func NewCBORStateRepository(path string) repositories.StateRepository {
	return &CBORStateRepository{path: path}
}

func (it *CBORStateRepository) Load(_ context.Context) (entities.EvaluatorState, error) {
	data, err := os.ReadFile(it.path)
	if errors.Is(err, os.ErrNotExist) {
		logger.Debugf("No saved state at %q, starting empty", it.path)
		return entities.EvaluatorState{}, nil
	}
	if err != nil {
		return entities.EvaluatorState{}, fmt.Errorf("failed to read state %q: %w", it.path, err)
	}

	var state entities.EvaluatorState
	if err = decMode.Unmarshal(data, &state); err != nil {
		return entities.EvaluatorState{}, fmt.Errorf("failed to decode state %q: %w", it.path, err)
	}
	return state, nil
}

func (it *CBORStateRepository) Save(_ context.Context, state entities.EvaluatorState) error {
	data, err := encMode.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to encode state: %w", err)
	}

	dir := filepath.Dir(it.path)
	if err = os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(it.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary state file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err = os.Rename(tmp.Name(), it.path); err != nil {
		return fmt.Errorf("failed to replace state %q: %w", it.path, err)
	}
	return nil
}
