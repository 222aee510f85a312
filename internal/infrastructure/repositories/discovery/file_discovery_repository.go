package discovery

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	logger "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

const (
	processingSuffix = ".processing"
	rejectedSuffix   = ".rejected"
)

// FileDiscoveryRepository reads candidates from an inbox file written by an
// external scanner. The file holds a YAML (or JSON) list of candidates.
// Discover claims the inbox by renaming it, so the scanner can keep writing a
// fresh one; Acknowledge deletes the claimed copy. An inbox that is not a
// candidate list at all is moved aside to "<inbox>.rejected" instead.
type FileDiscoveryRepository struct {
	path string
}

var _ repositories.DiscoveryRepository = (*FileDiscoveryRepository)(nil)

// NewFileDiscoveryRepository creates a discovery source over the inbox at path.
func NewFileDiscoveryRepository(path string) *FileDiscoveryRepository {
	return &FileDiscoveryRepository{path: path}
}

// NewFileDiscoveryFromSettings builds the inbox source configured in settings.
func NewFileDiscoveryFromSettings(settings *entities.Settings) repositories.DiscoveryRepository {
	return NewFileDiscoveryRepository(settings.InboxPath)
}

func (it *FileDiscoveryRepository) Name() string { return entities.DiscoveryFile }

// Discover returns the candidates of a previously claimed but unacknowledged
// inbox followed by the current inbox. The candidates read so far are returned
// together with the error of an unreadable inbox.
func (it *FileDiscoveryRepository) Discover(_ context.Context) ([]entities.UpdateCandidate, error) {
	claimed := it.path + processingSuffix

	if _, err := os.Stat(claimed); err == nil {
		logger.Warnf("Re-reading unacknowledged inbox %q", claimed)
		previous, readErr := it.readInbox(claimed)
		if readErr != nil {
			return nil, readErr
		}

		current, readErr := it.readInbox(it.path)
		switch {
		case errors.Is(readErr, os.ErrNotExist):
			return previous, nil
		case readErr != nil:
			return previous, readErr
		}
		if err = appendFile(claimed, it.path); err != nil {
			return nil, err
		}
		return append(previous, current...), nil
	}

	if err := os.Rename(it.path, claimed); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Debugf("Inbox %q is empty", it.path)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to claim inbox %q: %w", it.path, err)
	}
	return it.readInbox(claimed)
}

// Acknowledge deletes the claimed inbox.
func (it *FileDiscoveryRepository) Acknowledge(_ context.Context) error {
	err := os.Remove(it.path + processingSuffix)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to acknowledge inbox %q: %w", it.path, err)
	}
	return nil
}

// readInbox reads the candidates of path, moving the file aside when it does not
// parse so the next acknowledgement cannot delete it.
func (it *FileDiscoveryRepository) readInbox(path string) ([]entities.UpdateCandidate, error) {
	candidates, err := readCandidates(path)
	if err == nil || !errors.Is(err, entities.ErrInvalidCandidate) {
		return candidates, err
	}

	rejected := it.path + rejectedSuffix
	moveErr := appendFile(rejected, path)
	if errors.Is(moveErr, os.ErrNotExist) {
		moveErr = os.Rename(path, rejected)
	}
	if moveErr != nil {
		return nil, errors.Join(err, fmt.Errorf("failed to set aside inbox %q: %w", path, moveErr))
	}
	logger.Errorf("Inbox %q is not a candidate list, kept as %q: %v", path, rejected, err)
	return nil, err
}

// ParseCandidates decodes a YAML or JSON candidate list. Several YAML documents in
// one stream are concatenated. Each record is decoded strictly on its own: a record
// with unknown fields or mistyped values comes back with Rejection set, so it is
// suppressed with the reason while the rest of the list goes through. Only input
// that is not a list at all fails as a whole.
func ParseCandidates(data []byte) ([]entities.UpdateCandidate, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))

	var candidates []entities.UpdateCandidate
	for {
		var document yaml.Node
		err := decoder.Decode(&document)
		if errors.Is(err, io.EOF) {
			return candidates, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", entities.ErrInvalidCandidate, err)
		}

		list := &document
		if list.Kind == yaml.DocumentNode && len(list.Content) > 0 {
			list = list.Content[0]
		}
		switch {
		case list.Kind == yaml.ScalarNode && list.Tag == "!!null":
			continue
		case list.Kind != yaml.SequenceNode:
			return nil, fmt.Errorf("%w: line %d: expected a list of candidates", entities.ErrInvalidCandidate, list.Line)
		}
		for _, item := range list.Content {
			candidates = append(candidates, decodeCandidate(item))
		}
	}
}

func decodeCandidate(item *yaml.Node) entities.UpdateCandidate {
	var candidate entities.UpdateCandidate
	err := decodeStrict(item, &candidate)
	if err == nil {
		return candidate
	}

	// keep whatever fits so the suppression names the package
	candidate = entities.UpdateCandidate{}
	_ = item.Decode(&candidate)
	candidate.Rejection = fmt.Sprintf("line %d: %v", item.Line, err)
	return candidate
}

func decodeStrict(item *yaml.Node, out any) error {
	raw, err := yaml.Marshal(item)
	if err != nil {
		return err
	}
	decoder := yaml.NewDecoder(bytes.NewReader(raw))
	decoder.KnownFields(true)
	return decoder.Decode(out)
}

func readCandidates(path string) ([]entities.UpdateCandidate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	candidates, err := ParseCandidates(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse inbox %q: %w", path, err)
	}
	return candidates, nil
}

// appendFile moves the content of src at the end of dst and removes src.
func appendFile(dst, src string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	file, err := os.OpenFile(dst, os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer file.Close()

	if _, err = file.Write(append([]byte("\n---\n"), data...)); err != nil {
		return err
	}
	return os.Remove(src)
}
