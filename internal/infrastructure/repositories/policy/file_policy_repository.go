package policy

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// FilePolicyRepository loads policy documents from disk. The format follows the
// file extension: YAML, JSON with comments (json, jsonc, json5) or HCL.
type FilePolicyRepository struct{}

// NewFilePolicyRepository creates a new file-backed policy repository.
func NewFilePolicyRepository() repositories.PolicyRepository {
	return &FilePolicyRepository{}
}

// Load reads, decodes and compiles the policy at path.
func (it *FilePolicyRepository) Load(path string) (*entities.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read policy %q: %w", path, err)
	}

	policy, err := Parse(filepath.Base(path), data)
	if err != nil {
		return nil, fmt.Errorf("policy %q: %w", path, err)
	}
	logger.Debugf("Loaded policy %q with %d rules", path, len(policy.Rules))
	return policy, nil
}

// Parse decodes data in the format implied by the extension of filename.
func Parse(filename string, data []byte) (*entities.Policy, error) {
	var (
		doc *document
		err error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".yaml", ".yml":
		doc, err = decodeYAML(data)
	case ".json", ".jsonc", ".json5":
		doc, err = decodeYAML(normalizeJSON(data))
	case ".hcl":
		doc, err = decodeHCL(filename, data)
	default:
		return nil, fmt.Errorf("%w: unsupported policy format %q", entities.ErrInvalidPolicy, ext)
	}
	if err != nil {
		return nil, err
	}
	return compile(doc)
}

func decodeYAML(data []byte) (*document, error) {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)

	var doc document
	if err := decoder.Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: empty document", entities.ErrInvalidPolicy)
		}
		return nil, fmt.Errorf("%w: %w", entities.ErrInvalidPolicy, err)
	}
	return &doc, nil
}

// normalizeJSON strips comments and trailing commas. JSON is a subset of YAML flow
// syntax once tabs, which JSON only allows between tokens, become spaces.
func normalizeJSON(data []byte) []byte {
	return bytes.ReplaceAll(jsonc.ToJSON(data), []byte("\t"), []byte(" "))
}
