//go:build integration || unit || test

package repositorydoubles //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	"github.com/rios0rios0/autopolicy/internal/domain/repositories"
)

// StubPolicyRepository returns a fixed policy.
type StubPolicyRepository struct {
	Policy    *entities.Policy
	LoadErr   error
	LoadPaths []string
}

var _ repositories.PolicyRepository = (*StubPolicyRepository)(nil)

func (s *StubPolicyRepository) Load(path string) (*entities.Policy, error) {
	s.LoadPaths = append(s.LoadPaths, path)
	if s.LoadErr != nil {
		return nil, s.LoadErr
	}
	return s.Policy, nil
}
