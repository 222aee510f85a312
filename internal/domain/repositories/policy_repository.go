package repositories

import "github.com/rios0rios0/autopolicy/internal/domain/entities"

// PolicyRepository loads and validates a policy document. Every structural problem
// (unknown fields, malformed windows, invalid predicates) is reported here, never
// at evaluation time.
type PolicyRepository interface {
	Load(path string) (*entities.Policy, error)
}
