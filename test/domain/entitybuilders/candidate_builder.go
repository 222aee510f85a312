//go:build integration || unit || test

package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	"time"

	"github.com/rios0rios0/autopolicy/internal/domain/entities"
	testkit "github.com/rios0rios0/testkit/pkg/test"
)

// DefaultDetectedAt is the detection time candidates get unless overridden.
var DefaultDetectedAt = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC) //nolint:gochecknoglobals // test fixture

// CandidateBuilder helps create test update candidates with a fluent interface.
type CandidateBuilder struct {
	*testkit.BaseBuilder
	id                 string
	manager            entities.Manager
	depType            string
	updateType         entities.UpdateType
	packageName        string
	currentVersion     string
	candidateVersion   string
	detectedAt         time.Time
	releasedAt         time.Time
	vulnerabilityAlert bool
}

// NewCandidateBuilder creates a new candidate builder with sensible defaults.
func NewCandidateBuilder() *CandidateBuilder {
	b := &CandidateBuilder{BaseBuilder: testkit.NewBaseBuilder()}
	b.defaults()
	return b
}

func (b *CandidateBuilder) defaults() {
	b.id = ""
	b.manager = entities.ManagerNPM
	b.depType = "dependencies"
	b.updateType = entities.UpdateMinor
	b.packageName = "left-pad"
	b.currentVersion = "1.0.0"
	b.candidateVersion = "1.1.0"
	b.detectedAt = DefaultDetectedAt
	b.releasedAt = time.Time{}
	b.vulnerabilityAlert = false
}

// WithID sets the candidate id.
func (b *CandidateBuilder) WithID(id string) *CandidateBuilder {
	b.id = id
	return b
}

// WithManager sets the package manager.
func (b *CandidateBuilder) WithManager(manager entities.Manager) *CandidateBuilder {
	b.manager = manager
	return b
}

// WithDepType sets the dependency type.
func (b *CandidateBuilder) WithDepType(depType string) *CandidateBuilder {
	b.depType = depType
	return b
}

// WithUpdateType sets the update type.
func (b *CandidateBuilder) WithUpdateType(updateType entities.UpdateType) *CandidateBuilder {
	b.updateType = updateType
	return b
}

// WithPackageName sets the package name.
func (b *CandidateBuilder) WithPackageName(name string) *CandidateBuilder {
	b.packageName = name
	return b
}

// WithVersions sets the current and candidate versions.
func (b *CandidateBuilder) WithVersions(current, candidate string) *CandidateBuilder {
	b.currentVersion = current
	b.candidateVersion = candidate
	return b
}

// WithDetectedAt sets the detection time.
func (b *CandidateBuilder) WithDetectedAt(at time.Time) *CandidateBuilder {
	b.detectedAt = at
	return b
}

// WithReleasedAt sets the release time.
func (b *CandidateBuilder) WithReleasedAt(at time.Time) *CandidateBuilder {
	b.releasedAt = at
	return b
}

// WithVulnerabilityAlert flags the candidate as a security fix.
func (b *CandidateBuilder) WithVulnerabilityAlert(alert bool) *CandidateBuilder {
	b.vulnerabilityAlert = alert
	return b
}

// Build creates the candidate (satisfies testkit.Builder interface).
func (b *CandidateBuilder) Build() interface{} {
	return b.BuildCandidate()
}

// BuildCandidate creates the candidate with a concrete return type.
func (b *CandidateBuilder) BuildCandidate() entities.UpdateCandidate {
	return entities.UpdateCandidate{
		ID:                 b.id,
		Manager:            b.manager,
		DepType:            b.depType,
		UpdateType:         b.updateType,
		PackageName:        b.packageName,
		CurrentVersion:     b.currentVersion,
		CandidateVersion:   b.candidateVersion,
		DetectedAt:         b.detectedAt,
		ReleasedAt:         b.releasedAt,
		VulnerabilityAlert: b.vulnerabilityAlert,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *CandidateBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.defaults()
	return b
}

// Clone creates a deep copy of the CandidateBuilder.
func (b *CandidateBuilder) Clone() testkit.Builder {
	clone := *b
	clone.BaseBuilder = b.BaseBuilder.Clone().(*testkit.BaseBuilder)
	return &clone
}
