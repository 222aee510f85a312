package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Manager identifies the package manager that detected a candidate (e.g. "npm", "gomod").
type Manager string

const (
	ManagerNPM           Manager = "npm"
	ManagerPNPM          Manager = "pnpm"
	ManagerYarn          Manager = "yarn"
	ManagerGoMod         Manager = "gomod"
	ManagerDockerfile    Manager = "dockerfile"
	ManagerDockerCompose Manager = "docker-compose"
	ManagerGitHubActions Manager = "github-actions"
	ManagerPip           Manager = "pip_requirements"
	ManagerPoetry        Manager = "poetry"
	ManagerTerraform     Manager = "terraform"
	ManagerHelm          Manager = "helmv3"
	ManagerMaven         Manager = "maven"
	ManagerGradle        Manager = "gradle"
	ManagerCargo         Manager = "cargo"
	ManagerBundler       Manager = "bundler"
	ManagerComposer      Manager = "composer"
	ManagerNuGet         Manager = "nuget"
)

// KnownManagers lists every manager a policy rule may reference.
func KnownManagers() []Manager {
	return []Manager{
		ManagerNPM, ManagerPNPM, ManagerYarn, ManagerGoMod, ManagerDockerfile,
		ManagerDockerCompose, ManagerGitHubActions, ManagerPip, ManagerPoetry,
		ManagerTerraform, ManagerHelm, ManagerMaven, ManagerGradle, ManagerCargo,
		ManagerBundler, ManagerComposer, ManagerNuGet,
	}
}

// ParseManager validates a manager name against KnownManagers.
func ParseManager(raw string) (Manager, error) {
	value := Manager(strings.ToLower(strings.TrimSpace(raw)))
	for _, known := range KnownManagers() {
		if value == known {
			return value, nil
		}
	}
	return "", fmt.Errorf("unknown manager %q", raw)
}

// UpdateCandidate is a detected dependency version bump awaiting a policy decision.
// Candidates are immutable once Normalize has run.
type UpdateCandidate struct {
	ID                 string     `json:"id" yaml:"id"`
	Manager            Manager    `json:"manager" yaml:"manager"`
	DepType            string     `json:"depType,omitempty" yaml:"depType,omitempty"`
	UpdateType         UpdateType `json:"updateType,omitempty" yaml:"updateType,omitempty"`
	PackageName        string     `json:"packageName" yaml:"packageName"`
	CurrentVersion     string     `json:"currentVersion,omitempty" yaml:"currentVersion,omitempty"`
	CandidateVersion   string     `json:"candidateVersion,omitempty" yaml:"candidateVersion,omitempty"`
	DetectedAt         time.Time  `json:"detectedAt" yaml:"detectedAt"`
	ReleasedAt         time.Time  `json:"releasedAt,omitzero" yaml:"releasedAt,omitempty"`
	VulnerabilityAlert bool       `json:"vulnerabilityAlert,omitempty" yaml:"vulnerabilityAlert,omitempty"`

	// Rejection is set by a discovery source that could not read the record. Such a
	// candidate never normalizes and is suppressed with this reason.
	Rejection string `json:"-" yaml:"-"`
}

// candidateNamespace seeds the name-based UUIDs of candidates without an ID.
var candidateNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rios0rios0/autopolicy"))

// Normalize fills the fields a discovery source may omit: a name-based UUID of
// manager, package and target version when ID is empty,
// the detection time when DetectedAt is zero, and the update type derived from
// the two versions when UpdateType is empty.
func (c UpdateCandidate) Normalize(now time.Time) (UpdateCandidate, error) {
	if c.Rejection != "" {
		return c, fmt.Errorf("%w: %s", ErrInvalidCandidate, c.Rejection)
	}
	if strings.TrimSpace(c.PackageName) == "" {
		return c, fmt.Errorf("%w: package name is required", ErrInvalidCandidate)
	}
	if c.ID == "" {
		c.ID = uuid.NewSHA1(candidateNamespace,
			[]byte(fmt.Sprintf("%s/%s@%s", c.Manager, c.PackageName, c.CandidateVersion))).String()
	}
	if c.DetectedAt.IsZero() {
		c.DetectedAt = now
	}
	if c.UpdateType == "" {
		derived, err := DeriveUpdateType(c.Manager, c.CurrentVersion, c.CandidateVersion)
		if err != nil {
			return c, fmt.Errorf("%w: %s: %w", ErrInvalidCandidate, c.PackageName, err)
		}
		c.UpdateType = derived
	}
	if !c.UpdateType.IsValid() {
		return c, fmt.Errorf("%w: %s: unknown update type %q", ErrInvalidCandidate, c.PackageName, c.UpdateType)
	}
	return c, nil
}

// ReleaseAge returns how long the candidate version has been available at now.
// When the release time is unknown the detection time is used instead.
func (c UpdateCandidate) ReleaseAge(now time.Time) time.Duration {
	return now.Sub(c.AvailableSince())
}

// AvailableSince is the release time, or the detection time when unknown.
func (c UpdateCandidate) AvailableSince() time.Time {
	if c.ReleasedAt.IsZero() {
		return c.DetectedAt
	}
	return c.ReleasedAt
}

// String renders the candidate for log lines.
func (c UpdateCandidate) String() string {
	return fmt.Sprintf("%s %s (%s -> %s, %s)",
		c.Manager, c.PackageName, c.CurrentVersion, c.CandidateVersion, c.UpdateType)
}

// Before reports whether c sorts before other in evaluation order:
// detection time, then package name, then id.
func (c UpdateCandidate) Before(other UpdateCandidate) bool {
	if !c.DetectedAt.Equal(other.DetectedAt) {
		return c.DetectedAt.Before(other.DetectedAt)
	}
	if c.PackageName != other.PackageName {
		return c.PackageName < other.PackageName
	}
	return c.ID < other.ID
}
