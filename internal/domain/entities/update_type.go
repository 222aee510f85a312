package entities

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
	gosemver "golang.org/x/mod/semver"
)

// UpdateType classifies the size of a dependency bump.
type UpdateType string

const (
	UpdateMajor    UpdateType = "major"
	UpdateMinor    UpdateType = "minor"
	UpdatePatch    UpdateType = "patch"
	UpdatePin      UpdateType = "pin"
	UpdateDigest   UpdateType = "digest"
	UpdateLockfile UpdateType = "lockfile"
)

// digestPattern matches container and git digests ("sha256:..." or bare hex SHAs).
var digestPattern = regexp.MustCompile(`^(sha256:)?[a-f0-9]{12,64}$`)

// IsValid reports whether the update type is one of the known values.
func (u UpdateType) IsValid() bool {
	switch u {
	case UpdateMajor, UpdateMinor, UpdatePatch, UpdatePin, UpdateDigest, UpdateLockfile:
		return true
	}
	return false
}

// ParseUpdateType accepts the canonical names plus the "lockFileMaintenance" alias.
func ParseUpdateType(raw string) (UpdateType, error) {
	value := strings.TrimSpace(raw)
	if strings.EqualFold(value, "lockFileMaintenance") {
		return UpdateLockfile, nil
	}
	updateType := UpdateType(strings.ToLower(value))
	if !updateType.IsValid() {
		return "", fmt.Errorf("unknown update type %q", raw)
	}
	return updateType, nil
}

// DeriveUpdateType classifies a bump from current to candidate. Go modules follow
// the module version rules of golang.org/x/mod; every other manager is compared
// with the more lenient Masterminds parser, which accepts "1.2" or "v1".
func DeriveUpdateType(manager Manager, current, candidate string) (UpdateType, error) {
	current = strings.TrimSpace(current)
	candidate = strings.TrimSpace(candidate)
	if candidate == "" {
		return "", errors.New("candidate version is required to derive the update type")
	}

	if digestPattern.MatchString(candidate) {
		return UpdateDigest, nil
	}

	if pinned, ok := stripRange(current); ok && pinned == strings.TrimPrefix(candidate, "=") {
		return UpdatePin, nil
	}

	if manager == ManagerGoMod {
		return deriveGoModuleUpdate(current, candidate)
	}

	if pinned, ok := stripRange(current); ok {
		current = pinned
	}
	return deriveSemverUpdate(current, candidate)
}

func deriveGoModuleUpdate(current, candidate string) (UpdateType, error) {
	from := normalizeVersion(current)
	to := normalizeVersion(candidate)
	if !gosemver.IsValid(from) || !gosemver.IsValid(to) {
		return "", fmt.Errorf("invalid module versions %q -> %q", current, candidate)
	}
	if gosemver.Compare(to, from) <= 0 {
		return "", fmt.Errorf("%q is not newer than %q", candidate, current)
	}

	switch {
	case gosemver.Major(from) != gosemver.Major(to):
		return UpdateMajor, nil
	case gosemver.MajorMinor(from) != gosemver.MajorMinor(to):
		return UpdateMinor, nil
	default:
		return UpdatePatch, nil
	}
}

func deriveSemverUpdate(current, candidate string) (UpdateType, error) {
	from, err := semver.NewVersion(current)
	if err != nil {
		return "", fmt.Errorf("invalid current version %q: %w", current, err)
	}
	to, err := semver.NewVersion(candidate)
	if err != nil {
		return "", fmt.Errorf("invalid candidate version %q: %w", candidate, err)
	}
	if !to.GreaterThan(from) {
		return "", fmt.Errorf("%q is not newer than %q", candidate, current)
	}

	switch {
	case from.Major() != to.Major():
		return UpdateMajor, nil
	case from.Minor() != to.Minor():
		return UpdateMinor, nil
	default:
		return UpdatePatch, nil
	}
}

// stripRange removes a leading range operator (^, ~, >=, =) from a version constraint.
func stripRange(version string) (string, bool) {
	for _, prefix := range []string{">=", "^", "~", "="} {
		if strings.HasPrefix(version, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(version, prefix)), true
		}
	}
	return version, false
}

// normalizeVersion ensures version has 'v' prefix for semver compatibility
func normalizeVersion(version string) string {
	if strings.HasPrefix(version, "v") {
		return version
	}
	return "v" + version
}
