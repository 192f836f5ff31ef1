package store

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// CompatibleVersions filters the platform version catalog down to the
// selectable versions accepted by pred. An empty result is valid: the caller
// decides whether to warn and proceed without declared compatibility.
func CompatibleVersions(catalog []SoftwareVersion, pred func(name string) bool) []SoftwareVersion {
	var compatible []SoftwareVersion
	for _, v := range catalog {
		if v.Selectable && pred(v.Name) {
			compatible = append(compatible, v)
		}
	}
	return compatible
}

// ConstraintPredicate builds a version predicate from a semver constraint
// expression such as ">= 5.2.0 <= 5.3.0". Catalog entries that do not parse
// as semver are never matched.
func ConstraintPredicate(expr string) (func(name string) bool, error) {
	constraint, err := semver.NewConstraint(expr)
	if err != nil {
		return nil, fmt.Errorf("parsing version constraint %q: %w", expr, err)
	}
	return func(name string) bool {
		v, err := semver.NewVersion(name)
		if err != nil {
			return false
		}
		return constraint.Check(v)
	}, nil
}

// VersionsEqual reports whether two semver strings denote the same version.
// Unparseable versions only compare equal as raw strings.
func VersionsEqual(a, b string) bool {
	va, errA := semver.NewVersion(a)
	vb, errB := semver.NewVersion(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return va.Equal(vb)
}

// MinVersionName returns the smallest semver name among the given versions,
// or "" for an empty list.
func MinVersionName(versions []SoftwareVersion) string {
	var min *semver.Version
	var name string
	for _, v := range versions {
		parsed, err := semver.NewVersion(v.Name)
		if err != nil {
			continue
		}
		if min == nil || parsed.LessThan(min) {
			min = parsed
			name = v.Name
		}
	}
	return name
}
