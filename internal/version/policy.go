package version

import (
	"fmt"
	"regexp"
)

// ZeroVersionPolicy controls how 0.x versions respond to declared bumps (§4.1).
type ZeroVersionPolicy int

const (
	// EffectiveMinor is the default: a major bump on 0.x maps to minor, a
	// minor bump maps to patch, a patch bump stays patch.
	EffectiveMinor ZeroVersionPolicy = iota
	// AutoPromoteOnMajor: a major bump on 0.x promotes straight to 1.0.0;
	// other bumps behave as in EffectiveMinor.
	AutoPromoteOnMajor
)

func (p ZeroVersionPolicy) String() string {
	if p == AutoPromoteOnMajor {
		return "auto-promote-on-major"
	}
	return "effective-minor"
}

var prereleaseTagPattern = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// ValidatePrereleaseTag checks the identifier rule from the glossary: a
// non-empty, lowercase alphanumeric-with-hyphens identifier.
func ValidatePrereleaseTag(tag string) error {
	if !prereleaseTagPattern.MatchString(tag) {
		return fmt.Errorf("invalid prerelease tag %q: must be lowercase alphanumeric with hyphens", tag)
	}
	return nil
}

// zeroAdjust maps a declared bump on a 0.x version to its sub-major
// equivalent, shared by both zero-version policy modes for non-major bumps
// (and for major bumps under EffectiveMinor).
func zeroAdjust(b BumpLevel) BumpLevel {
	switch b {
	case BumpMajor:
		return BumpMinor
	case BumpMinor:
		return BumpPatch
	default:
		return BumpPatch
	}
}

// computeCore implements the prerelease-increment and graduation rules of
// §4.1, with no zero-version policy or graduate_zero override applied.
// prereleaseTag == "" means no prerelease was requested.
func computeCore(current *Version, bump *BumpLevel, prereleaseTag string) (*Version, error) {
	if prereleaseTag != "" {
		if !current.HasPrerelease() {
			b := BumpPatch
			if bump != nil {
				b = *bump
			}
			return Bump(current, b).WithPrerelease(prereleaseTag, 1)
		}
		curTag, curNum, _ := ParsePrerelease(current.Prerelease())
		if curTag == prereleaseTag {
			return current.WithPrerelease(prereleaseTag, curNum+1)
		}
		return current.WithPrerelease(prereleaseTag, 1)
	}
	if current.HasPrerelease() {
		return current.StripPrerelease(), nil
	}
	if bump != nil {
		return Bump(current, *bump), nil
	}
	return current, nil
}

// baseChanged reports whether the (major, minor, patch) triple differs
// between a and b, ignoring prerelease.
func baseChanged(a, b *Version) bool {
	return a.Major() != b.Major() || a.Minor() != b.Minor() || a.Patch() != b.Patch()
}

// ComputeNewVersion is the unified §4.1 computation used by the planner
// (§4.2): current version, an optional declared bump, an optional
// prerelease tag ("" for none), whether this package graduates via the
// graduate_zero/changeset-graduate path, and the zero-version policy.
//
// Returns the new version and the "effective" bump to record in the plan —
// patch whenever only a prerelease number advanced and the base version was
// left untouched, the policy-adjusted (or declared) bump otherwise.
func ComputeNewVersion(
	current *Version,
	bump *BumpLevel,
	prereleaseTag string,
	graduateZero bool,
	policy ZeroVersionPolicy,
) (*Version, BumpLevel, error) {
	if graduateZero {
		return MustParse("1.0.0"), BumpMajor, nil
	}

	effective := bump
	if current.IsZero() && bump != nil {
		if policy == AutoPromoteOnMajor && *bump == BumpMajor && prereleaseTag == "" {
			return MustParse("1.0.0"), BumpMajor, nil
		}
		adjusted := zeroAdjust(*bump)
		effective = &adjusted
	}

	newVer, err := computeCore(current, effective, prereleaseTag)
	if err != nil {
		return nil, 0, err
	}

	if !baseChanged(current, newVer) {
		return newVer, BumpPatch, nil
	}
	if effective != nil {
		return newVer, *effective, nil
	}
	return newVer, BumpPatch, nil
}
