// Package version implements semver arithmetic: bump levels, prerelease
// increment, graduation, and the zero-version policy (spec §4.1). The
// Version type wraps github.com/Masterminds/semver/v3 the way the teacher's
// internal/domain/version.go does, generalized with the prerelease and
// zero-version-policy arithmetic the teacher never needed.
package version

import "fmt"

// BumpLevel is a semantic-version bump level with total order Patch < Minor < Major.
type BumpLevel int

const (
	BumpPatch BumpLevel = iota
	BumpMinor
	BumpMajor
)

func (b BumpLevel) String() string {
	switch b {
	case BumpPatch:
		return "patch"
	case BumpMinor:
		return "minor"
	case BumpMajor:
		return "major"
	default:
		return fmt.Sprintf("bump(%d)", int(b))
	}
}

// ParseBumpLevel parses the lowercase textual form used in changeset files.
func ParseBumpLevel(s string) (BumpLevel, error) {
	switch s {
	case "patch":
		return BumpPatch, nil
	case "minor":
		return BumpMinor, nil
	case "major":
		return BumpMajor, nil
	default:
		return 0, fmt.Errorf("invalid bump level %q: want patch, minor, or major", s)
	}
}

// MaxBump returns the highest-priority bump in bumps and false if bumps is empty.
func MaxBump(bumps []BumpLevel) (BumpLevel, bool) {
	if len(bumps) == 0 {
		return 0, false
	}
	max := bumps[0]
	for _, b := range bumps[1:] {
		if b > max {
			max = b
		}
	}
	return max, true
}
