package version

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Version wraps a parsed semantic version. Unlike the teacher's
// internal/domain/version.go, which only ever bumps a stable version, this
// type also carries prerelease identifiers and the zero-version policy
// arithmetic that §4.1 requires.
type Version struct {
	inner *semver.Version
}

// Parse parses a semantic version string.
func Parse(s string) (*Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("parse version %q: %w", s, err)
	}
	return &Version{inner: v}, nil
}

// MustParse parses s, panicking on error. Reserved for literals known to be
// valid at compile time (e.g. "1.0.0" in the graduate-to-zero path).
func MustParse(s string) *Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

func (v *Version) String() string { return v.inner.String() }

// Major returns the version's major component.
func (v *Version) Major() uint64 { return v.inner.Major() }

// Minor returns the version's minor component.
func (v *Version) Minor() uint64 { return v.inner.Minor() }

// Patch returns the version's patch component.
func (v *Version) Patch() uint64 { return v.inner.Patch() }

// Prerelease returns the raw prerelease string (e.g. "alpha.3"), or "".
func (v *Version) Prerelease() string { return v.inner.Prerelease() }

// HasPrerelease reports whether the version carries a prerelease identifier.
func (v *Version) HasPrerelease() bool { return v.inner.Prerelease() != "" }

// IsZero reports whether the version's major component is 0.
func (v *Version) IsZero() bool { return v.inner.Major() == 0 }

// Compare returns -1, 0, or 1 per semver precedence rules.
func (v *Version) Compare(other *Version) int { return v.inner.Compare(other.inner) }

// Equal reports whether v and other compare equal.
func (v *Version) Equal(other *Version) bool { return v.Compare(other) == 0 }

func newVersion(major, minor, patch uint64, pre string) *Version {
	s := fmt.Sprintf("%d.%d.%d", major, minor, patch)
	if pre != "" {
		s += "-" + pre
	}
	return MustParse(s)
}

// StripPrerelease returns a version with the same (major, minor, patch) and
// no prerelease or build metadata.
func (v *Version) StripPrerelease() *Version {
	return newVersion(v.Major(), v.Minor(), v.Patch(), "")
}

// WithPrerelease returns a version with the same base and prerelease "tag.num".
func (v *Version) WithPrerelease(tag string, num uint64) (*Version, error) {
	ident := fmt.Sprintf("%s.%d", tag, num)
	s := fmt.Sprintf("%d.%d.%d-%s", v.Major(), v.Minor(), v.Patch(), ident)
	inner, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid prerelease identifier %q: %w", ident, err)
	}
	return &Version{inner: inner}, nil
}

// ParsePrerelease splits a prerelease string into (tag, number): "alpha.3" ->
// ("alpha", 3); a trailing component that does not parse as a decimal number
// (or is absent) defaults the number to 1, per the prerelease-increment rule.
func ParsePrerelease(pre string) (tag string, num uint64, ok bool) {
	if pre == "" {
		return "", 0, false
	}
	parts := strings.Split(pre, ".")
	if len(parts) < 2 {
		return pre, 1, true
	}
	last := parts[len(parts)-1]
	n, err := strconv.ParseUint(last, 10, 64)
	if err != nil {
		return pre, 1, true
	}
	return strings.Join(parts[:len(parts)-1], "."), n, true
}

// Bump applies level to current, zeroing lower components and stripping any
// prerelease identifier (§4.1(a)).
func Bump(current *Version, level BumpLevel) *Version {
	switch level {
	case BumpMajor:
		return newVersion(current.Major()+1, 0, 0, "")
	case BumpMinor:
		return newVersion(current.Major(), current.Minor()+1, 0, "")
	default:
		return newVersion(current.Major(), current.Minor(), current.Patch()+1, "")
	}
}
