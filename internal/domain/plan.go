package domain

import "github.com/compozy/changeset/internal/version"

// PlannedRelease is one (package, current, new, bump) tuple derived from
// changesets and configuration.
type PlannedRelease struct {
	Name           string
	CurrentVersion *version.Version
	NewVersion     *version.Version
	Bump           version.BumpLevel
}

// ReleasePlan is the version planner's deterministic output.
type ReleasePlan struct {
	Releases []PlannedRelease
	// UnknownPackages lists package names referenced by changesets but
	// absent from the workspace; not an error, the caller decides.
	UnknownPackages []string
}

// Lookup returns the planned release for name, if present.
func (p *ReleasePlan) Lookup(name string) (PlannedRelease, bool) {
	for _, r := range p.Releases {
		if r.Name == name {
			return r, true
		}
	}
	return PlannedRelease{}, false
}

// IsEmpty reports whether the plan has no planned releases.
func (p *ReleasePlan) IsEmpty() bool { return len(p.Releases) == 0 }
