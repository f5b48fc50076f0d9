package domain

import (
	"fmt"

	"github.com/compozy/changeset/internal/version"
)

// PackageRelease is one "<package-name>: <bump>" directive inside a changeset.
type PackageRelease struct {
	Name string
	Bump version.BumpLevel
}

// Changeset is a declarative record of an intended version change for one or
// more packages, parsed from a changeset file. It is never mutated in place
// except to toggle ConsumedForPrerelease.
type Changeset struct {
	// Path is the changeset file's location on disk. Empty for changesets
	// that have not yet been written (e.g. freshly authored via `add`).
	Path string

	Summary  string
	Releases []PackageRelease
	Category Category

	// ConsumedForPrerelease holds the version string during which this
	// changeset was folded into a prerelease, or "" if it has not been.
	ConsumedForPrerelease string

	// Graduate requests 0.x -> 1.0.0 promotion for every package it names.
	Graduate bool
}

// Validate enforces invariant 1: at least one package, exactly one bump per
// named package.
func (c *Changeset) Validate() error {
	if len(c.Releases) == 0 {
		return fmt.Errorf("changeset %q declares no package releases", c.Path)
	}
	seen := make(map[string]bool, len(c.Releases))
	for _, r := range c.Releases {
		if r.Name == "" {
			return fmt.Errorf("changeset %q has a release entry with an empty package name", c.Path)
		}
		if seen[r.Name] {
			return fmt.Errorf("changeset %q names package %q more than once", c.Path, r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// IsConsumed reports whether this changeset has already been folded into a
// previously released prerelease (invariant 4).
func (c *Changeset) IsConsumed() bool {
	return c.ConsumedForPrerelease != ""
}

// Names returns the package names this changeset targets, in declaration order.
func (c *Changeset) Names() []string {
	names := make([]string, len(c.Releases))
	for i, r := range c.Releases {
		names[i] = r.Name
	}
	return names
}
