// Package validator turns raw CLI input plus persisted prerelease and
// graduation state into a merged, per-package domain.ReleaseConfig,
// accumulating every violation it finds rather than stopping at the first
// (spec §4.3), grounded on the original implementation's
// changeset-operations::release_validator.
package validator

import (
	"sort"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/version"
)

// Validate runs the full validation pipeline and returns the merged
// per-package release configuration, or a non-nil *Errors describing every
// violation found.
func Validate(
	input domain.CLIInput,
	prereleaseState domain.PrereleaseState,
	graduationState domain.GraduationState,
	workspace *domain.Workspace,
) (domain.ReleaseConfig, error) {
	var c Collector

	available := packageNames(workspace)

	validateCLIPackagesExist(&c, input, workspace, available)
	validateCLITags(&c, input)
	persistedTags := validatePersistedTags(&c, prereleaseState, workspace, available)
	validateConflicts(&c, input, persistedTags)
	validateGraduation(&c, input, graduationState, workspace, available)

	if errs := c.Into(); errs != nil {
		return nil, errs
	}

	return buildConfig(input, prereleaseState, graduationState, workspace), nil
}

func packageNames(ws *domain.Workspace) []string {
	names := make([]string, 0, len(ws.Packages))
	for _, p := range ws.Packages {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// validateCLIPackagesExist checks every package named via --prerelease
// pkg:tag or --graduate pkg against the workspace.
func validateCLIPackagesExist(c *Collector, input domain.CLIInput, ws *domain.Workspace, available []string) {
	for name := range input.PackagePrerelease {
		if _, ok := ws.Lookup(name); !ok {
			c.Push(ValidationError{Kind: PackageNotFound, Package: name, Available: available})
		}
	}
	for name := range input.GraduatePackages {
		if _, ok := ws.Lookup(name); !ok {
			c.Push(ValidationError{Kind: PackageNotFound, Package: name, Available: available})
		}
	}
}

// validateCLITags checks every CLI-supplied tag is a well-formed identifier.
func validateCLITags(c *Collector, input domain.CLIInput) {
	for name, tag := range input.PackagePrerelease {
		if err := version.ValidatePrereleaseTag(tag); err != nil {
			c.Push(ValidationError{Kind: InvalidPrereleaseTag, Package: name, Tag: tag, Reason: err.Error()})
		}
	}
	if input.GlobalPrerelease != "" {
		if err := version.ValidatePrereleaseTag(input.GlobalPrerelease); err != nil {
			c.Push(ValidationError{Kind: InvalidPrereleaseTag, Package: "*", Tag: input.GlobalPrerelease, Reason: err.Error()})
		}
	}
}

// validatePersistedTags checks every persisted tag parses, and that its
// package still exists in the workspace. Returns the tags that passed.
func validatePersistedTags(
	c *Collector,
	state domain.PrereleaseState,
	ws *domain.Workspace,
	available []string,
) domain.PrereleaseState {
	valid := make(domain.PrereleaseState, len(state))
	for name, tag := range state {
		if _, ok := ws.Lookup(name); !ok {
			c.Push(ValidationError{Kind: PackageNotFound, Package: name, Available: available})
			continue
		}
		if err := version.ValidatePrereleaseTag(tag); err != nil {
			c.Push(ValidationError{Kind: InvalidPrereleaseTag, Package: name, Tag: tag, Reason: err.Error()})
			continue
		}
		valid[name] = tag
	}
	return valid
}

// validateConflicts flags packages where a CLI per-package tag disagrees
// with the persisted tag for the same package; the two must match or the
// caller must clear the persisted entry first.
func validateConflicts(c *Collector, input domain.CLIInput, persisted domain.PrereleaseState) {
	for name, cliTag := range input.PackagePrerelease {
		if persistedTag, ok := persisted.Tag(name); ok && persistedTag != cliTag {
			c.Push(ValidationError{Kind: ConflictingPrereleaseTag, Package: name, CLITag: cliTag, PersistedTag: persistedTag})
		}
	}
}

// validateGraduation checks every graduation request — explicit package
// names, persisted queue entries, and a bare --graduate — against the
// eligibility rule: a package can graduate only while it is a 0.x version
// with no active prerelease suffix.
func validateGraduation(
	c *Collector,
	input domain.CLIInput,
	graduationState domain.GraduationState,
	ws *domain.Workspace,
	available []string,
) {
	if input.GraduateAll && ws.Kind != domain.SinglePackage && len(input.GraduatePackages) == 0 {
		c.Push(ValidationError{Kind: GraduateRequiresPackagesInWorkspace})
	}

	names := make(map[string]bool, len(input.GraduatePackages)+len(graduationState.Names()))
	for name := range input.GraduatePackages {
		names[name] = true
	}
	for _, name := range graduationState.Names() {
		names[name] = true
	}

	for name := range names {
		pkg, ok := ws.Lookup(name)
		if !ok {
			c.Push(ValidationError{Kind: PackageNotFound, Package: name, Available: available})
			continue
		}
		checkGraduationEligible(c, pkg)
	}

	if input.GraduateAll {
		for _, pkg := range ws.Packages {
			if names[pkg.Name] {
				continue
			}
			if pkg.Version.IsZero() && !pkg.Version.HasPrerelease() {
				checkGraduationEligible(c, pkg)
			}
		}
	}
}

func checkGraduationEligible(c *Collector, pkg domain.PackageInfo) {
	if pkg.Version.HasPrerelease() {
		c.Push(ValidationError{Kind: CannotGraduateFromPrerelease, Package: pkg.Name, CurrentVersion: pkg.Version.String()})
		return
	}
	if !pkg.Version.IsZero() {
		c.Push(ValidationError{Kind: CannotGraduateStableVersion, Package: pkg.Name, CurrentVersion: pkg.Version.String()})
	}
}

// buildConfig merges validated input into the final per-package config.
// Prerelease precedence is CLI-per-package > global > persisted (§4.3): the
// persisted tag applies first, the global tag overrides it for every
// package, and a CLI per-package tag overrides both for its package. This
// matches the spec's stated precedence even where it diverges from a
// literal reading of the original implementation's assignment order.
func buildConfig(
	input domain.CLIInput,
	prereleaseState domain.PrereleaseState,
	graduationState domain.GraduationState,
	ws *domain.Workspace,
) domain.ReleaseConfig {
	cfg := make(domain.ReleaseConfig, len(ws.Packages))

	for _, pkg := range ws.Packages {
		var entry domain.PackageReleaseConfig

		if tag, ok := prereleaseState.Tag(pkg.Name); ok {
			entry.Prerelease = tag
		}
		if input.GlobalPrerelease != "" {
			entry.Prerelease = input.GlobalPrerelease
		}
		if tag, ok := input.PackagePrerelease[pkg.Name]; ok {
			entry.Prerelease = tag
		}

		if graduationState.Contains(pkg.Name) || input.GraduatePackages[pkg.Name] {
			entry.GraduateZero = true
		}
		if input.GraduateAll && pkg.Version.IsZero() && !pkg.Version.HasPrerelease() {
			entry.GraduateZero = true
		}

		if entry.Prerelease == "" && !entry.GraduateZero {
			continue
		}
		cfg[pkg.Name] = entry
	}

	return cfg
}
