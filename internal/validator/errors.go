package validator

import (
	"fmt"
	"strings"
)

// ErrorKind enumerates the validator's error taxonomy (§4.3).
type ErrorKind int

const (
	// ConflictingPrereleaseTag: CLI tag differs from persisted tag for same package.
	ConflictingPrereleaseTag ErrorKind = iota
	// CannotGraduateFromPrerelease: requested graduation on a package currently in prerelease.
	CannotGraduateFromPrerelease
	// GraduateRequiresPackagesInWorkspace: graduate_all without package names in a multi-package workspace.
	GraduateRequiresPackagesInWorkspace
	// PackageNotFound: a referenced name is absent from the workspace.
	PackageNotFound
	// CannotGraduateStableVersion: requested graduation on a version >= 1.0.0 that is not a prerelease.
	CannotGraduateStableVersion
	// InvalidPrereleaseTag: a persisted or CLI-supplied tag fails identifier
	// parsing. Its message and tip are worded for a persisted tag in both cases.
	InvalidPrereleaseTag
)

// ValidationError is a single violation with a human message and an
// actionable remediation tip.
type ValidationError struct {
	Kind ErrorKind

	Package        string
	CLITag         string
	PersistedTag   string
	CurrentVersion string
	Available      []string
	Tag            string
	Reason         string
}

func (e ValidationError) Error() string {
	switch e.Kind {
	case ConflictingPrereleaseTag:
		return fmt.Sprintf(
			"conflicting prerelease tag for %q: CLI specifies %q, persisted state specifies %q",
			e.Package, e.CLITag, e.PersistedTag,
		)
	case CannotGraduateFromPrerelease:
		return fmt.Sprintf("cannot graduate %q: currently in prerelease (%s)", e.Package, e.CurrentVersion)
	case GraduateRequiresPackagesInWorkspace:
		return "--graduate requires package names in a multi-package workspace"
	case PackageNotFound:
		return fmt.Sprintf("package %q not found in workspace", e.Package)
	case CannotGraduateStableVersion:
		return fmt.Sprintf("cannot graduate %q: already at stable version %s", e.Package, e.CurrentVersion)
	case InvalidPrereleaseTag:
		return fmt.Sprintf("invalid prerelease tag %q in persisted state for package %q: %s", e.Tag, e.Package, e.Reason)
	default:
		return "unknown validation error"
	}
}

// Tip is the recommended remediation for this error.
func (e ValidationError) Tip() string {
	switch e.Kind {
	case ConflictingPrereleaseTag:
		return fmt.Sprintf(
			"run `manage pre-release --remove %s` to clear the persisted tag, or supply `--prerelease %s:%s` to match",
			e.Package, e.Package, e.PersistedTag,
		)
	case CannotGraduateFromPrerelease:
		return fmt.Sprintf("first release %s to stable, then graduate with `--graduate %s`", e.Package, e.Package)
	case GraduateRequiresPackagesInWorkspace:
		return "specify packages: `--graduate pkg-a --graduate pkg-b`"
	case PackageNotFound:
		return fmt.Sprintf("available packages: %s", strings.Join(e.Available, ", "))
	case CannotGraduateStableVersion:
		return fmt.Sprintf("package %s is already stable; graduation is for 0.x or prerelease versions only", e.Package)
	case InvalidPrereleaseTag:
		return fmt.Sprintf("run `manage pre-release --remove %s` and re-add with a valid tag", e.Package)
	default:
		return ""
	}
}

// Errors is a non-empty-by-construction collection of validation errors: the
// only way to obtain one is through Collector.Into, which returns nil when
// no errors were pushed.
type Errors struct {
	errors []ValidationError
}

// List returns the collected errors, in the order they were found.
func (e *Errors) List() []ValidationError { return e.errors }

// Len reports the number of collected errors.
func (e *Errors) Len() int { return len(e.errors) }

func (e *Errors) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "validation failed with %d error(s):\n", len(e.errors))
	for i, err := range e.errors {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, err.Error())
		fmt.Fprintf(&b, "     Tip: %s\n", err.Tip())
	}
	return b.String()
}

// Collector accumulates violations during validation; it never
// short-circuits. Call Into at the end to obtain an *Errors (nil if empty).
type Collector struct {
	errors []ValidationError
}

// Push records a violation.
func (c *Collector) Push(e ValidationError) { c.errors = append(c.errors, e) }

// Into converts the collector into a non-empty Errors, or nil if no
// violations were pushed.
func (c *Collector) Into() *Errors {
	if len(c.errors) == 0 {
		return nil
	}
	return &Errors{errors: c.errors}
}
