// Package manifest edits package manifest files (TOML) in place, preserving
// comments and formatting outside the touched keys. Grounded on
// NatoNathan-shipyard's internal/ecosystem.CargoEcosystem.UpdateVersion
// regex-scoped replacement technique, generalized to the three editable
// regions spec §4.11/§4.5 steps 2-4 require: a package's own version, the
// version pinned inside a dependency table entry, and removal of an
// inherited workspace version key.
package manifest

import (
	"fmt"
	"regexp"

	"github.com/pelletier/go-toml/v2"
)

var (
	dependencyTableHeader = regexp.MustCompile(`(?m)^\[(?:workspace\.)?(?:dependencies|dev-dependencies|build-dependencies)\]\s*$`)
	nextSectionHeader     = regexp.MustCompile(`\n\[`)
	workspaceVersionLine  = regexp.MustCompile(`(?m)^version\s*=\s*"([^"]*)"\s*\n?`)
)

// sectionName returns the TOML header whose version field governs a
// package's own version: [package] normally, [workspace.package] when the
// package inherits its version from the workspace root.
func sectionName(inherited bool) string {
	if inherited {
		return "workspace.package"
	}
	return "package"
}

// ReadVersion reads a package's declared version back from its manifest
// content, verifying that a literal write actually took effect (§4.5 step
// 2's read-back check).
func ReadVersion(content []byte, inherited bool) (string, error) {
	if inherited {
		var doc struct {
			Workspace struct {
				Package struct {
					Version string `toml:"version"`
				} `toml:"package"`
			} `toml:"workspace"`
		}
		if err := toml.Unmarshal(content, &doc); err != nil {
			return "", fmt.Errorf("parsing manifest: %w", err)
		}
		return doc.Workspace.Package.Version, nil
	}
	var doc struct {
		Package struct {
			Version string `toml:"version"`
		} `toml:"package"`
	}
	if err := toml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parsing manifest: %w", err)
	}
	return doc.Package.Version, nil
}

// WriteVersion replaces the version field within the package's own section
// with newVersion, leaving every other byte (comments, formatting, other
// sections) untouched.
func WriteVersion(content []byte, newVersion string, inherited bool) ([]byte, error) {
	section := sectionName(inherited)
	s := string(content)
	headerRe := regexp.MustCompile(`(?m)^\[` + regexp.QuoteMeta(section) + `\]\s*$`)
	loc := headerRe.FindStringIndex(s)
	if loc == nil {
		return nil, fmt.Errorf("no [%s] section found in manifest", section)
	}
	start := loc[1]
	end := sectionEnd(s, start)
	body := s[start:end]

	versionRe := regexp.MustCompile(`(?m)^(\s*version\s*=\s*")([^"]*)(")`)
	if !versionRe.MatchString(body) {
		return nil, fmt.Errorf("no version field found in [%s] section", section)
	}
	newBody := versionRe.ReplaceAllString(body, "${1}"+newVersion+"${3}")
	return []byte(s[:start] + newBody + s[end:]), nil
}

// UpdateDependencyVersion rewrites the version pinned by every inline-table
// dependency entry named pkgName across all dependency tables in content
// (dependencies, dev-dependencies, build-dependencies, and their
// workspace-prefixed equivalents), skipping any entry that carries
// `workspace = true`. Reports whether any edit was made.
func UpdateDependencyVersion(content []byte, pkgName, newVersion string) ([]byte, bool) {
	s := string(content)
	changed := false
	cursor := 0
	for {
		rest := s[cursor:]
		loc := dependencyTableHeader.FindStringIndex(rest)
		if loc == nil {
			break
		}
		start := cursor + loc[1]
		end := sectionEnd(s, start)
		section := s[start:end]

		newSection, did := updateInlineEntryVersion(section, pkgName, newVersion)
		if did {
			s = s[:start] + newSection + s[end:]
			changed = true
			end = start + len(newSection)
		}
		cursor = end
	}
	return []byte(s), changed
}

func updateInlineEntryVersion(section, pkgName, newVersion string) (string, bool) {
	entryRe := regexp.MustCompile(`(?m)^(\s*` + regexp.QuoteMeta(pkgName) + `\s*=\s*\{)([^}]*)(\})`)
	loc := entryRe.FindStringSubmatchIndex(section)
	if loc == nil {
		return section, false
	}
	inner := section[loc[4]:loc[5]]
	if regexp.MustCompile(`workspace\s*=\s*true`).MatchString(inner) {
		return section, false
	}
	versionRe := regexp.MustCompile(`(version\s*=\s*")([^"]*)(")`)
	if !versionRe.MatchString(inner) {
		return section, false
	}
	newInner := versionRe.ReplaceAllString(inner, "${1}"+newVersion+"${3}")
	return section[:loc[4]] + newInner + section[loc[5]:], true
}

// RemoveWorkspaceVersion deletes the version key from [workspace.package],
// returning its original value for compensation (§4.5 step 4).
func RemoveWorkspaceVersion(content []byte) ([]byte, string, error) {
	s := string(content)
	headerRe := regexp.MustCompile(`(?m)^\[workspace\.package\]\s*$`)
	loc := headerRe.FindStringIndex(s)
	if loc == nil {
		return content, "", fmt.Errorf("no [workspace.package] section found")
	}
	start := loc[1]
	end := sectionEnd(s, start)
	body := s[start:end]

	m := workspaceVersionLine.FindStringSubmatch(body)
	if m == nil {
		return content, "", fmt.Errorf("no version field found in [workspace.package] section")
	}
	newBody := workspaceVersionLine.ReplaceAllString(body, "")
	return []byte(s[:start] + newBody + s[end:]), m[1], nil
}

// SetWorkspaceVersion writes newVersion into [workspace.package], updating
// the existing version key if one is present or inserting one immediately
// after the header otherwise. The insertion path exists because step 4's
// compensation must be able to restore a version key that step 4 deleted
// entirely.
func SetWorkspaceVersion(content []byte, newVersion string) ([]byte, error) {
	s := string(content)
	headerRe := regexp.MustCompile(`(?m)^\[workspace\.package\]\s*$`)
	loc := headerRe.FindStringIndex(s)
	if loc == nil {
		return nil, fmt.Errorf("no [workspace.package] section found")
	}
	start := loc[1]
	end := sectionEnd(s, start)
	body := s[start:end]

	if workspaceVersionLine.MatchString(body) {
		newBody := workspaceVersionLine.ReplaceAllString(body, fmt.Sprintf("version = %q\n", newVersion))
		return []byte(s[:start] + newBody + s[end:]), nil
	}
	insertion := fmt.Sprintf("\nversion = %q", newVersion)
	return []byte(s[:start] + insertion + body + s[end:]), nil
}

// sectionEnd returns the offset of the next top-level section header after
// start, or len(s) if this is the last section.
func sectionEnd(s string, start int) int {
	rest := s[start:]
	loc := nextSectionHeader.FindStringIndex(rest)
	if loc == nil {
		return len(s)
	}
	return start + loc[0] + 1
}
