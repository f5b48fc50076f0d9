// Package changelog renders and maintains per-package CHANGELOG.md files.
// Grounded on NatoNathan-shipyard's internal/changelog package (category
// and package grouping, prepending to existing content) but without its
// pluggable template engine: the spec fixes one rendering shape ("##
// [{version}] - {date}" headings with "### {Category}" subsections), so a
// template indirection the spec never asks to vary would be an
// unjustified abstraction.
package changelog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/compozy/changeset/internal/domain"
)

// categoryOrder is the fixed "Keep a Changelog"-style section order,
// independent of a changeset's declaration order.
var categoryOrder = []domain.Category{
	domain.CategoryAdded,
	domain.CategoryChanged,
	domain.CategoryFixed,
	domain.CategorySecurity,
	domain.CategoryDeprecated,
	domain.CategoryRemoved,
}

// Entry is one rendered changelog line, attributed to a category.
type Entry struct {
	Category domain.Category
	Summary  string
}

// EntriesForPackage filters changesets down to the summary lines that
// apply to pkgName, grouped implicitly by iteration order (category
// grouping happens in Render).
func EntriesForPackage(changesets []*domain.Changeset, pkgName string) []Entry {
	var out []Entry
	for _, cs := range changesets {
		for _, r := range cs.Releases {
			if r.Name == pkgName {
				out = append(out, Entry{Category: cs.Category, Summary: cs.Summary})
				break
			}
		}
	}
	return out
}

// Render produces one changelog section for a single package's new
// version: a "## [{version}] - {date}" heading (optionally linked via
// compareURL) followed by "### {Category}" subsections in canonical
// order, each listing its entries as a markdown bullet list.
func Render(version string, date time.Time, entries []Entry, compareURL string) string {
	var b strings.Builder

	if compareURL != "" {
		fmt.Fprintf(&b, "## [%s](%s) - %s\n\n", version, compareURL, date.Format("2006-01-02"))
	} else {
		fmt.Fprintf(&b, "## [%s] - %s\n\n", version, date.Format("2006-01-02"))
	}

	byCategory := make(map[domain.Category][]string)
	for _, e := range entries {
		byCategory[e.Category] = append(byCategory[e.Category], e.Summary)
	}

	for _, cat := range categoryOrder {
		lines := byCategory[cat]
		if len(lines) == 0 {
			continue
		}
		sort.Strings(lines)
		fmt.Fprintf(&b, "### %s\n\n", cat.Heading())
		for _, line := range lines {
			fmt.Fprintf(&b, "- %s\n", line)
		}
		b.WriteString("\n")
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// Prepend inserts a newly rendered section ahead of any existing
// changelog body, adding the document's top-level heading if the file is
// new.
func Prepend(existing []byte, section string) []byte {
	existingStr := string(existing)
	if strings.TrimSpace(existingStr) == "" {
		return []byte("# Changelog\n\n" + section + "\n")
	}
	if !strings.HasPrefix(existingStr, "# Changelog") {
		return []byte("# Changelog\n\n" + section + "\n" + existingStr)
	}
	// Insert after the top heading and its trailing blank line.
	lines := strings.SplitN(existingStr, "\n\n", 2)
	if len(lines) == 2 {
		return []byte(lines[0] + "\n\n" + section + "\n" + lines[1])
	}
	return []byte(existingStr + "\n" + section + "\n")
}

// CompareURL builds a "{remote}/compare/{from}...{to}" comparison link
// from the version-control adapter's remote URL. It returns "" when
// remoteURL is empty and never fails; the orchestrator is what returns
// ErrComparisonLinkRequired when configuration demands a link and no
// remote is configured.
func CompareURL(remoteURL, fromTag, toTag string) string {
	if remoteURL == "" {
		return ""
	}
	base := strings.TrimSuffix(remoteURL, ".git")
	return fmt.Sprintf("%s/compare/%s...%s", base, fromTag, toTag)
}

// ErrComparisonLinkRequired is returned by the orchestrator when
// comparison links are required by configuration but no remote URL is
// available to build one from.
var ErrComparisonLinkRequired = fmt.Errorf("comparison-links-required: no remote URL configured")
