// Package verify implements the non-saga "does this branch carry a
// changeset for everything it touches" pipeline (§4.9): a CI-facing check
// distinct from the release saga, grounded on the teacher's
// internal/usecase.checkChanges (diff-driven "has anything changed"
// collaborator) generalized from "any change" to "change mapped to an
// owning package, checked against changeset coverage."
package verify

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/compozy/changeset/internal/changesetio"
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/vcs"
)

// IgnoreRules is the glob patterns that exclude a path from "this package
// was touched", loaded from project configuration (§4.15).
type IgnoreRules struct {
	Workspace  []string
	PerPackage map[string][]string
}

func (r IgnoreRules) matches(patterns []string, path string) bool {
	for _, pat := range patterns {
		if ok, _ := filepath.Match(pat, path); ok {
			return true
		}
		if ok, _ := filepath.Match(pat, filepath.Base(path)); ok {
			return true
		}
	}
	return false
}

// Request configures one verify run.
type Request struct {
	BaseRef string
	HeadRef string

	ChangesetDir string

	AllowChangesetDeletion bool

	Ignore IgnoreRules
}

// Outcome is the verify operation's result.
type Outcome struct {
	Passed bool

	ChangedChangesets  []string // active (added/modified/renamed) changeset paths
	DeletedChangesets  []string
	AffectedPackages   []string // code-owning packages touched by the diff
	UncoveredPackages  []string // affected but not named by any active changeset
	ForbiddenDeletions []string // deleted changesets, present only when disallowed
}

// Run executes the verify pipeline against ws's packages. fs reads active
// changeset files at head (the checked-out working tree) to learn which
// packages they name.
func Run(ctx context.Context, fs afero.Fs, adapter vcs.Adapter, ws *domain.Workspace, req Request) (*Outcome, error) {
	changed, err := adapter.ChangedFiles(ctx, req.BaseRef, req.HeadRef)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..%s: %w", req.BaseRef, req.HeadRef, err)
	}

	changesetDir := strings.TrimSuffix(req.ChangesetDir, "/") + "/"
	var activeChangesets, deletedChangesets []string
	var codeChanges []vcs.ChangedFile
	for _, f := range changed {
		if strings.HasPrefix(f.Path, changesetDir) {
			if f.Status == vcs.StatusDeleted {
				deletedChangesets = append(deletedChangesets, f.Path)
			} else {
				activeChangesets = append(activeChangesets, f.Path)
			}
			continue
		}
		codeChanges = append(codeChanges, f)
	}

	affectedSet := make(map[string]bool)
	for _, f := range codeChanges {
		pkg, ok := owningPackage(ws, f.Path)
		if !ok {
			continue
		}
		if req.Ignore.matches(req.Ignore.Workspace, f.Path) {
			continue
		}
		if req.Ignore.matches(req.Ignore.PerPackage[pkg.Name], relativeToPackage(ws, pkg, f.Path)) {
			continue
		}
		affectedSet[pkg.Name] = true
	}
	affected := make([]string, 0, len(affectedSet))
	for name := range affectedSet {
		affected = append(affected, name)
	}

	coveredSet, err := namesFromChangesetFiles(fs, ws.Root, activeChangesets)
	if err != nil {
		return nil, err
	}

	var uncovered []string
	for _, name := range affected {
		if !coveredSet[name] {
			uncovered = append(uncovered, name)
		}
	}

	var forbidden []string
	if !req.AllowChangesetDeletion {
		forbidden = deletedChangesets
	}

	outcome := &Outcome{
		ChangedChangesets:  activeChangesets,
		DeletedChangesets:  deletedChangesets,
		AffectedPackages:   affected,
		UncoveredPackages:  uncovered,
		ForbiddenDeletions: forbidden,
	}
	outcome.Passed = len(uncovered) == 0 && len(forbidden) == 0
	return outcome, nil
}

// namesFromChangesetFiles reads each active changeset at head and collects
// every package name it declares, the *coverage* rule's "named by" set.
func namesFromChangesetFiles(fs afero.Fs, root string, paths []string) (map[string]bool, error) {
	out := make(map[string]bool, len(paths))
	for _, path := range paths {
		content, err := afero.ReadFile(fs, filepath.Join(root, path))
		if err != nil {
			return nil, fmt.Errorf("reading changeset %s: %w", path, err)
		}
		cs, err := changesetio.Parse(path, content)
		if err != nil {
			return nil, err
		}
		for _, name := range cs.Names() {
			out[name] = true
		}
	}
	return out, nil
}

// owningPackage maps a diff path (repo-root-relative, as go-git reports it)
// to the workspace member whose root it falls under, preferring the
// longest matching package path for nested members.
func owningPackage(ws *domain.Workspace, path string) (domain.PackageInfo, bool) {
	var best domain.PackageInfo
	bestRel := ""
	found := false
	for _, pkg := range ws.Packages {
		rel, err := filepath.Rel(ws.Root, pkg.Path)
		if err != nil {
			continue
		}
		rel = filepath.ToSlash(rel)
		if rel == "." {
			rel = ""
		}
		prefix := rel
		if prefix != "" {
			prefix += "/"
		}
		if !strings.HasPrefix(path, prefix) {
			continue
		}
		if !found || len(prefix) > len(bestRel) {
			best = pkg
			bestRel = prefix
			found = true
		}
	}
	return best, found
}

func relativeToPackage(ws *domain.Workspace, pkg domain.PackageInfo, path string) string {
	pkgRel, err := filepath.Rel(ws.Root, pkg.Path)
	if err != nil || pkgRel == "." {
		return path
	}
	rel, err := filepath.Rel(filepath.ToSlash(pkgRel), path)
	if err != nil {
		return path
	}
	return filepath.ToSlash(rel)
}
