// Package workspace discovers the project rooted at or above the current
// directory: its kind (single package, virtual workspace, workspace with
// a root package) and its member packages. Grounded on
// NatoNathan-shipyard's internal/ecosystem one-handler-per-manifest-dialect
// pattern, generalized into a single Discover(root) that walks upward to
// the nearest manifest and classifies it, then enumerates members with
// the internal/manifest adapter's read path.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/spf13/afero"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/manifest"
	"github.com/compozy/changeset/internal/version"
)

// ManifestFileName is the manifest dialect this repository speaks: a
// TOML document shaped like a Cargo workspace, per the spec's §6
// "Manifest edits" contract.
const ManifestFileName = "Cargo.toml"

var (
	packageHeader      = regexp.MustCompile(`(?m)^\[package\]\s*$`)
	workspaceHeader    = regexp.MustCompile(`(?m)^\[workspace\]\s*$`)
	membersLineRe      = regexp.MustCompile(`(?m)^members\s*=\s*\[([^\]]*)\]`)
	memberGlobEntryRe  = regexp.MustCompile(`"([^"]+)"`)
	nameLineRe         = regexp.MustCompile(`(?m)^name\s*=\s*"([^"]*)"`)
	inheritedVersionRe = regexp.MustCompile(`(?m)^\[package\.version\]\s*\nworkspace\s*=\s*true`)
)

// Discover walks upward from startDir looking for the nearest manifest,
// then classifies and enumerates the workspace it roots.
func Discover(fs afero.Fs, startDir string) (*domain.Workspace, error) {
	root, content, err := findRootManifest(fs, startDir)
	if err != nil {
		return nil, err
	}

	hasWorkspace := workspaceHeader.Match(content)
	hasPackage := packageHeader.Match(content)

	var kind domain.WorkspaceKind
	switch {
	case hasWorkspace && hasPackage:
		kind = domain.WorkspaceWithRoot
	case hasWorkspace:
		kind = domain.VirtualWorkspace
	default:
		kind = domain.SinglePackage
	}

	ws := &domain.Workspace{
		Kind:         kind,
		Root:         root,
		RootManifest: filepath.Join(root, ManifestFileName),
	}

	switch kind {
	case domain.SinglePackage:
		pkg, err := readPackage(fs, root, root, ws.RootManifest, content)
		if err != nil {
			return nil, fmt.Errorf("reading root package: %w", err)
		}
		ws.Packages = []domain.PackageInfo{pkg}
	case domain.WorkspaceWithRoot:
		pkg, err := readPackage(fs, root, root, ws.RootManifest, content)
		if err != nil {
			return nil, fmt.Errorf("reading root package: %w", err)
		}
		ws.Packages = append(ws.Packages, pkg)
		members, err := readMembers(fs, root, content)
		if err != nil {
			return nil, err
		}
		ws.Packages = append(ws.Packages, members...)
	case domain.VirtualWorkspace:
		members, err := readMembers(fs, root, content)
		if err != nil {
			return nil, err
		}
		ws.Packages = members
	}

	sort.Slice(ws.Packages, func(i, j int) bool { return ws.Packages[i].Name < ws.Packages[j].Name })
	return ws, nil
}

// findRootManifest walks from startDir up to the filesystem root looking
// for the nearest Cargo.toml.
func findRootManifest(fs afero.Fs, startDir string) (string, []byte, error) {
	dir := startDir
	for {
		candidate := filepath.Join(dir, ManifestFileName)
		content, err := afero.ReadFile(fs, candidate)
		if err == nil {
			return dir, content, nil
		}
		if !os.IsNotExist(err) {
			return "", nil, fmt.Errorf("reading %s: %w", candidate, err)
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", nil, fmt.Errorf("no %s found above %s", ManifestFileName, startDir)
		}
		dir = parent
	}
}

// readMembers expands the [workspace] members glob list and reads each
// member's manifest.
func readMembers(fs afero.Fs, root string, rootContent []byte) ([]domain.PackageInfo, error) {
	m := membersLineRe.FindSubmatch(rootContent)
	if m == nil {
		return nil, nil
	}
	var patterns []string
	for _, g := range memberGlobEntryRe.FindAllSubmatch(m[1], -1) {
		patterns = append(patterns, string(g[1]))
	}

	var out []domain.PackageInfo
	for _, pattern := range patterns {
		dirs, err := afero.Glob(fs, filepath.Join(root, pattern, ManifestFileName))
		if err != nil {
			return nil, fmt.Errorf("expanding workspace member pattern %q: %w", pattern, err)
		}
		for _, manifestPath := range dirs {
			memberDir := filepath.Dir(manifestPath)
			content, err := afero.ReadFile(fs, manifestPath)
			if err != nil {
				return nil, fmt.Errorf("reading %s: %w", manifestPath, err)
			}
			pkg, err := readPackage(fs, root, memberDir, manifestPath, content)
			if err != nil {
				return nil, fmt.Errorf("reading package at %s: %w", memberDir, err)
			}
			out = append(out, pkg)
		}
	}
	return out, nil
}

// readPackage parses one package manifest into a domain.PackageInfo,
// resolving an inherited version against the workspace root manifest
// when present.
func readPackage(fs afero.Fs, root, dir, manifestPath string, content []byte) (domain.PackageInfo, error) {
	nameMatch := nameLineRe.FindSubmatch(content)
	if nameMatch == nil {
		return domain.PackageInfo{}, fmt.Errorf("no package name found in %s", manifestPath)
	}
	name := string(nameMatch[1])

	inherits := inheritedVersionRe.Match(content)

	verStr, err := manifest.ReadVersion(content, inherits)
	if err != nil {
		return domain.PackageInfo{}, fmt.Errorf("reading version for %s: %w", name, err)
	}
	if inherits && verStr == "" && dir != root {
		rootContent, rerr := afero.ReadFile(fs, filepath.Join(root, ManifestFileName))
		if rerr == nil {
			verStr, _ = manifest.ReadVersion(rootContent, true)
		}
	}

	v, err := version.Parse(verStr)
	if err != nil {
		return domain.PackageInfo{}, fmt.Errorf("parsing version %q for %s: %w", verStr, name, err)
	}

	return domain.PackageInfo{
		Name:            name,
		Version:         v,
		Path:            dir,
		ManifestPath:    manifestPath,
		InheritsVersion: inherits,
	}, nil
}
