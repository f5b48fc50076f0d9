package domain

import "github.com/compozy/changeset/internal/version"

// PackageInfo is a workspace member: name (unique within the workspace),
// current version, and filesystem path to the package root. Immutable
// within one release invocation.
type PackageInfo struct {
	Name    string
	Version *version.Version
	Path    string

	// ManifestPath is the package's manifest file (e.g. Cargo.toml, package.json).
	ManifestPath string

	// InheritsVersion is true when the package's manifest declares its
	// version by reference to the workspace root rather than literally.
	InheritsVersion bool
}

// WorkspaceKind determines manifest layout and tag-format defaulting.
type WorkspaceKind int

const (
	// SinglePackage is a workspace consisting of exactly one package at the root.
	SinglePackage WorkspaceKind = iota
	// VirtualWorkspace is a workspace whose root manifest is only a member list.
	VirtualWorkspace
	// WorkspaceWithRoot is a workspace whose root manifest is itself a package.
	WorkspaceWithRoot
)

func (k WorkspaceKind) String() string {
	switch k {
	case SinglePackage:
		return "single-package"
	case VirtualWorkspace:
		return "virtual-workspace"
	case WorkspaceWithRoot:
		return "workspace-with-root"
	default:
		return "unknown"
	}
}

// Workspace is the discovered project: its kind, root path, and member packages.
type Workspace struct {
	Kind         WorkspaceKind
	Root         string
	RootManifest string
	Packages     []PackageInfo
}

// Lookup returns the package named name, if present.
func (w *Workspace) Lookup(name string) (PackageInfo, bool) {
	for _, p := range w.Packages {
		if p.Name == name {
			return p, true
		}
	}
	return PackageInfo{}, false
}

// InheritedPackages returns every member package whose manifest inherits its
// version from the workspace root.
func (w *Workspace) InheritedPackages() []PackageInfo {
	var out []PackageInfo
	for _, p := range w.Packages {
		if p.InheritsVersion {
			out = append(out, p)
		}
	}
	return out
}
