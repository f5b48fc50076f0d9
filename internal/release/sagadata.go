// Package release implements the release saga: the ordered, compensating
// pipeline that turns a validated release plan into manifest edits,
// changelog updates, a commit, and tags. Grounded on the teacher's
// internal/orchestrator (saga_executor.go's retry/rollback mechanics,
// pr_release.go's step sequencing) and internal/domain's rollback_state.go
// (the record-of-everything-to-undo idea, reborn here as SagaData since
// the teacher's own RollbackState/OperationRecord types were shaped around
// PR workflows this spec does not have).
package release

import (
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/vcs"
)

// ChangelogSnapshot is a full-file byte copy of a changelog taken before
// any write, used by step 1's compensation to restore or remove it.
type ChangelogSnapshot struct {
	Path    string
	Existed bool
	Content []byte
}

// ManifestUpdate records a package-version write to one manifest file.
type ManifestUpdate struct {
	PackageName string
	Path        string
	OldVersion  string
	NewVersion  string
}

// DependencyUpdate records one dependency-table entry rewrite inside a
// manifest that is not the dependency's own package manifest.
type DependencyUpdate struct {
	ManifestPath string
	PackageName  string // the dependency being repointed
	OldVersion   string
	NewVersion   string
}

// ChangesetMarkerBackup pairs a changeset path with the consumed-marker
// value it held before a step changed it.
type ChangesetMarkerBackup struct {
	Path          string
	OriginalValue string
}

// ChangesetFileBackup is a deleted changeset's full content, captured
// before deletion so step 7's compensation can restore it.
type ChangesetFileBackup struct {
	Path    string
	Content []byte
}

// StateBackup captures both release states as loaded before the release so
// step 11's compensation can save them back.
type StateBackup struct {
	Prerelease domain.PrereleaseState
	Graduation domain.GraduationState
}

// SagaData is the single mutable record threaded through every release
// saga step (the "saga frame" of DESIGN NOTES' cyclic/graph-references
// guidance): the plan, paths, captured pre-operation state used for
// compensation, and the running results each step produces. Every step
// receives and returns the same *SagaData; fields that must be undone on
// failure are populated *before* the corresponding effect is performed.
type SagaData struct {
	// Inputs, fixed for the saga's duration.
	Plan             *domain.ReleasePlan
	Workspace        *domain.Workspace
	ChangesetDir     string
	RootManifestPath string

	IsPrerelease   bool // this release assigns a prerelease identifier
	IsGraduating   bool // at least one package transitions prerelease -> stable or 0.x -> 1.0.0
	KeepChangesets bool

	PendingChangesets  []*domain.Changeset // not yet folded into any prerelease
	ConsumedChangesets []*domain.Changeset // already folded into a prior prerelease

	CommitEnabled  bool
	TagEnabled     bool
	CommitTemplate string
	SinglePackage  bool // governs tag-name format: "v{version}" vs "{name}@v{version}"

	NewPrereleaseState *domain.PrereleaseState // nil when unchanged
	NewGraduationState *domain.GraduationState // nil when unchanged

	// Captured pre-operation state, populated by the orchestrator before
	// the saga runs (changelog snapshots) or by steps themselves just
	// before they act (everything else).
	ChangelogBackups        []ChangelogSnapshot
	OriginalWorkspaceVer    string
	HadWorkspaceVersion     bool
	OriginalMarkers         []ChangesetMarkerBackup
	ClearedMarkerBackups    []ChangesetMarkerBackup
	DeletedChangesetBackups []ChangesetFileBackup
	OriginalState           StateBackup

	// Running results, populated by each step as it acts.
	ManifestUpdates         []ManifestUpdate
	DependencyUpdates       []DependencyUpdate
	WorkspaceVersionRemoved bool
	MarkedConsumedPaths     []string
	ClearedConsumedPaths    []string
	DeletedChangesetPaths   []string
	StagedFiles             []string
	Commit                  *vcs.CommitResult
	TagsCreated             []vcs.TagResult
}

// AllChangesetsForMarkerSweep returns pending + consumed changesets, the
// superset step 6 ("clear changesets consumed") scans for non-empty
// markers.
func (d *SagaData) AllChangesetsForMarkerSweep() []*domain.Changeset {
	out := make([]*domain.Changeset, 0, len(d.PendingChangesets)+len(d.ConsumedChangesets))
	out = append(out, d.PendingChangesets...)
	out = append(out, d.ConsumedChangesets...)
	return out
}
