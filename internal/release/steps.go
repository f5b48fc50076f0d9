package release

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/compozy/changeset/internal/changesetio"
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/manifest"
	"github.com/compozy/changeset/internal/saga"
)

const manifestFilePermissions = 0o644

// The 11 release saga steps, in their exact declaration order (§4.5); each
// reads and writes only fields of the shared SagaData.
var (
	stepRestoreChangelogsSentinel = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "restore-changelogs-sentinel",
		Execute:    func(_ context.Context, _ *Context, data *SagaData) (*SagaData, error) { return data, nil },
		Compensate: compensateRestoreChangelogs,
	}

	stepWriteManifestVersions = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "write-manifest-versions",
		Execute:    executeWriteManifestVersions,
		Compensate: compensateWriteManifestVersions,
	}

	stepUpdateDependencyVersions = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "update-dependency-versions",
		Execute:    executeUpdateDependencyVersions,
		Compensate: compensateUpdateDependencyVersions,
	}

	stepRemoveWorkspaceVersion = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "remove-workspace-version",
		Execute:    executeRemoveWorkspaceVersion,
		Compensate: compensateRemoveWorkspaceVersion,
	}

	stepMarkChangesetsConsumed = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "mark-changesets-consumed",
		Execute:    executeMarkChangesetsConsumed,
		Compensate: compensateMarkChangesetsConsumed,
	}

	stepClearChangesetsConsumed = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "clear-changesets-consumed",
		Execute:    executeClearChangesetsConsumed,
		Compensate: compensateClearChangesetsConsumed,
	}

	stepDeleteChangesetFiles = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "delete-changeset-files",
		Execute:    executeDeleteChangesetFiles,
		Compensate: compensateDeleteChangesetFiles,
	}

	stepStageFiles = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "stage-files",
		Execute:    executeStageFiles,
		Compensate: func(_ context.Context, _ *Context, data *SagaData) error { return nil },
	}

	stepCreateCommit = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "create-commit",
		Execute:    executeCreateCommit,
		Compensate: compensateCreateCommit,
	}

	stepCreateTags = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "create-tags",
		Execute:    executeCreateTags,
		Compensate: compensateCreateTags,
	}

	stepUpdateReleaseState = saga.Step[*Context, *SagaData, *SagaData]{
		Name:       "update-release-state",
		Execute:    executeUpdateReleaseState,
		Compensate: compensateUpdateReleaseState,
	}
)

// Build assembles the 11 steps into an executable saga via the package-level
// generic chain (saga.First/Then/Build); every stage's input and output is
// *SagaData, the shared frame the Design Notes call for.
func Build() *saga.Saga[*Context, *SagaData, *SagaData] {
	b := saga.First(stepRestoreChangelogsSentinel)
	b2 := saga.Then(b, stepWriteManifestVersions)
	b3 := saga.Then(b2, stepUpdateDependencyVersions)
	b4 := saga.Then(b3, stepRemoveWorkspaceVersion)
	b5 := saga.Then(b4, stepMarkChangesetsConsumed)
	b6 := saga.Then(b5, stepClearChangesetsConsumed)
	b7 := saga.Then(b6, stepDeleteChangesetFiles)
	b8 := saga.Then(b7, stepStageFiles)
	b9 := saga.Then(b8, stepCreateCommit)
	b10 := saga.Then(b9, stepCreateTags)
	b11 := saga.Then(b10, stepUpdateReleaseState)
	return b11.Build()
}

// --- Step 1: restore-changelogs sentinel ---

func compensateRestoreChangelogs(_ context.Context, rc *Context, data *SagaData) error {
	for _, b := range data.ChangelogBackups {
		if b.Existed {
			if err := afero.WriteFile(rc.FS, b.Path, b.Content, manifestFilePermissions); err != nil {
				return fmt.Errorf("restoring changelog %s: %w", b.Path, err)
			}
			continue
		}
		if err := rc.FS.Remove(b.Path); err != nil && !isNotExist(err) {
			return fmt.Errorf("removing changelog %s: %w", b.Path, err)
		}
	}
	return nil
}

// --- Step 2: write manifest versions ---

func executeWriteManifestVersions(_ context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	for _, r := range data.Plan.Releases {
		pkg, ok := data.Workspace.Lookup(r.Name)
		if !ok {
			continue
		}
		path := pkg.ManifestPath
		if pkg.InheritsVersion {
			path = data.RootManifestPath
		}
		if err := writeAndVerifyVersion(rc.FS, path, r.NewVersion.String(), pkg.InheritsVersion); err != nil {
			return nil, fmt.Errorf("writing version for %s: %w", r.Name, err)
		}
		data.ManifestUpdates = append(data.ManifestUpdates, ManifestUpdate{
			PackageName: r.Name,
			Path:        path,
			OldVersion:  r.CurrentVersion.String(),
			NewVersion:  r.NewVersion.String(),
		})
	}
	return data, nil
}

func compensateWriteManifestVersions(_ context.Context, rc *Context, data *SagaData) error {
	for _, r := range data.Plan.Releases {
		pkg, ok := data.Workspace.Lookup(r.Name)
		if !ok {
			continue
		}
		path := pkg.ManifestPath
		if pkg.InheritsVersion {
			path = data.RootManifestPath
		}
		if err := writeAndVerifyVersion(rc.FS, path, r.CurrentVersion.String(), pkg.InheritsVersion); err != nil {
			return fmt.Errorf("restoring version for %s: %w", r.Name, err)
		}
	}
	return nil
}

func writeAndVerifyVersion(fs afero.Fs, path, newVersion string, inherited bool) error {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	var out []byte
	if inherited {
		out, err = manifest.SetWorkspaceVersion(content, newVersion)
	} else {
		out, err = manifest.WriteVersion(content, newVersion, false)
	}
	if err != nil {
		return err
	}
	if err := afero.WriteFile(fs, path, out, manifestFilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	got, err := manifest.ReadVersion(out, inherited)
	if err != nil {
		return fmt.Errorf("reading back %s: %w", path, err)
	}
	if got != newVersion {
		return fmt.Errorf("read-back mismatch for %s: wrote %q, read %q", path, newVersion, got)
	}
	return nil
}

// --- Step 3: update dependency versions ---

func executeUpdateDependencyVersions(_ context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	paths := allManifestPaths(data)
	for _, r := range data.Plan.Releases {
		for _, path := range paths {
			changed, err := applyDependencyVersion(rc.FS, path, r.Name, r.NewVersion.String())
			if err != nil {
				return nil, err
			}
			if changed {
				data.DependencyUpdates = append(data.DependencyUpdates, DependencyUpdate{
					ManifestPath: path,
					PackageName:  r.Name,
					OldVersion:   r.CurrentVersion.String(),
					NewVersion:   r.NewVersion.String(),
				})
			}
		}
	}
	return data, nil
}

func applyDependencyVersion(fs afero.Fs, path, pkgName, newVersion string) (bool, error) {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	out, changed := manifest.UpdateDependencyVersion(content, pkgName, newVersion)
	if !changed {
		return false, nil
	}
	if err := afero.WriteFile(fs, path, out, manifestFilePermissions); err != nil {
		return false, fmt.Errorf("writing %s: %w", path, err)
	}
	return true, nil
}

func compensateUpdateDependencyVersions(_ context.Context, rc *Context, data *SagaData) error {
	for _, u := range data.DependencyUpdates {
		if _, err := applyDependencyVersion(rc.FS, u.ManifestPath, u.PackageName, u.OldVersion); err != nil {
			return fmt.Errorf("reverting dependency version for %s in %s: %w", u.PackageName, u.ManifestPath, err)
		}
	}
	return nil
}

func allManifestPaths(data *SagaData) []string {
	seen := make(map[string]bool)
	var out []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		out = append(out, p)
	}
	add(data.RootManifestPath)
	for _, pkg := range data.Workspace.Packages {
		add(pkg.ManifestPath)
	}
	return out
}

// --- Step 4: remove workspace version ---

func executeRemoveWorkspaceVersion(_ context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	if len(data.Workspace.InheritedPackages()) == 0 {
		return data, nil
	}
	content, err := afero.ReadFile(rc.FS, data.RootManifestPath)
	if err != nil {
		return nil, fmt.Errorf("reading root manifest: %w", err)
	}
	out, original, err := manifest.RemoveWorkspaceVersion(content)
	if err != nil {
		return nil, fmt.Errorf("removing workspace version: %w", err)
	}
	if err := afero.WriteFile(rc.FS, data.RootManifestPath, out, manifestFilePermissions); err != nil {
		return nil, fmt.Errorf("writing root manifest: %w", err)
	}
	data.OriginalWorkspaceVer = original
	data.HadWorkspaceVersion = true
	data.WorkspaceVersionRemoved = true
	return data, nil
}

func compensateRemoveWorkspaceVersion(_ context.Context, rc *Context, data *SagaData) error {
	if !data.WorkspaceVersionRemoved {
		return nil
	}
	restored := data.OriginalWorkspaceVer
	if restored == "" && len(data.Plan.Releases) > 0 {
		restored = data.Plan.Releases[0].CurrentVersion.String()
	}
	content, err := afero.ReadFile(rc.FS, data.RootManifestPath)
	if err != nil {
		return fmt.Errorf("reading root manifest: %w", err)
	}
	out, err := manifest.SetWorkspaceVersion(content, restored)
	if err != nil {
		return fmt.Errorf("restoring workspace version: %w", err)
	}
	return afero.WriteFile(rc.FS, data.RootManifestPath, out, manifestFilePermissions)
}

// --- Step 5: mark changesets consumed ---

func executeMarkChangesetsConsumed(_ context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	if !data.IsPrerelease || len(data.PendingChangesets) == 0 || data.Plan.IsEmpty() {
		return data, nil
	}
	marker := data.Plan.Releases[0].NewVersion.String()
	for _, cs := range data.PendingChangesets {
		data.OriginalMarkers = append(data.OriginalMarkers, ChangesetMarkerBackup{Path: cs.Path, OriginalValue: cs.ConsumedForPrerelease})
		cs.ConsumedForPrerelease = marker
		if err := writeChangeset(rc.FS, cs); err != nil {
			return nil, err
		}
		data.MarkedConsumedPaths = append(data.MarkedConsumedPaths, cs.Path)
	}
	return data, nil
}

func compensateMarkChangesetsConsumed(_ context.Context, rc *Context, data *SagaData) error {
	for _, b := range data.OriginalMarkers {
		if b.OriginalValue != "" {
			continue
		}
		if err := rewriteChangesetMarker(rc.FS, b.Path, ""); err != nil {
			return err
		}
	}
	return nil
}

// --- Step 6: clear changesets consumed ---

func executeClearChangesetsConsumed(_ context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	if !data.IsGraduating {
		return data, nil
	}
	for _, cs := range data.AllChangesetsForMarkerSweep() {
		if cs.ConsumedForPrerelease == "" {
			continue
		}
		data.ClearedMarkerBackups = append(data.ClearedMarkerBackups, ChangesetMarkerBackup{Path: cs.Path, OriginalValue: cs.ConsumedForPrerelease})
		cs.ConsumedForPrerelease = ""
		if err := writeChangeset(rc.FS, cs); err != nil {
			return nil, err
		}
		data.ClearedConsumedPaths = append(data.ClearedConsumedPaths, cs.Path)
	}
	return data, nil
}

func compensateClearChangesetsConsumed(_ context.Context, rc *Context, data *SagaData) error {
	for _, b := range data.ClearedMarkerBackups {
		if err := rewriteChangesetMarker(rc.FS, b.Path, b.OriginalValue); err != nil {
			return err
		}
	}
	return nil
}

func writeChangeset(fs afero.Fs, cs *domain.Changeset) error {
	out, err := changesetio.Serialize(cs)
	if err != nil {
		return fmt.Errorf("serializing changeset %s: %w", cs.Path, err)
	}
	if err := afero.WriteFile(fs, cs.Path, out, manifestFilePermissions); err != nil {
		return fmt.Errorf("writing changeset %s: %w", cs.Path, err)
	}
	return nil
}

func rewriteChangesetMarker(fs afero.Fs, path, marker string) error {
	content, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("reading changeset %s: %w", path, err)
	}
	cs, err := changesetio.Parse(path, content)
	if err != nil {
		return fmt.Errorf("parsing changeset %s: %w", path, err)
	}
	cs.ConsumedForPrerelease = marker
	return writeChangeset(fs, cs)
}

// --- Step 7: delete changeset files ---

func executeDeleteChangesetFiles(_ context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	if data.IsPrerelease || data.KeepChangesets {
		return data, nil
	}
	for _, cs := range data.PendingChangesets {
		content, err := afero.ReadFile(rc.FS, cs.Path)
		if err != nil {
			return nil, fmt.Errorf("reading changeset %s before deletion: %w", cs.Path, err)
		}
		data.DeletedChangesetBackups = append(data.DeletedChangesetBackups, ChangesetFileBackup{Path: cs.Path, Content: content})
		if err := rc.FS.Remove(cs.Path); err != nil {
			return nil, fmt.Errorf("deleting changeset %s: %w", cs.Path, err)
		}
		data.DeletedChangesetPaths = append(data.DeletedChangesetPaths, cs.Path)
	}
	return data, nil
}

func compensateDeleteChangesetFiles(_ context.Context, rc *Context, data *SagaData) error {
	for _, b := range data.DeletedChangesetBackups {
		if err := afero.WriteFile(rc.FS, b.Path, b.Content, manifestFilePermissions); err != nil {
			return fmt.Errorf("restoring deleted changeset %s: %w", b.Path, err)
		}
	}
	return nil
}

// --- Step 8: stage files ---

func executeStageFiles(ctx context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	seen := make(map[string]bool)
	var paths []string
	add := func(p string) {
		if p == "" || seen[p] {
			return
		}
		seen[p] = true
		paths = append(paths, p)
	}
	for _, u := range data.ManifestUpdates {
		add(u.Path)
	}
	if data.WorkspaceVersionRemoved {
		add(data.RootManifestPath)
	}
	for _, b := range data.ChangelogBackups {
		add(b.Path)
	}
	for _, u := range data.DependencyUpdates {
		add(u.ManifestPath)
	}
	for _, p := range data.DeletedChangesetPaths {
		add(p)
	}
	sort.Strings(paths)

	if len(paths) > 0 {
		if err := rc.VCS.StageFiles(ctx, paths); err != nil {
			return nil, fmt.Errorf("staging files: %w", err)
		}
	}
	data.StagedFiles = paths
	return data, nil
}

// --- Step 9: create commit ---

func executeCreateCommit(ctx context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	if !data.CommitEnabled || len(data.StagedFiles) == 0 {
		return data, nil
	}
	message := buildCommitTitle(data)
	if body := buildCommitBody(data); body != "" {
		message = message + "\n\n" + body
	}
	result, err := rc.VCS.Commit(ctx, message)
	if err != nil {
		return nil, fmt.Errorf("creating commit: %w", err)
	}
	data.Commit = &result
	return data, nil
}

func compensateCreateCommit(ctx context.Context, rc *Context, data *SagaData) error {
	if data.Commit == nil {
		return nil
	}
	if err := rc.VCS.ResetToParent(ctx); err != nil {
		return fmt.Errorf("resetting to parent commit: %w", err)
	}
	return nil
}

func buildCommitTitle(data *SagaData) string {
	template := data.CommitTemplate
	if template == "" {
		template = "chore(release): {new-version}"
	}
	var parts []string
	for _, r := range data.Plan.Releases {
		parts = append(parts, fmt.Sprintf("%s@v%s", r.Name, r.NewVersion.String()))
	}
	return strings.ReplaceAll(template, "{new-version}", strings.Join(parts, ", "))
}

func buildCommitBody(data *SagaData) string {
	if len(data.Plan.Releases) <= 1 {
		return ""
	}
	var lines []string
	for _, r := range data.Plan.Releases {
		lines = append(lines, fmt.Sprintf("- %s@v%s", r.Name, r.NewVersion.String()))
	}
	return strings.Join(lines, "\n")
}

// --- Step 10: create tags ---

func executeCreateTags(ctx context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	if !data.TagEnabled || data.Commit == nil {
		return data, nil
	}
	for _, r := range data.Plan.Releases {
		name := tagName(data, r)
		tag, err := rc.VCS.CreateTag(ctx, name, fmt.Sprintf("Release %s", name))
		if err != nil {
			for _, created := range data.TagsCreated {
				_ = rc.VCS.DeleteTag(ctx, created.Name)
			}
			data.TagsCreated = nil
			return nil, fmt.Errorf("creating tag %s: %w", name, err)
		}
		data.TagsCreated = append(data.TagsCreated, tag)
	}
	return data, nil
}

func compensateCreateTags(ctx context.Context, rc *Context, data *SagaData) error {
	for _, t := range data.TagsCreated {
		if err := rc.VCS.DeleteTag(ctx, t.Name); err != nil {
			return fmt.Errorf("deleting tag %s: %w", t.Name, err)
		}
	}
	return nil
}

func tagName(data *SagaData, r domain.PlannedRelease) string {
	if data.SinglePackage {
		return "v" + r.NewVersion.String()
	}
	return r.Name + "@v" + r.NewVersion.String()
}

// --- Step 11: update release state ---

func executeUpdateReleaseState(ctx context.Context, rc *Context, data *SagaData) (*SagaData, error) {
	if data.NewPrereleaseState != nil {
		if err := rc.StateStore.SavePrerelease(ctx, *data.NewPrereleaseState); err != nil {
			return nil, fmt.Errorf("saving prerelease state: %w", err)
		}
	}
	if data.NewGraduationState != nil {
		if err := rc.StateStore.SaveGraduation(ctx, *data.NewGraduationState); err != nil {
			return nil, fmt.Errorf("saving graduation state: %w", err)
		}
	}
	return data, nil
}

func compensateUpdateReleaseState(ctx context.Context, rc *Context, data *SagaData) error {
	if data.NewPrereleaseState != nil {
		if err := rc.StateStore.SavePrerelease(ctx, data.OriginalState.Prerelease); err != nil {
			return fmt.Errorf("restoring prerelease state: %w", err)
		}
	}
	if data.NewGraduationState != nil {
		if err := rc.StateStore.SaveGraduation(ctx, data.OriginalState.Graduation); err != nil {
			return fmt.Errorf("restoring graduation state: %w", err)
		}
	}
	return nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}
