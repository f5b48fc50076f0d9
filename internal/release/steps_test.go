package release

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/changeset/internal/changesetio"
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/releasestate"
	"github.com/compozy/changeset/internal/vcs"
	"github.com/compozy/changeset/internal/version"
)

// fakeVCS is a minimal in-memory vcs.Adapter used to exercise steps 8-10
// without a real git repository.
type fakeVCS struct {
	staged       []string
	deleted      []string
	committed    []string
	tagsCreated  []string
	tagsDeleted  []string
	resetCalls   int
	commitFails  bool
	failTagAfter int // CreateTag fails once len(tagsCreated) reaches this count; 0 disables
	dirty        bool
}

func (f *fakeVCS) ChangedFiles(context.Context, string, string) ([]vcs.ChangedFile, error) { return nil, nil }
func (f *fakeVCS) IsWorkingTreeClean(context.Context) (bool, error)                        { return !f.dirty, nil }

func (f *fakeVCS) StageFiles(_ context.Context, paths []string) error {
	f.staged = append(f.staged, paths...)
	return nil
}

func (f *fakeVCS) DeleteFiles(_ context.Context, paths []string) error {
	f.deleted = append(f.deleted, paths...)
	return nil
}

func (f *fakeVCS) Commit(_ context.Context, message string) (vcs.CommitResult, error) {
	if f.commitFails {
		return vcs.CommitResult{}, assert.AnError
	}
	f.committed = append(f.committed, message)
	return vcs.CommitResult{SHA: "deadbeef", Message: message}, nil
}

func (f *fakeVCS) ResetToParent(context.Context) error {
	f.resetCalls++
	return nil
}

func (f *fakeVCS) CreateTag(_ context.Context, name, _ string) (vcs.TagResult, error) {
	if f.failTagAfter > 0 && len(f.tagsCreated) >= f.failTagAfter {
		return vcs.TagResult{}, assert.AnError
	}
	f.tagsCreated = append(f.tagsCreated, name)
	return vcs.TagResult{Name: name, TargetSHA: "deadbeef"}, nil
}

func (f *fakeVCS) DeleteTag(_ context.Context, name string) error {
	f.tagsDeleted = append(f.tagsDeleted, name)
	return nil
}

func (f *fakeVCS) RemoteURL(context.Context) (string, bool) { return "", false }

func newTestContext(t *testing.T) (*Context, *fakeVCS) {
	fs := afero.NewMemMapFs()
	v := &fakeVCS{}
	store := releasestate.New(fs, "/repo/.changeset")
	return &Context{FS: fs, VCS: v, StateStore: store}, v
}

func mustVersion(t *testing.T, s string) *version.Version {
	v, err := version.Parse(s)
	require.NoError(t, err)
	return v
}

func basicWorkspace() *domain.Workspace {
	return &domain.Workspace{
		Kind:         domain.SinglePackage,
		Root:         "/repo",
		RootManifest: "/repo/Cargo.toml",
		Packages: []domain.PackageInfo{
			{Name: "pkg-a", ManifestPath: "/repo/Cargo.toml"},
		},
	}
}

func basicPlan(t *testing.T) *domain.ReleasePlan {
	return &domain.ReleasePlan{
		Releases: []domain.PlannedRelease{
			{Name: "pkg-a", CurrentVersion: mustVersion(t, "1.0.0"), NewVersion: mustVersion(t, "1.1.0"), Bump: version.BumpMinor},
		},
	}
}

func TestWriteManifestVersions_ExecuteAndCompensate(t *testing.T) {
	rc, _ := newTestContext(t)
	require.NoError(t, afero.WriteFile(rc.FS, "/repo/Cargo.toml", []byte("[package]\nname = \"pkg-a\"\nversion = \"1.0.0\"\n"), 0o644))

	data := &SagaData{Plan: basicPlan(t), Workspace: basicWorkspace(), RootManifestPath: "/repo/Cargo.toml"}
	out, err := executeWriteManifestVersions(context.Background(), rc, data)
	require.NoError(t, err)
	require.Len(t, out.ManifestUpdates, 1)

	content, err := afero.ReadFile(rc.FS, "/repo/Cargo.toml")
	require.NoError(t, err)
	assert.Contains(t, string(content), `version = "1.1.0"`)

	require.NoError(t, compensateWriteManifestVersions(context.Background(), rc, out))
	content, err = afero.ReadFile(rc.FS, "/repo/Cargo.toml")
	require.NoError(t, err)
	assert.Contains(t, string(content), `version = "1.0.0"`)
}

func TestUpdateDependencyVersions_ExecuteAndCompensate(t *testing.T) {
	rc, _ := newTestContext(t)
	ws := basicWorkspace()
	ws.Packages = append(ws.Packages, domain.PackageInfo{Name: "pkg-b", ManifestPath: "/repo/pkg-b/Cargo.toml"})
	require.NoError(t, afero.WriteFile(rc.FS, "/repo/Cargo.toml", []byte("[package]\nname = \"pkg-a\"\nversion = \"1.0.0\"\n"), 0o644))
	require.NoError(t, afero.WriteFile(rc.FS, "/repo/pkg-b/Cargo.toml", []byte(
		"[package]\nname = \"pkg-b\"\nversion = \"2.0.0\"\n\n[dependencies]\npkg-a = { version = \"1.0.0\" }\n"), 0o644))

	data := &SagaData{Plan: basicPlan(t), Workspace: ws, RootManifestPath: "/repo/Cargo.toml"}
	out, err := executeUpdateDependencyVersions(context.Background(), rc, data)
	require.NoError(t, err)
	require.Len(t, out.DependencyUpdates, 1)

	content, err := afero.ReadFile(rc.FS, "/repo/pkg-b/Cargo.toml")
	require.NoError(t, err)
	assert.Contains(t, string(content), `pkg-a = { version = "1.1.0" }`)

	require.NoError(t, compensateUpdateDependencyVersions(context.Background(), rc, out))
	content, err = afero.ReadFile(rc.FS, "/repo/pkg-b/Cargo.toml")
	require.NoError(t, err)
	assert.Contains(t, string(content), `pkg-a = { version = "1.0.0" }`)
}

func TestRemoveWorkspaceVersion_ExecuteAndCompensate(t *testing.T) {
	rc, _ := newTestContext(t)
	require.NoError(t, afero.WriteFile(rc.FS, "/repo/Cargo.toml", []byte(
		"[workspace]\nmembers = [\"crates/*\"]\n\n[workspace.package]\nversion = \"0.5.0\"\n"), 0o644))

	ws := &domain.Workspace{Root: "/repo", RootManifest: "/repo/Cargo.toml", Packages: []domain.PackageInfo{
		{Name: "pkg-a", InheritsVersion: true, ManifestPath: "/repo/crates/a/Cargo.toml"},
	}}
	data := &SagaData{Plan: basicPlan(t), Workspace: ws, RootManifestPath: "/repo/Cargo.toml"}

	out, err := executeRemoveWorkspaceVersion(context.Background(), rc, data)
	require.NoError(t, err)
	assert.True(t, out.WorkspaceVersionRemoved)
	assert.Equal(t, "0.5.0", out.OriginalWorkspaceVer)

	content, err := afero.ReadFile(rc.FS, "/repo/Cargo.toml")
	require.NoError(t, err)
	assert.NotContains(t, string(content), "version")

	require.NoError(t, compensateRemoveWorkspaceVersion(context.Background(), rc, out))
	content, err = afero.ReadFile(rc.FS, "/repo/Cargo.toml")
	require.NoError(t, err)
	assert.Contains(t, string(content), `version = "0.5.0"`)
}

func changesetAt(path, summary string, consumed string) *domain.Changeset {
	return &domain.Changeset{
		Path:                  path,
		Summary:               summary,
		Releases:              []domain.PackageRelease{{Name: "pkg-a", Bump: version.BumpMinor}},
		ConsumedForPrerelease: consumed,
	}
}

func TestMarkChangesetsConsumed_ExecuteAndCompensate(t *testing.T) {
	rc, _ := newTestContext(t)
	cs := changesetAt("/repo/.changeset/one.md", "adds a thing", "")
	out, err := writeChangesetForTest(rc.FS, cs)
	require.NoError(t, err)
	_ = out

	data := &SagaData{
		Plan:              &domain.ReleasePlan{Releases: []domain.PlannedRelease{{Name: "pkg-a", NewVersion: mustVersion(t, "1.1.0-alpha.0")}}},
		IsPrerelease:      true,
		PendingChangesets: []*domain.Changeset{cs},
	}
	result, err := executeMarkChangesetsConsumed(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0-alpha.0", cs.ConsumedForPrerelease)
	require.Len(t, result.OriginalMarkers, 1)

	require.NoError(t, compensateMarkChangesetsConsumed(context.Background(), rc, result))
	content, err := afero.ReadFile(rc.FS, cs.Path)
	require.NoError(t, err)
	reparsed, err := changesetio.Parse(cs.Path, content)
	require.NoError(t, err)
	assert.Equal(t, "", reparsed.ConsumedForPrerelease)
}

func writeChangesetForTest(fs afero.Fs, cs *domain.Changeset) (*domain.Changeset, error) {
	if err := writeChangeset(fs, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

func TestClearChangesetsConsumed_ExecuteAndCompensate(t *testing.T) {
	rc, _ := newTestContext(t)
	cs := changesetAt("/repo/.changeset/one.md", "adds a thing", "1.1.0-alpha.0")
	_, err := writeChangesetForTest(rc.FS, cs)
	require.NoError(t, err)

	data := &SagaData{IsGraduating: true, ConsumedChangesets: []*domain.Changeset{cs}}
	result, err := executeClearChangesetsConsumed(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Equal(t, "", cs.ConsumedForPrerelease)
	require.Len(t, result.ClearedMarkerBackups, 1)

	require.NoError(t, compensateClearChangesetsConsumed(context.Background(), rc, result))
	content, err := afero.ReadFile(rc.FS, cs.Path)
	require.NoError(t, err)
	reparsed, err := changesetio.Parse(cs.Path, content)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0-alpha.0", reparsed.ConsumedForPrerelease)
}

func TestDeleteChangesetFiles_SkippedForPrerelease(t *testing.T) {
	rc, _ := newTestContext(t)
	cs := changesetAt("/repo/.changeset/one.md", "adds a thing", "")
	_, err := writeChangesetForTest(rc.FS, cs)
	require.NoError(t, err)

	data := &SagaData{IsPrerelease: true, PendingChangesets: []*domain.Changeset{cs}}
	out, err := executeDeleteChangesetFiles(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Empty(t, out.DeletedChangesetPaths)
	exists, err := afero.Exists(rc.FS, cs.Path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestDeleteChangesetFiles_ExecuteAndCompensate(t *testing.T) {
	rc, _ := newTestContext(t)
	cs := changesetAt("/repo/.changeset/one.md", "adds a thing", "")
	_, err := writeChangesetForTest(rc.FS, cs)
	require.NoError(t, err)

	data := &SagaData{PendingChangesets: []*domain.Changeset{cs}}
	out, err := executeDeleteChangesetFiles(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Equal(t, []string{cs.Path}, out.DeletedChangesetPaths)
	exists, err := afero.Exists(rc.FS, cs.Path)
	require.NoError(t, err)
	assert.False(t, exists)

	require.NoError(t, compensateDeleteChangesetFiles(context.Background(), rc, out))
	exists, err = afero.Exists(rc.FS, cs.Path)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestCreateCommit_SkippedWhenNothingStaged(t *testing.T) {
	rc, fv := newTestContext(t)
	data := &SagaData{CommitEnabled: true, Plan: basicPlan(t)}
	out, err := executeCreateCommit(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Nil(t, out.Commit)
	assert.Empty(t, fv.committed)
}

func TestCreateCommit_BuildsTitleFromTemplate(t *testing.T) {
	rc, fv := newTestContext(t)
	data := &SagaData{
		CommitEnabled:  true,
		CommitTemplate: "release: {new-version}",
		Plan:           basicPlan(t),
		StagedFiles:    []string{"/repo/Cargo.toml"},
	}
	out, err := executeCreateCommit(context.Background(), rc, data)
	require.NoError(t, err)
	require.NotNil(t, out.Commit)
	assert.Equal(t, "release: pkg-a@v1.1.0", fv.committed[0])

	require.NoError(t, compensateCreateCommit(context.Background(), rc, out))
	assert.Equal(t, 1, fv.resetCalls)
}

func TestCreateTags_SinglePackageFormat(t *testing.T) {
	rc, fv := newTestContext(t)
	commit := &vcs.CommitResult{SHA: "deadbeef"}
	data := &SagaData{TagEnabled: true, SinglePackage: true, Plan: basicPlan(t), Commit: commit}
	out, err := executeCreateTags(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"v1.1.0"}, fv.tagsCreated)
	require.Len(t, out.TagsCreated, 1)
}

func TestCreateTags_MultiPackageFormat(t *testing.T) {
	rc, fv := newTestContext(t)
	commit := &vcs.CommitResult{SHA: "deadbeef"}
	data := &SagaData{TagEnabled: true, SinglePackage: false, Plan: basicPlan(t), Commit: commit}
	out, err := executeCreateTags(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"pkg-a@v1.1.0"}, fv.tagsCreated)
	require.NotNil(t, out)
}

func TestCreateTags_MidBatchFailureSelfRollsBack(t *testing.T) {
	rc, fv := newTestContext(t)
	fv.failTagAfter = 1
	commit := &vcs.CommitResult{SHA: "deadbeef"}
	plan := &domain.ReleasePlan{Releases: []domain.PlannedRelease{
		{Name: "pkg-a", CurrentVersion: mustVersion(t, "1.0.0"), NewVersion: mustVersion(t, "1.1.0")},
		{Name: "pkg-b", CurrentVersion: mustVersion(t, "2.0.0"), NewVersion: mustVersion(t, "2.1.0")},
	}}
	data := &SagaData{TagEnabled: true, Plan: plan, Commit: commit}
	_, err := executeCreateTags(context.Background(), rc, data)
	require.Error(t, err)
	assert.Equal(t, []string{"pkg-a@v1.1.0"}, fv.tagsDeleted)
}

func TestCreateTags_CompensateDeletesAllCreated(t *testing.T) {
	rc, fv := newTestContext(t)
	data := &SagaData{TagsCreated: []vcs.TagResult{{Name: "pkg-a@v1.1.0"}, {Name: "pkg-b@v2.1.0"}}}
	require.NoError(t, compensateCreateTags(context.Background(), rc, data))
	assert.Equal(t, []string{"pkg-a@v1.1.0", "pkg-b@v2.1.0"}, fv.tagsDeleted)
}

func TestUpdateReleaseState_ExecuteAndCompensate(t *testing.T) {
	rc, _ := newTestContext(t)
	newState := domain.PrereleaseState{"pkg-a": "1.1.0-alpha.0"}
	data := &SagaData{NewPrereleaseState: &newState, OriginalState: StateBackup{Prerelease: domain.PrereleaseState{}}}

	out, err := executeUpdateReleaseState(context.Background(), rc, data)
	require.NoError(t, err)
	loaded, err := rc.StateStore.LoadPrerelease(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "1.1.0-alpha.0", loaded["pkg-a"])

	require.NoError(t, compensateUpdateReleaseState(context.Background(), rc, out))
	loaded, err = rc.StateStore.LoadPrerelease(context.Background())
	require.NoError(t, err)
	assert.True(t, loaded.IsEmpty())
}

func TestStageFiles_CollectsAndDedupes(t *testing.T) {
	rc, fv := newTestContext(t)
	data := &SagaData{
		ManifestUpdates:       []ManifestUpdate{{Path: "/repo/Cargo.toml"}},
		DependencyUpdates:     []DependencyUpdate{{ManifestPath: "/repo/Cargo.toml"}},
		DeletedChangesetPaths: []string{"/repo/.changeset/one.md"},
	}
	out, err := executeStageFiles(context.Background(), rc, data)
	require.NoError(t, err)
	assert.Equal(t, []string{"/repo/.changeset/one.md", "/repo/Cargo.toml"}, out.StagedFiles)
	assert.ElementsMatch(t, out.StagedFiles, fv.staged)
}
