package status_test

import (
	"context"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/changeset/internal/changesetio"
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/releasestate"
	"github.com/compozy/changeset/internal/status"
	"github.com/compozy/changeset/internal/version"
)

func writeChangeset(t *testing.T, fs afero.Fs, path string, cs *domain.Changeset) {
	t.Helper()
	content, err := changesetio.Serialize(cs)
	require.NoError(t, err)
	require.NoError(t, afero.WriteFile(fs, path, content, 0o644))
}

func TestRun_ReportsPendingAndUnchangedPackages(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/Cargo.toml", []byte(`[workspace]
members = ["crates/*"]
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/proj/crates/a/Cargo.toml", []byte(`[package]
name = "pkg-a"
version = "0.1.0"
`), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/proj/crates/b/Cargo.toml", []byte(`[package]
name = "pkg-b"
version = "0.2.0"
`), 0o644))
	writeChangeset(t, fs, "/proj/.changeset/one.md", &domain.Changeset{
		Summary:  "add a feature",
		Category: domain.DefaultCategory,
		Releases: []domain.PackageRelease{{Name: "pkg-a", Bump: version.BumpMinor}},
	})

	store := releasestate.New(fs, "/proj/.changeset")
	report, err := status.Run(context.Background(), fs, store, status.Request{StartDir: "/proj"})
	require.NoError(t, err)

	assert.Equal(t, []string{"/proj/.changeset/one.md"}, report.PendingChangesetPaths)
	require.Len(t, report.UnchangedPackages, 1)
	assert.Equal(t, "pkg-b", report.UnchangedPackages[0].Name)
	require.Len(t, report.Plan.Releases, 1)
	assert.Equal(t, "0.1.0", report.Plan.Releases[0].CurrentVersion.String())
}

func TestRun_ConsumedChangesetsAreNotPending(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/proj/Cargo.toml", []byte(`[package]
name = "pkg-a"
version = "1.0.0"
`), 0o644))
	writeChangeset(t, fs, "/proj/.changeset/one.md", &domain.Changeset{
		Summary:               "add a feature",
		Category:              domain.DefaultCategory,
		ConsumedForPrerelease: "1.1.0-beta.1",
		Releases:              []domain.PackageRelease{{Name: "pkg-a", Bump: version.BumpMinor}},
	})

	store := releasestate.New(fs, "/proj/.changeset")
	report, err := status.Run(context.Background(), fs, store, status.Request{StartDir: "/proj"})
	require.NoError(t, err)

	assert.Empty(t, report.PendingChangesetPaths)
	require.Len(t, report.Changesets, 1)
	assert.Equal(t, "1.1.0-beta.1", report.Changesets[0].ConsumedForPrerelease)
	assert.True(t, report.Plan.IsEmpty())
}
