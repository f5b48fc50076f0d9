package planner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/planner"
	"github.com/compozy/changeset/internal/version"
)

func pkg(t *testing.T, name, ver string) domain.PackageInfo {
	t.Helper()
	v, err := version.Parse(ver)
	require.NoError(t, err)
	return domain.PackageInfo{Name: name, Version: v, Path: "/mock/" + name}
}

func changeset(pkgName string, bump version.BumpLevel, summary string) domain.Changeset {
	return domain.Changeset{
		Summary:  summary,
		Releases: []domain.PackageRelease{{Name: pkgName, Bump: bump}},
	}
}

func multiChangeset(summary string, pairs ...struct {
	Name string
	Bump version.BumpLevel
}) domain.Changeset {
	cs := domain.Changeset{Summary: summary}
	for _, pr := range pairs {
		cs.Releases = append(cs.Releases, domain.PackageRelease{Name: pr.Name, Bump: pr.Bump})
	}
	return cs
}

func TestPlan_EmptyChangesetsReturnsEmptyPlan(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "my-crate", "1.0.0")}
	plan, err := planner.New().Plan(nil, packages, nil, version.EffectiveMinor)
	require.NoError(t, err)
	assert.Empty(t, plan.Releases)
	assert.Empty(t, plan.UnknownPackages)
}

func TestPlan_SinglePackageSingleBump(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "my-crate", "1.0.0")}
	changesets := []domain.Changeset{changeset("my-crate", version.BumpPatch, "Fix bug")}

	plan, err := planner.New().Plan(changesets, packages, nil, version.EffectiveMinor)
	require.NoError(t, err)
	require.Len(t, plan.Releases, 1)
	assert.Empty(t, plan.UnknownPackages)

	release := plan.Releases[0]
	assert.Equal(t, "my-crate", release.Name)
	assert.Equal(t, "1.0.0", release.CurrentVersion.String())
	assert.Equal(t, "1.0.1", release.NewVersion.String())
	assert.Equal(t, version.BumpPatch, release.Bump)
}

func TestPlan_SinglePackageTakesMaxBump(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "my-crate", "1.0.0")}
	changesets := []domain.Changeset{
		changeset("my-crate", version.BumpPatch, "Fix bug"),
		changeset("my-crate", version.BumpMinor, "Add feature"),
		changeset("my-crate", version.BumpPatch, "Another fix"),
	}

	plan, err := planner.New().Plan(changesets, packages, nil, version.EffectiveMinor)
	require.NoError(t, err)
	require.Len(t, plan.Releases, 1)
	assert.Equal(t, "1.1.0", plan.Releases[0].NewVersion.String())
	assert.Equal(t, version.BumpMinor, plan.Releases[0].Bump)
}

func TestPlan_MultiplePackagesIndependentBumps(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "crate-a", "1.0.0"), pkg(t, "crate-b", "2.5.3")}
	changesets := []domain.Changeset{
		changeset("crate-a", version.BumpMinor, "Add feature to A"),
		changeset("crate-b", version.BumpMajor, "Breaking change in B"),
	}

	plan, err := planner.New().Plan(changesets, packages, nil, version.EffectiveMinor)
	require.NoError(t, err)
	require.Len(t, plan.Releases, 2)
	assert.Empty(t, plan.UnknownPackages)

	releaseA, ok := plan.Lookup("crate-a")
	require.True(t, ok)
	assert.Equal(t, "1.1.0", releaseA.NewVersion.String())

	releaseB, ok := plan.Lookup("crate-b")
	require.True(t, ok)
	assert.Equal(t, "3.0.0", releaseB.NewVersion.String())
}

func TestPlan_UnknownPackageCollectedNotErrored(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "known-crate", "1.0.0")}
	changesets := []domain.Changeset{changeset("unknown-crate", version.BumpPatch, "Fix")}

	plan, err := planner.New().Plan(changesets, packages, nil, version.EffectiveMinor)
	require.NoError(t, err)
	assert.Empty(t, plan.Releases)
	assert.Equal(t, []string{"unknown-crate"}, plan.UnknownPackages)
}

func TestPlan_MixedKnownAndUnknownPackages(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "known-crate", "1.0.0")}
	changesets := []domain.Changeset{
		multiChangeset("Mixed changes",
			struct {
				Name string
				Bump version.BumpLevel
			}{"known-crate", version.BumpMinor},
			struct {
				Name string
				Bump version.BumpLevel
			}{"unknown-crate", version.BumpPatch},
		),
	}

	plan, err := planner.New().Plan(changesets, packages, nil, version.EffectiveMinor)
	require.NoError(t, err)
	require.Len(t, plan.Releases, 1)
	assert.Equal(t, "known-crate", plan.Releases[0].Name)
	assert.Equal(t, []string{"unknown-crate"}, plan.UnknownPackages)
}

func TestAggregateBumps_CollectsAllBumpTypes(t *testing.T) {
	changesets := []domain.Changeset{
		changeset("crate-a", version.BumpPatch, "Fix"),
		changeset("crate-a", version.BumpMinor, "Feature"),
		changeset("crate-b", version.BumpMajor, "Breaking"),
	}

	order, bumps := planner.AggregateBumps(changesets)
	assert.Equal(t, []string{"crate-a", "crate-b"}, order)
	assert.Equal(t, []version.BumpLevel{version.BumpPatch, version.BumpMinor}, bumps["crate-a"])
	assert.Equal(t, []version.BumpLevel{version.BumpMajor}, bumps["crate-b"])
}

func TestPartitionPackages_IdentifiesChangedAndUnchanged(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "changed", "1.0.0"), pkg(t, "unchanged", "2.0.0")}
	changesets := []domain.Changeset{changeset("changed", version.BumpPatch, "Fix")}

	with, without := planner.PartitionPackages(changesets, packages)
	assert.True(t, with["changed"])
	assert.False(t, with["unchanged"])
	require.Len(t, without, 1)
	assert.Equal(t, "unchanged", without[0].Name)
}

func TestPlan_HandlesPrereleaseVersions(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "my-crate", "1.0.0-alpha.1")}
	changesets := []domain.Changeset{changeset("my-crate", version.BumpPatch, "Fix")}

	plan, err := planner.New().Plan(changesets, packages, nil, version.EffectiveMinor)
	require.NoError(t, err)
	require.Len(t, plan.Releases, 1)
	release := plan.Releases[0]
	assert.Equal(t, "1.0.0-alpha.1", release.CurrentVersion.String())
	assert.True(t, release.NewVersion.Compare(release.CurrentVersion) > 0)
}

func TestPlan_ZeroMajorVersion(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "my-crate", "0.1.0")}
	changesets := []domain.Changeset{changeset("my-crate", version.BumpMajor, "Breaking")}

	plan, err := planner.New().Plan(changesets, packages, nil, version.AutoPromoteOnMajor)
	require.NoError(t, err)
	require.Len(t, plan.Releases, 1)
	assert.Equal(t, "0.1.0", plan.Releases[0].CurrentVersion.String())
	assert.Equal(t, "1.0.0", plan.Releases[0].NewVersion.String())
}

func TestPlan_ConfigOnlyPackageWithoutChangesetEmitsPrereleaseEntry(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "my-crate", "1.0.0")}
	config := domain.ReleaseConfig{
		"my-crate": {Prerelease: "alpha"},
	}

	plan, err := planner.New().Plan(nil, packages, config, version.EffectiveMinor)
	require.NoError(t, err)
	require.Len(t, plan.Releases, 1)
	assert.Equal(t, "1.0.1-alpha.1", plan.Releases[0].NewVersion.String())
}

func TestPlanGraduation(t *testing.T) {
	packages := []domain.PackageInfo{pkg(t, "my-crate", "1.0.1-rc.2")}
	plan := planner.PlanGraduation(packages)
	require.Len(t, plan.Releases, 1)
	assert.Equal(t, "1.0.1", plan.Releases[0].NewVersion.String())
	assert.Equal(t, version.BumpPatch, plan.Releases[0].Bump)
}
