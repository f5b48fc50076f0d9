package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/changeset/internal/version"
)

func TestParsePackageReleases_ParsesNameAndBump(t *testing.T) {
	releases, err := parsePackageReleases([]string{"api:minor", "cli:patch"})
	require.NoError(t, err)
	require.Len(t, releases, 2)
	assert.Equal(t, "api", releases[0].Name)
	assert.Equal(t, version.BumpMinor, releases[0].Bump)
	assert.Equal(t, "cli", releases[1].Name)
	assert.Equal(t, version.BumpPatch, releases[1].Bump)
}

func TestParsePackageReleases_RequiresAtLeastOne(t *testing.T) {
	_, err := parsePackageReleases(nil)
	assert.Error(t, err)
}

func TestParsePackageReleases_RejectsMalformedSpec(t *testing.T) {
	_, err := parsePackageReleases([]string{"api"})
	assert.Error(t, err)
}

func TestParsePackageReleases_RejectsUnknownBump(t *testing.T) {
	_, err := parsePackageReleases([]string{"api:huge"})
	assert.Error(t, err)
}
