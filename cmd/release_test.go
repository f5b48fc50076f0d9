package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReleaseInput_GlobalAndPerPackagePrerelease(t *testing.T) {
	input, err := parseReleaseInput([]string{"beta", "api:rc"}, nil, false)
	require.NoError(t, err)
	assert.Equal(t, "beta", input.GlobalPrerelease)
	assert.Equal(t, "rc", input.PackagePrerelease["api"])
}

func TestParseReleaseInput_RejectsSecondBarePrerelease(t *testing.T) {
	_, err := parseReleaseInput([]string{"beta", "rc"}, nil, false)
	assert.Error(t, err)
}

func TestParseReleaseInput_GraduateBareAndNamed(t *testing.T) {
	input, err := parseReleaseInput(nil, []string{"", "api"}, false)
	require.NoError(t, err)
	assert.True(t, input.GraduateAll)
	assert.True(t, input.GraduatePackages["api"])
}

func TestParseReleaseInput_ForceFlagPassesThrough(t *testing.T) {
	input, err := parseReleaseInput(nil, nil, true)
	require.NoError(t, err)
	assert.True(t, input.Force)
}
