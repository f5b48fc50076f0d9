package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/changeset/internal/version"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { require.NoError(t, os.Chdir(wd)) })
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, ".changeset", cfg.ChangesetDir)
	assert.Equal(t, "chore(release): {new-version}", cfg.CommitTemplate)
}

func TestValidateRejectsEmptyChangesetDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChangesetDir = ""
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPathTraversal(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChangesetDir = "../escape"
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsUnknownZeroVersionPolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ZeroVersionPolicy = "bogus"
	assert.Error(t, cfg.Validate())
}

func TestParsedZeroVersionPolicy(t *testing.T) {
	cfg := DefaultConfig()
	policy, err := cfg.ParsedZeroVersionPolicy()
	require.NoError(t, err)
	assert.Equal(t, version.EffectiveMinor, policy)

	cfg.ZeroVersionPolicy = "auto-promote-on-major"
	policy, err = cfg.ParsedZeroVersionPolicy()
	require.NoError(t, err)
	assert.Equal(t, version.AutoPromoteOnMajor, policy)
}

func TestForceInteractive(t *testing.T) {
	t.Setenv(ForceInteractiveEnvVar, "")
	assert.False(t, ForceInteractive())

	t.Setenv(ForceInteractiveEnvVar, "true")
	assert.True(t, ForceInteractive())

	t.Setenv(ForceInteractiveEnvVar, "false")
	assert.False(t, ForceInteractive())
}

func TestLoadConfigUsesDefaultsWithNoConfigFile(t *testing.T) {
	wd := t.TempDir()
	chdir(t, wd)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ".changeset", cfg.ChangesetDir)
}

func TestLoadConfigHonorsEnvOverride(t *testing.T) {
	wd := t.TempDir()
	chdir(t, wd)
	t.Setenv("CHANGESET_DIR", "changes")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "changes", cfg.ChangesetDir)
}
