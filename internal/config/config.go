// Package config loads project configuration: viper-based load with
// environment-variable binding (multiple fallback names, matching the
// teacher's BindEnv fallback chains), generalized
// from the teacher's GitHub-token/owner/repo surface (irrelevant here,
// this spec has no GitHub integration) to the changeset release pipeline's
// own knobs: changeset directory, zero-version policy, commit template,
// tag format, changelog comparison-link requirement, and ignore patterns.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/viper"

	"github.com/compozy/changeset/internal/version"
)

// Config is the fully resolved project configuration for one invocation.
type Config struct {
	ChangesetDir           string `mapstructure:"changeset_dir"`
	ZeroVersionPolicy      string `mapstructure:"zero_version_policy"` // "effective-minor" | "auto-promote-on-major"
	CommitTemplate         string `mapstructure:"commit_template"`
	TagFormat              string `mapstructure:"tag_format"` // "" means default per-workspace-kind format
	RequireComparisonLinks bool   `mapstructure:"require_comparison_links"`
	EcosystemHint          string `mapstructure:"ecosystem_hint"`

	IgnoreWorkspace []string            `mapstructure:"ignore_workspace"`
	IgnorePackages  map[string][]string `mapstructure:"ignore_packages"`
}

var configFileCandidates = []string{".changeset-release", ".compozy-changeset"}

// ForceInteractiveEnvVar is the one recognized boolean-ish environment
// variable (distilled spec §6): forces interactive mode on in non-TTY
// contexts, for testing.
const ForceInteractiveEnvVar = "CHANGESET_FORCE_INTERACTIVE"

// DefaultConfig returns a Config with default values.
func DefaultConfig() *Config {
	return &Config{
		ChangesetDir:      ".changeset",
		ZeroVersionPolicy: "effective-minor",
		CommitTemplate:    "chore(release): {new-version}",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.ChangesetDir == "" {
		return fmt.Errorf("changeset_dir cannot be empty")
	}
	if strings.Contains(c.ChangesetDir, "..") {
		return fmt.Errorf("changeset_dir contains invalid path traversal")
	}
	if _, err := c.ParsedZeroVersionPolicy(); err != nil {
		return err
	}
	return nil
}

// ParsedZeroVersionPolicy translates the configured policy string into the
// version package's enum, defaulting to EffectiveMinor when unset.
func (c *Config) ParsedZeroVersionPolicy() (version.ZeroVersionPolicy, error) {
	switch c.ZeroVersionPolicy {
	case "", "effective-minor":
		return version.EffectiveMinor, nil
	case "auto-promote-on-major":
		return version.AutoPromoteOnMajor, nil
	default:
		return 0, fmt.Errorf(
			"invalid zero_version_policy %q: must be \"effective-minor\" or \"auto-promote-on-major\"",
			c.ZeroVersionPolicy,
		)
	}
}

// ForceInteractive reports whether the environment requests interactive
// mode in a non-TTY context.
func ForceInteractive() bool {
	v, ok := os.LookupEnv(ForceInteractiveEnvVar)
	if !ok {
		return false
	}
	forced, err := strconv.ParseBool(v)
	return err == nil && forced
}

// LoadConfig reads configuration from the first matching config file plus
// environment overrides, falling back to DefaultConfig's values.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	bindings := map[string][]string{
		"changeset_dir":            {"CHANGESET_DIR", "CHANGESET_RELEASE_DIR"},
		"zero_version_policy":      {"CHANGESET_ZERO_VERSION_POLICY"},
		"commit_template":          {"CHANGESET_COMMIT_TEMPLATE"},
		"tag_format":               {"CHANGESET_TAG_FORMAT"},
		"require_comparison_links": {"CHANGESET_REQUIRE_COMPARISON_LINKS"},
		"ecosystem_hint":           {"CHANGESET_ECOSYSTEM_HINT"},
	}
	for key, envNames := range bindings {
		args := append([]string{key}, envNames...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind %s env: %w", key, err)
		}
	}

	defaults := DefaultConfig()
	v.SetDefault("changeset_dir", defaults.ChangesetDir)
	v.SetDefault("zero_version_policy", defaults.ZeroVersionPolicy)
	v.SetDefault("commit_template", defaults.CommitTemplate)

	for _, name := range configFileCandidates {
		v.SetConfigName(name)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				continue
			}
			return nil, err
		}
		break
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}
