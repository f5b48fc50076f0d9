package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/release"
)

// newReleaseCmd builds the `release` command, the CLI surface over
// internal/release.Run, generalized from the teacher's NewPRReleaseCmd
// (which wired orchestrator.PRReleaseConfig's flags one-for-one into a
// cobra command) to this spec's release flag set (§4.16).
func newReleaseCmd() *cobra.Command {
	var (
		dryRun         bool
		convert        bool
		noCommit       bool
		noTags         bool
		keepChangesets bool
		force          bool
		prereleaseFlag []string
		graduateFlag   []string
	)

	cmd := &cobra.Command{
		Use:   "release",
		Short: "Apply pending changesets: bump versions, write changelogs, commit, and tag",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(verbose)
			if err != nil {
				return err
			}

			input, err := parseReleaseInput(prereleaseFlag, graduateFlag, force)
			if err != nil {
				return err
			}

			policy, err := c.cfg.ParsedZeroVersionPolicy()
			if err != nil {
				return err
			}

			req := release.Request{
				StartDir:               ".",
				ChangesetDir:           c.cfg.ChangesetDir,
				DryRun:                 dryRun,
				CommitEnabled:          !noCommit,
				TagEnabled:             !noTags,
				CommitTemplate:         c.cfg.CommitTemplate,
				KeepChangesets:         keepChangesets,
				ConvertInherited:       convert,
				Input:                  input,
				ZeroVersionPolicy:      policy,
				RequireComparisonLinks: c.cfg.RequireComparisonLinks,
			}

			outcome, err := release.Run(cmd.Context(), c.releaseContext(), req)
			if err != nil {
				return err
			}
			printReleaseOutcome(cmd, outcome)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "compute the plan without writing, committing, or tagging anything")
	cmd.Flags().BoolVar(&convert, "convert", false, "convert inherited-version packages to explicit versions before releasing")
	cmd.Flags().BoolVar(&noCommit, "no-commit", false, "skip committing the release changes")
	cmd.Flags().BoolVar(&noTags, "no-tags", false, "skip creating release tags")
	cmd.Flags().BoolVar(&keepChangesets, "keep-changesets", false, "do not delete consumed changeset files")
	cmd.Flags().BoolVar(&force, "force", false, "with a prerelease requested and no pending changesets, report nothing to release instead of failing")
	cmd.Flags().StringArrayVar(&prereleaseFlag, "prerelease", nil,
		"request a prerelease, as <tag> (all packages) or <pkg>:<tag> (repeatable)")
	cmd.Flags().StringArrayVar(&graduateFlag, "graduate", nil,
		"graduate a package to 1.0.0, as a bare flag (all eligible) or <pkg> (repeatable)")
	cmd.Flags().Lookup("graduate").NoOptDefVal = ""
	return cmd
}

// parseReleaseInput turns the repeatable --prerelease/--graduate flags into
// a domain.CLIInput, the same "pkg:value or bare value" convention the
// spec's CLI surface describes for both flags.
func parseReleaseInput(prereleaseFlag, graduateFlag []string, force bool) (domain.CLIInput, error) {
	input := domain.CLIInput{
		PackagePrerelease: map[string]string{},
		GraduatePackages:  map[string]bool{},
		Force:             force,
	}
	for _, spec := range prereleaseFlag {
		pkg, tag, scoped := strings.Cut(spec, ":")
		if !scoped {
			if input.GlobalPrerelease != "" {
				return input, fmt.Errorf("--prerelease may only be given once without a package prefix")
			}
			input.GlobalPrerelease = pkg
			continue
		}
		input.PackagePrerelease[pkg] = tag
	}
	for _, pkg := range graduateFlag {
		if pkg == "" {
			input.GraduateAll = true
			continue
		}
		input.GraduatePackages[pkg] = true
	}
	return input, nil
}

func printReleaseOutcome(cmd *cobra.Command, outcome *release.Outcome) {
	out := cmd.OutOrStdout()
	if outcome.NoChangesets {
		fmt.Fprintln(out, "no pending changesets; nothing to release")
		return
	}
	if outcome.DryRun {
		fmt.Fprintf(out, "dry run (%s mode):\n", outcome.Mode)
		for _, r := range outcome.Plan.Releases {
			fmt.Fprintf(out, "  %s: %s -> %s (%s)\n", r.Name, r.CurrentVersion, r.NewVersion, r.Bump)
		}
		return
	}
	fmt.Fprintf(out, "released (%s mode):\n", outcome.Mode)
	for _, r := range outcome.Plan.Releases {
		fmt.Fprintf(out, "  %s: %s -> %s (%s)\n", r.Name, r.CurrentVersion, r.NewVersion, r.Bump)
	}
	for _, t := range outcome.TagsCreated {
		fmt.Fprintf(out, "  tag: %s\n", t.Name)
	}
	if outcome.Commit != nil {
		fmt.Fprintf(out, "  commit: %s\n", outcome.Commit.SHA)
	}
}
