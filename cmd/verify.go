package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/changeset/internal/verify"
)

// newVerifyCmd builds the `verify` command, the CI-facing "does this branch
// carry a changeset for everything it touches" check (§4.9), generalized
// from the teacher's dry-run command's CI-output flag pattern.
func newVerifyCmd() *cobra.Command {
	var (
		baseRef        string
		headRef        string
		allowDeletions bool
	)

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check that every changed package has a covering changeset",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(verbose)
			if err != nil {
				return err
			}
			ws, err := discoverWorkspace(c)
			if err != nil {
				return err
			}

			outcome, err := verify.Run(cmd.Context(), c.fs, c.vcs, ws, verify.Request{
				BaseRef:                baseRef,
				HeadRef:                headRef,
				ChangesetDir:           c.cfg.ChangesetDir,
				AllowChangesetDeletion: allowDeletions,
				Ignore: verify.IgnoreRules{
					Workspace:  c.cfg.IgnoreWorkspace,
					PerPackage: c.cfg.IgnorePackages,
				},
			})
			if err != nil {
				return err
			}
			printVerifyOutcome(cmd, outcome)
			if !outcome.Passed {
				return fmt.Errorf("verify failed: %d uncovered package(s), %d forbidden changeset deletion(s)",
					len(outcome.UncoveredPackages), len(outcome.ForbiddenDeletions))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&baseRef, "base", "HEAD~1", "base ref to diff from")
	cmd.Flags().StringVar(&headRef, "head", "HEAD", "head ref to diff to")
	cmd.Flags().BoolVar(&allowDeletions, "allow-changeset-deletion", false, "allow changeset files to be deleted in this diff")
	return cmd
}

func printVerifyOutcome(cmd *cobra.Command, outcome *verify.Outcome) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "affected packages: %v\n", outcome.AffectedPackages)
	if len(outcome.UncoveredPackages) > 0 {
		fmt.Fprintf(out, "uncovered packages: %v\n", outcome.UncoveredPackages)
	}
	if len(outcome.ForbiddenDeletions) > 0 {
		fmt.Fprintf(out, "forbidden changeset deletions: %v\n", outcome.ForbiddenDeletions)
	}
}
