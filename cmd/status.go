package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/compozy/changeset/internal/status"
)

// newStatusCmd builds the `status` command, a thin CLI wrapper over
// internal/status.Run the way the teacher's NewDryRunCmd wraps
// orchestrator.DryRunOrchestrator.Execute: load config, run the read-only
// pipeline, print a report.
func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show what the next release would do, without changing anything",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(verbose)
			if err != nil {
				return err
			}
			policy, err := c.cfg.ParsedZeroVersionPolicy()
			if err != nil {
				return err
			}
			report, err := status.Run(cmd.Context(), c.fs, c.state, status.Request{
				StartDir:          ".",
				ChangesetDir:      c.cfg.ChangesetDir,
				ZeroVersionPolicy: policy,
			})
			if err != nil {
				return err
			}
			printStatusReport(cmd, report)
			return nil
		},
	}
	return cmd
}

func printStatusReport(cmd *cobra.Command, report *status.Report) {
	out := cmd.OutOrStdout()
	if len(report.PendingChangesetPaths) == 0 {
		fmt.Fprintln(out, "no pending changesets")
	} else {
		fmt.Fprintf(out, "%d pending changeset(s):\n", len(report.PendingChangesetPaths))
		for _, p := range report.PendingChangesetPaths {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}

	if report.Plan != nil && len(report.Plan.Releases) > 0 {
		fmt.Fprintln(out, "planned releases:")
		for _, r := range report.Plan.Releases {
			fmt.Fprintf(out, "  %s: %s -> %s (%s)\n", r.Name, r.CurrentVersion, r.NewVersion, r.Bump)
		}
	}

	if len(report.Plan.UnknownPackages) > 0 {
		fmt.Fprintf(out, "unknown packages named by changesets: %v\n", report.Plan.UnknownPackages)
	}
	if len(report.InheritedPackages) > 0 {
		names := make([]string, len(report.InheritedPackages))
		for i, p := range report.InheritedPackages {
			names[i] = p.Name
		}
		fmt.Fprintf(out, "packages with an inherited version (need --convert to release): %v\n", names)
	}
}
