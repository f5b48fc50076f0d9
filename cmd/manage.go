package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/version"
)

// newManageCmd builds the `manage` parent command grouping the two
// persisted-state editors the spec names (§4.16): `manage pre-release` and
// `manage graduation`. Neither runs the release saga; both read-modify-write
// one state file via internal/releasestate.Store, the same store the
// release and status pipelines load from.
func newManageCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "manage",
		Short: "Edit persisted prerelease and graduation state directly",
	}
	cmd.AddCommand(newManagePrereleaseCmd())
	cmd.AddCommand(newManageGraduationCmd())
	return cmd
}

func newManagePrereleaseCmd() *cobra.Command {
	var (
		setFlags    []string
		removeFlags []string
	)
	cmd := &cobra.Command{
		Use:   "pre-release",
		Short: "Inspect or edit the persisted per-package prerelease tags",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(verbose)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			state, err := c.state.LoadPrerelease(ctx)
			if err != nil {
				return fmt.Errorf("loading prerelease state: %w", err)
			}

			if len(setFlags) == 0 && len(removeFlags) == 0 {
				printPrereleaseState(cmd, state)
				return nil
			}

			next := state.Clone()
			for _, spec := range setFlags {
				pkg, tag, ok := strings.Cut(spec, ":")
				if !ok || pkg == "" || tag == "" {
					return fmt.Errorf("invalid --set value %q: want <package>:<tag>", spec)
				}
				if err := version.ValidatePrereleaseTag(tag); err != nil {
					return fmt.Errorf("invalid prerelease tag for %s: %w", pkg, err)
				}
				next[pkg] = tag
			}
			for _, pkg := range removeFlags {
				delete(next, pkg)
			}

			if err := c.state.SavePrerelease(ctx, next); err != nil {
				return fmt.Errorf("saving prerelease state: %w", err)
			}
			printPrereleaseState(cmd, next)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&setFlags, "set", nil, "persist a prerelease tag, as <package>:<tag> (repeatable)")
	cmd.Flags().StringArrayVar(&removeFlags, "remove", nil, "clear the persisted tag for <package> (repeatable)")
	return cmd
}

func printPrereleaseState(cmd *cobra.Command, state domain.PrereleaseState) {
	out := cmd.OutOrStdout()
	if state.IsEmpty() {
		fmt.Fprintln(out, "no persisted prerelease tags")
		return
	}
	for name, tag := range state {
		fmt.Fprintf(out, "  %s: %s\n", name, tag)
	}
}

func newManageGraduationCmd() *cobra.Command {
	var (
		queueFlags   []string
		dequeueFlags []string
	)
	cmd := &cobra.Command{
		Use:   "graduation",
		Short: "Inspect or edit the persisted 0.x -> 1.0.0 graduation queue",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(verbose)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			state, err := c.state.LoadGraduation(ctx)
			if err != nil {
				return fmt.Errorf("loading graduation state: %w", err)
			}

			if len(queueFlags) == 0 && len(dequeueFlags) == 0 {
				printGraduationState(cmd, state)
				return nil
			}

			next := state
			for _, pkg := range queueFlags {
				next = next.Add(pkg)
			}
			for _, pkg := range dequeueFlags {
				next = next.Remove(pkg)
			}

			if err := c.state.SaveGraduation(ctx, next); err != nil {
				return fmt.Errorf("saving graduation state: %w", err)
			}
			printGraduationState(cmd, next)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&queueFlags, "queue", nil, "queue <package> for graduation (repeatable)")
	cmd.Flags().StringArrayVar(&dequeueFlags, "dequeue", nil, "remove <package> from the graduation queue (repeatable)")
	return cmd
}

func printGraduationState(cmd *cobra.Command, state domain.GraduationState) {
	out := cmd.OutOrStdout()
	if state.IsEmpty() {
		fmt.Fprintln(out, "no packages queued for graduation")
		return
	}
	for _, name := range state.Names() {
		fmt.Fprintf(out, "  %s\n", name)
	}
}
