package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

const changesetReadme = `# Changesets

Each file in this directory declares an intended version bump for one or
more packages. Run ` + "`changeset add`" + ` to create one, ` + "`changeset status`" + ` to
see what the next release would do with the pending changesets, and
` + "`changeset release`" + ` to apply them: bump versions, write changelogs, commit,
and tag.

A stable release deletes the changesets it consumes, unless it was run with
` + "`--keep-changesets`" + `; a prerelease marks them consumed and keeps them.
`

// newInitCmd builds the `init` command. The distilled spec names `init` on
// the CLI surface (§6) without describing its behavior; grounded on the
// common changeset-tool convention (and the teacher's own directory
// scaffolding in cmd/container.go's fsRepo setup) it is inferred here to
// mean: create the changeset directory and drop a README explaining what
// the directory is for, so a first-time contributor can find `changeset add`
// without reading documentation elsewhere.
func newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the changeset directory in the current project",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(verbose)
			if err != nil {
				return err
			}

			dir := c.cfg.ChangesetDir
			if err := c.fs.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", dir, err)
			}

			readmePath := filepath.Join(dir, "README.md")
			exists, err := afero.Exists(c.fs, readmePath)
			if err != nil {
				return fmt.Errorf("checking %s: %w", readmePath, err)
			}
			if !exists {
				if err := afero.WriteFile(c.fs, readmePath, []byte(changesetReadme), 0o644); err != nil {
					return fmt.Errorf("writing %s: %w", readmePath, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "initialized %s\n", dir)
			return nil
		},
	}
}
