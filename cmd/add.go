package cmd

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/compozy/changeset/internal/changesetio"
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/version"
)

// newAddCmd builds the `add` command. Like `init`, the distilled spec names
// `add` on the CLI surface (§6) without detailing its flags; inferred here,
// grounded on the file format internal/changesetio already implements, as
// a non-interactive authoring command: repeated --package <name>:<bump>
// flags plus --summary and optional --category/--graduate build one
// changeset, serialized via changesetio.Serialize under a
// google/uuid-generated filename (generalizing the teacher's
// uuid.New()-per-session convention from saga_executor.go to
// uuid.New()-per-changeset-file).
func newAddCmd() *cobra.Command {
	var (
		packages []string
		summary  string
		category string
		graduate bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a new changeset declaring an intended version bump",
		RunE: func(cmd *cobra.Command, _ []string) error {
			c, err := newContainer(verbose)
			if err != nil {
				return err
			}

			ws, err := discoverWorkspace(c)
			if err != nil {
				return err
			}

			releases, err := parsePackageReleases(packages)
			if err != nil {
				return err
			}
			for _, r := range releases {
				if _, ok := ws.Lookup(r.Name); !ok {
					return fmt.Errorf("unknown package %q", r.Name)
				}
			}

			cat := domain.DefaultCategory
			if category != "" {
				cat, err = domain.ParseCategory(category)
				if err != nil {
					return err
				}
			}
			if summary == "" {
				return fmt.Errorf("--summary is required")
			}

			cs := &domain.Changeset{
				Summary:  summary,
				Releases: releases,
				Category: cat,
				Graduate: graduate,
			}
			if err := cs.Validate(); err != nil {
				return err
			}

			content, err := changesetio.Serialize(cs)
			if err != nil {
				return fmt.Errorf("serializing changeset: %w", err)
			}

			path := filepath.Join(c.cfg.ChangesetDir, uuid.New().String()+".md")
			if err := c.fs.MkdirAll(c.cfg.ChangesetDir, 0o755); err != nil {
				return fmt.Errorf("creating %s: %w", c.cfg.ChangesetDir, err)
			}
			if err := afero.WriteFile(c.fs, path, content, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", path, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", path)
			return nil
		},
	}

	cmd.Flags().StringArrayVar(&packages, "package", nil, "a <name>:<bump> release entry (repeatable, required)")
	cmd.Flags().StringVar(&summary, "summary", "", "one-line summary for the changelog entry (required)")
	cmd.Flags().StringVar(&category, "category", "", "change category: added, changed, fixed, security, deprecated, removed")
	cmd.Flags().BoolVar(&graduate, "graduate", false, "request 0.x -> 1.0.0 graduation for the named packages")
	return cmd
}

func parsePackageReleases(specs []string) ([]domain.PackageRelease, error) {
	if len(specs) == 0 {
		return nil, fmt.Errorf("at least one --package <name>:<bump> is required")
	}
	releases := make([]domain.PackageRelease, 0, len(specs))
	for _, spec := range specs {
		name, bumpStr, ok := strings.Cut(spec, ":")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --package value %q: want <name>:<bump>", spec)
		}
		bump, err := version.ParseBumpLevel(bumpStr)
		if err != nil {
			return nil, fmt.Errorf("package %s: %w", name, err)
		}
		releases = append(releases, domain.PackageRelease{Name: name, Bump: bump})
	}
	return releases, nil
}
