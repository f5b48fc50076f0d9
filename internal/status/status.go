// Package status implements the read-only "what would release do right
// now" projection (§4.8): the same discovery and planning machinery as
// internal/release, run with no saga and no mutation. Grounded on the
// teacher's internal/usecase.checkChanges / calculateVersion pattern of
// read-only collaborators composed without a saga.
package status

import (
	"context"
	"fmt"

	"github.com/spf13/afero"

	"github.com/compozy/changeset/internal/changesetio"
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/planner"
	"github.com/compozy/changeset/internal/releasestate"
	"github.com/compozy/changeset/internal/version"
	"github.com/compozy/changeset/internal/workspace"
)

// ChangesetStatus pairs a changeset's file path with the prerelease
// version it was consumed for, or "" if still pending.
type ChangesetStatus struct {
	Path                  string
	ConsumedForPrerelease string
}

// Report is everything the status operation surfaces, per §4.8's list.
type Report struct {
	Workspace *domain.Workspace

	PendingChangesetPaths []string
	Plan                  *domain.ReleasePlan

	// AggregatedBumps maps package name to every bump level declared
	// against it across all pending changesets, in first-appearance order
	// of the package names (mirrors planner.AggregateBumps' contract).
	AggregatedBumpOrder []string
	AggregatedBumps     map[string][]version.BumpLevel

	UnchangedPackages []domain.PackageInfo
	InheritedPackages []domain.PackageInfo
	UnknownPackages   []string

	Changesets []ChangesetStatus
}

// Request configures the status operation's inputs, mirroring the subset
// of release.Request that planning (but not execution) needs.
type Request struct {
	StartDir          string
	ChangesetDir      string
	ZeroVersionPolicy version.ZeroVersionPolicy
}

// Run computes a Report without touching the filesystem beyond reads.
func Run(ctx context.Context, fs afero.Fs, store *releasestate.Store, req Request) (*Report, error) {
	ws, err := workspace.Discover(fs, req.StartDir)
	if err != nil {
		return nil, fmt.Errorf("discovering workspace: %w", err)
	}
	changesetDir := req.ChangesetDir
	if changesetDir == "" {
		changesetDir = ws.Root + "/.changeset"
	}
	all, err := changesetio.ReadDir(fs, changesetDir)
	if err != nil {
		return nil, fmt.Errorf("reading changesets: %w", err)
	}
	_, err = store.LoadPrerelease(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading prerelease state: %w", err)
	}

	var pending []*domain.Changeset
	report := &Report{Workspace: ws}
	for _, cs := range all {
		report.Changesets = append(report.Changesets, ChangesetStatus{
			Path:                  cs.Path,
			ConsumedForPrerelease: cs.ConsumedForPrerelease,
		})
		if !cs.IsConsumed() {
			pending = append(pending, cs)
			report.PendingChangesetPaths = append(report.PendingChangesetPaths, cs.Path)
		}
	}

	pendingValues := make([]domain.Changeset, 0, len(pending))
	for _, cs := range pending {
		pendingValues = append(pendingValues, *cs)
	}

	report.AggregatedBumpOrder, report.AggregatedBumps = planner.AggregateBumps(pendingValues)
	_, report.UnchangedPackages = planner.PartitionPackages(pendingValues, ws.Packages)
	report.InheritedPackages = ws.InheritedPackages()

	plan, err := planner.New().Plan(pendingValues, ws.Packages, domain.ReleaseConfig{}, req.ZeroVersionPolicy)
	if err != nil {
		return nil, fmt.Errorf("planning release: %w", err)
	}
	report.Plan = plan
	report.UnknownPackages = plan.UnknownPackages

	return report, nil
}
