package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/compozy/changeset/internal/changelog"
	"github.com/compozy/changeset/internal/changesetio"
	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/planner"
	"github.com/compozy/changeset/internal/validator"
	"github.com/compozy/changeset/internal/vcs"
	"github.com/compozy/changeset/internal/version"
	"github.com/compozy/changeset/internal/workspace"
)

// Mode classifies the shape of operation the orchestrator decided to run,
// independent of the two booleans (IsPrerelease/IsGraduating) the saga
// itself reads — it exists purely to label the outcome for the caller.
type Mode int

const (
	ModeNormal Mode = iota
	ModeGraduation
	ModePrerelease
	ModeZeroGraduation
)

func (m Mode) String() string {
	switch m {
	case ModeGraduation:
		return "graduation"
	case ModePrerelease:
		return "prerelease"
	case ModeZeroGraduation:
		return "zero-graduation"
	default:
		return "normal"
	}
}

// Request is everything the orchestrator needs beyond the adapters in
// Context: the caller's (cmd layer's) resolved configuration and CLI input.
type Request struct {
	StartDir          string
	ChangesetDir      string // used as given, e.g. ".changeset"; empty means <workspace root>/.changeset
	ChangelogFileName string // e.g. "CHANGELOG.md"; defaults applied if empty

	DryRun           bool
	CommitEnabled    bool
	TagEnabled       bool
	CommitTemplate   string
	KeepChangesets   bool
	ConvertInherited bool

	Input             domain.CLIInput
	ZeroVersionPolicy version.ZeroVersionPolicy

	RequireComparisonLinks bool
}

// Outcome is the orchestrator's result: either a "no changesets" early
// return, a dry-run plan preview, or an executed release.
type Outcome struct {
	Mode         Mode
	DryRun       bool
	NoChangesets bool

	Plan *domain.ReleasePlan

	ChangelogPaths []string

	Commit            *vcs.CommitResult
	TagsCreated       []vcs.TagResult
	ChangesetsDeleted []string
}

// ErrNoChangesetsWithoutForce is returned by step 5's early-return check
// (§4.6) when a prerelease was requested with no pending changesets and
// --force was not given.
var ErrNoChangesetsWithoutForce = errors.New("no pending changesets for this prerelease; pass --force to proceed anyway")

// ErrWorkingTreeDirty is returned when committing is enabled but the
// working tree is not clean (§4.6 step 6).
var ErrWorkingTreeDirty = errors.New("working tree is not clean; commit or stash changes before releasing")

// ErrInheritedVersionsNeedConversion is returned when the workspace has
// inherited-version packages and the caller did not pass --convert.
var ErrInheritedVersionsNeedConversion = errors.New("workspace has inherited-version packages; pass --convert to proceed")

// Run executes the full release orchestration (§4.6's ten steps).
func Run(ctx context.Context, rc *Context, req Request) (*Outcome, error) {
	logger := rc.Logger
	if logger == nil {
		logger = LoggerFrom(ctx)
	}

	logger.Info("release started", zap.String("start_dir", req.StartDir), zap.Bool("dry_run", req.DryRun))

	// Step 1: discover the project.
	ws, err := workspace.Discover(rc.FS, req.StartDir)
	if err != nil {
		logger.Error("workspace discovery failed", zap.Error(err))
		return nil, fmt.Errorf("discovering workspace: %w", err)
	}
	logger.Info("workspace discovered", zap.String("kind", ws.Kind.String()), zap.Int("packages", len(ws.Packages)))
	changesetDir := req.ChangesetDir
	if changesetDir == "" {
		changesetDir = filepath.Join(ws.Root, ".changeset")
	}

	// Step 2 (+7, folded together): load every changeset once, and both
	// state files.
	allChangesets, err := changesetio.ReadDir(rc.FS, changesetDir)
	if err != nil {
		return nil, fmt.Errorf("reading changesets: %w", err)
	}
	prereleaseState, err := rc.StateStore.LoadPrerelease(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading prerelease state: %w", err)
	}
	graduationState, err := rc.StateStore.LoadGraduation(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading graduation state: %w", err)
	}

	// Step 3: validate.
	config, err := validator.Validate(req.Input, prereleaseState, graduationState, ws)
	if err != nil {
		logger.Warn("validation rejected release input", zap.Error(err))
		return nil, err
	}

	// Step 4: decide the operation mode.
	isPrereleaseRequested := false
	for _, cfg := range config {
		if cfg.HasPrerelease() {
			isPrereleaseRequested = true
			break
		}
	}
	var graduatingFromPrerelease []domain.PackageInfo
	if !isPrereleaseRequested {
		for _, pkg := range ws.Packages {
			if !pkg.Version.HasPrerelease() {
				continue
			}
			if graduationState.Contains(pkg.Name) || req.Input.GraduatePackages[pkg.Name] || req.Input.GraduateAll {
				graduatingFromPrerelease = append(graduatingFromPrerelease, pkg)
			}
		}
	}
	isGraduatingFromPrerelease := len(graduatingFromPrerelease) > 0
	isZeroGraduation := false
	for _, cfg := range config {
		if cfg.GraduateZero {
			isZeroGraduation = true
			break
		}
	}

	mode := ModeNormal
	switch {
	case isGraduatingFromPrerelease:
		mode = ModeGraduation
	case isPrereleaseRequested:
		mode = ModePrerelease
	case isZeroGraduation:
		mode = ModeZeroGraduation
	}
	isGraduating := isGraduatingFromPrerelease || isZeroGraduation

	var pendingChangesets, consumedChangesets []*domain.Changeset
	for _, cs := range allChangesets {
		if cs.IsConsumed() {
			consumedChangesets = append(consumedChangesets, cs)
		} else {
			pendingChangesets = append(pendingChangesets, cs)
		}
	}

	logger.Info("release mode decided", zap.String("mode", mode.String()), zap.Int("pending_changesets", len(pendingChangesets)))

	// Step 5: early return.
	if len(pendingChangesets) == 0 && !isGraduating {
		if isPrereleaseRequested && !req.Input.Force {
			logger.Warn("prerelease requested with no pending changesets and no --force")
			return nil, ErrNoChangesetsWithoutForce
		}
		logger.Info("no pending changesets, nothing to release")
		return &Outcome{Mode: mode, NoChangesets: true}, nil
	}

	// Step 6: working tree + inherited-version checks.
	if req.CommitEnabled {
		clean, err := rc.VCS.IsWorkingTreeClean(ctx)
		if err != nil {
			return nil, fmt.Errorf("checking working tree: %w", err)
		}
		if !clean {
			return nil, ErrWorkingTreeDirty
		}
	}
	if len(ws.InheritedPackages()) > 0 && !req.ConvertInherited {
		return nil, ErrInheritedVersionsNeedConversion
	}

	// Step 7: plan.
	var plan *domain.ReleasePlan
	if isGraduatingFromPrerelease {
		plan = planner.PlanGraduation(graduatingFromPrerelease)
	} else {
		pendingValues := make([]domain.Changeset, 0, len(pendingChangesets))
		for _, cs := range pendingChangesets {
			pendingValues = append(pendingValues, *cs)
		}
		plan, err = planner.New().Plan(pendingValues, ws.Packages, config, req.ZeroVersionPolicy)
		if err != nil {
			return nil, fmt.Errorf("planning release: %w", err)
		}
	}

	outcome := &Outcome{Mode: mode, Plan: plan}

	// Step 8: changelog snapshots + generation, unless dry-run.
	var changelogBackups []ChangelogSnapshot
	if !req.DryRun {
		changelogFileName := req.ChangelogFileName
		if changelogFileName == "" {
			changelogFileName = "CHANGELOG.md"
		}
		singlePackage := ws.Kind == domain.SinglePackage
		// Graduation releases no new changesets of their own; the
		// summaries worth aggregating are the ones consumed by the
		// prerelease being graduated out of, plus any still pending.
		changelogSource := pendingChangesets
		if isGraduatingFromPrerelease {
			changelogSource = append(append([]*domain.Changeset{}, consumedChangesets...), pendingChangesets...)
		}
		for _, r := range plan.Releases {
			pkg, ok := ws.Lookup(r.Name)
			if !ok {
				continue
			}
			path := filepath.Join(pkg.Path, changelogFileName)
			existing, readErr := afero.ReadFile(rc.FS, path)
			existed := readErr == nil
			changelogBackups = append(changelogBackups, ChangelogSnapshot{Path: path, Existed: existed, Content: existing})

			entries := changelog.EntriesForPackage(changelogSource, r.Name)
			compareURL := ""
			if remote, ok := rc.VCS.RemoteURL(ctx); ok {
				compareURL = changelog.CompareURL(remote, tagNameFor(singlePackage, r.Name, r.CurrentVersion.String()), tagNameFor(singlePackage, r.Name, r.NewVersion.String()))
			} else if req.RequireComparisonLinks {
				return nil, changelog.ErrComparisonLinkRequired
			}
			section := changelog.Render(r.NewVersion.String(), time.Now(), entries, compareURL)
			updated := changelog.Prepend(existing, section)
			if err := afero.WriteFile(rc.FS, path, updated, 0o644); err != nil {
				return nil, fmt.Errorf("writing changelog %s: %w", path, err)
			}
			outcome.ChangelogPaths = append(outcome.ChangelogPaths, path)
		}
	}

	// Step 9: dry-run returns the plan; otherwise build SagaData and execute.
	if req.DryRun {
		outcome.DryRun = true
		return outcome, nil
	}

	data := &SagaData{
		Plan:             plan,
		Workspace:        ws,
		ChangesetDir:     changesetDir,
		RootManifestPath: ws.RootManifest,

		IsPrerelease:   isPrereleaseRequested,
		IsGraduating:   isGraduating,
		KeepChangesets: req.KeepChangesets,

		PendingChangesets:  pendingChangesets,
		ConsumedChangesets: consumedChangesets,

		CommitEnabled:  req.CommitEnabled,
		TagEnabled:     req.TagEnabled,
		CommitTemplate: req.CommitTemplate,
		SinglePackage:  ws.Kind == domain.SinglePackage,

		ChangelogBackups: changelogBackups,

		OriginalState: StateBackup{Prerelease: prereleaseState, Graduation: graduationState},
	}

	if isPrereleaseRequested {
		newState := prereleaseState.Clone()
		for name, cfg := range config {
			if cfg.HasPrerelease() {
				newState[name] = cfg.Prerelease
			}
		}
		data.NewPrereleaseState = &newState
	}
	if isGraduatingFromPrerelease {
		newState := graduationState
		for _, pkg := range graduatingFromPrerelease {
			newState = newState.Remove(pkg.Name)
		}
		data.NewGraduationState = &newState
	} else if isZeroGraduation {
		newState := graduationState
		for name, cfg := range config {
			if cfg.GraduateZero {
				newState = newState.Remove(name)
			}
		}
		data.NewGraduationState = &newState
	}

	saga := Build()
	result, err := saga.Execute(ctx, rc, data)
	if err != nil {
		logger.Error("release saga failed and was compensated", zap.Error(err))
		return nil, fmt.Errorf("executing release saga: %w", err)
	}

	outcome.Commit = result.Commit
	outcome.TagsCreated = result.TagsCreated
	outcome.ChangesetsDeleted = result.DeletedChangesetPaths
	logger.Info("release completed", zap.Int("releases", len(plan.Releases)), zap.Int("tags_created", len(result.TagsCreated)))
	return outcome, nil
}

func tagNameFor(singlePackage bool, name, ver string) string {
	if singlePackage {
		return "v" + ver
	}
	return name + "@v" + ver
}
