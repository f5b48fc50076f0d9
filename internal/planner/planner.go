// Package planner aggregates pending changesets and per-package release
// configuration into a deterministic release plan (spec §4.2), grounded on
// the original implementation's changeset-operations::version_planner, with
// the zero-version-policy and prerelease/graduation arithmetic from
// internal/version folded in via per-package release config.
package planner

import (
	"sort"

	"github.com/compozy/changeset/internal/domain"
	"github.com/compozy/changeset/internal/version"
)

// Planner turns changesets plus workspace and configuration into a release plan.
type Planner struct{}

// New constructs a Planner. It holds no state; all inputs are passed to Plan.
func New() *Planner { return &Planner{} }

// Plan implements §4.2's five-step algorithm. Deterministic and
// ordering-preserving: the same inputs always produce the same plan.
func (p *Planner) Plan(
	changesets []domain.Changeset,
	packages []domain.PackageInfo,
	config domain.ReleaseConfig,
	policy version.ZeroVersionPolicy,
) (*domain.ReleasePlan, error) {
	lookup := make(map[string]domain.PackageInfo, len(packages))
	for _, pkg := range packages {
		lookup[pkg.Name] = pkg
	}

	order, bumpsByPackage := AggregateBumps(changesets)
	graduateSet := graduateRequested(changesets)

	plan := &domain.ReleasePlan{}
	seen := make(map[string]bool, len(order))

	// Step 3: every package with at least one aggregated bump.
	for _, name := range order {
		seen[name] = true
		bump, _ := version.MaxBump(bumpsByPackage[name])
		pkg, known := lookup[name]
		if !known {
			plan.UnknownPackages = append(plan.UnknownPackages, name)
			continue
		}
		cfg := config[name]
		graduateZero := cfg.GraduateZero || graduateSet[name]
		release, err := planOne(pkg, &bump, cfg.Prerelease, graduateZero, policy)
		if err != nil {
			return nil, err
		}
		plan.Releases = append(plan.Releases, release)
	}

	// Step 4: packages named in config but absent from aggregation, when the
	// config requests a prerelease or graduation. Config is a map, so its
	// names are sorted first to keep the plan deterministic (§8).
	configOnlyNames := make([]string, 0, len(config))
	for name := range config {
		configOnlyNames = append(configOnlyNames, name)
	}
	sort.Strings(configOnlyNames)

	for _, name := range configOnlyNames {
		cfg := config[name]
		if seen[name] {
			continue
		}
		graduateZero := cfg.GraduateZero || graduateSet[name]
		if cfg.Prerelease == "" && !graduateZero {
			continue
		}
		pkg, known := lookup[name]
		if !known {
			plan.UnknownPackages = append(plan.UnknownPackages, name)
			continue
		}
		release, err := planOne(pkg, nil, cfg.Prerelease, graduateZero, policy)
		if err != nil {
			return nil, err
		}
		plan.Releases = append(plan.Releases, release)
		seen[name] = true
	}

	return plan, nil
}

func planOne(
	pkg domain.PackageInfo,
	bump *version.BumpLevel,
	prerelease string,
	graduateZero bool,
	policy version.ZeroVersionPolicy,
) (domain.PlannedRelease, error) {
	newVersion, effectiveBump, err := version.ComputeNewVersion(pkg.Version, bump, prerelease, graduateZero, policy)
	if err != nil {
		return domain.PlannedRelease{}, err
	}
	return domain.PlannedRelease{
		Name:           pkg.Name,
		CurrentVersion: pkg.Version,
		NewVersion:     newVersion,
		Bump:           effectiveBump,
	}, nil
}

// AggregateBumps implements §4.2 step 1: for each changeset, append each
// directive's bump to a slice keyed by package name, preserving
// first-appearance order of package names across all changesets.
func AggregateBumps(changesets []domain.Changeset) (order []string, bumps map[string][]version.BumpLevel) {
	bumps = make(map[string][]version.BumpLevel)
	for _, cs := range changesets {
		for _, r := range cs.Releases {
			if _, ok := bumps[r.Name]; !ok {
				order = append(order, r.Name)
			}
			bumps[r.Name] = append(bumps[r.Name], r.Bump)
		}
	}
	return order, bumps
}

// graduateRequested implements §4.2 step 2: the set of packages named with
// graduate=true in any changeset.
func graduateRequested(changesets []domain.Changeset) map[string]bool {
	out := make(map[string]bool)
	if len(changesets) == 0 {
		return out
	}
	for _, cs := range changesets {
		if !cs.Graduate {
			continue
		}
		for _, r := range cs.Releases {
			out[r.Name] = true
		}
	}
	return out
}

// PartitionPackages reports which package names have at least one pending
// changeset, and which packages have none.
func PartitionPackages(changesets []domain.Changeset, packages []domain.PackageInfo) (withChangesets map[string]bool, unchanged []domain.PackageInfo) {
	withChangesets = make(map[string]bool)
	for _, cs := range changesets {
		for _, r := range cs.Releases {
			withChangesets[r.Name] = true
		}
	}
	for _, pkg := range packages {
		if !withChangesets[pkg.Name] {
			unchanged = append(unchanged, pkg)
		}
	}
	return withChangesets, unchanged
}

// PlanGraduation implements the graduation planner used when every affected
// package is currently a prerelease and no new prerelease is requested
// (§4.2 "Graduation planner"): one planned release per package, new version
// equal to the current base version with prerelease stripped, effective
// bump patch.
func PlanGraduation(packages []domain.PackageInfo) *domain.ReleasePlan {
	plan := &domain.ReleasePlan{}
	for _, pkg := range packages {
		plan.Releases = append(plan.Releases, domain.PlannedRelease{
			Name:           pkg.Name,
			CurrentVersion: pkg.Version,
			NewVersion:     pkg.Version.StripPrerelease(),
			Bump:           version.BumpPatch,
		})
	}
	return plan
}
