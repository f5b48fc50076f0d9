// Package vcs wraps go-git for the handful of version-control operations
// the release saga and the verify pipeline need: diffing, staging,
// committing, tagging, and resetting. Grounded directly on the teacher's
// internal/repository.gitRepository (git_impl.go), keeping its method
// names and go-git usage patterns but replacing the teacher's
// branch/PR-oriented surface (CreateBranch, PushBranch, DeleteRemoteBranch,
// ...) with the diff/tag/commit operations this spec's saga steps and
// verify operation actually call, plus ChangedFiles(base, head) which the
// teacher never needed because it never diffs two arbitrary refs.
package vcs

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/utils/merkletrie"
)

// FileStatus classifies one changed path between two refs.
type FileStatus int

const (
	StatusAdded FileStatus = iota
	StatusModified
	StatusDeleted
	StatusRenamed
)

func (s FileStatus) String() string {
	switch s {
	case StatusAdded:
		return "added"
	case StatusModified:
		return "modified"
	case StatusDeleted:
		return "deleted"
	case StatusRenamed:
		return "renamed"
	default:
		return "unknown"
	}
}

// ChangedFile is one entry in a base..head diff.
type ChangedFile struct {
	Path    string
	Status  FileStatus
	OldPath string // set only when Status == StatusRenamed
}

// CommitResult is the outcome of creating a commit.
type CommitResult struct {
	SHA     string
	Message string
}

// TagResult is the outcome of creating a tag.
type TagResult struct {
	Name      string
	TargetSHA string
}

// Adapter is the version-control surface the release saga and the verify
// pipeline depend on.
type Adapter interface {
	ChangedFiles(ctx context.Context, base, head string) ([]ChangedFile, error)
	IsWorkingTreeClean(ctx context.Context) (bool, error)
	StageFiles(ctx context.Context, paths []string) error
	DeleteFiles(ctx context.Context, paths []string) error
	Commit(ctx context.Context, message string) (CommitResult, error)
	ResetToParent(ctx context.Context) error
	CreateTag(ctx context.Context, name, message string) (TagResult, error)
	DeleteTag(ctx context.Context, name string) error
	RemoteURL(ctx context.Context) (string, bool)
}

// gitAdapter implements Adapter over a go-git repository opened at the
// working directory root.
type gitAdapter struct {
	repo *git.Repository
}

// Open opens the git repository rooted at dir ("." for the current directory).
func Open(dir string) (Adapter, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("opening git repository: %w", err)
	}
	return &gitAdapter{repo: repo}, nil
}

// ChangedFiles diffs two refs (branch names, tags, or commit-ish strings)
// and reports every path that differs, grounded on go-git's
// object.Commit.Patch / Tree.Diff facility the teacher's narrower adapter
// never exercised.
func (a *gitAdapter) ChangedFiles(_ context.Context, base, head string) ([]ChangedFile, error) {
	baseCommit, err := a.resolveCommit(base)
	if err != nil {
		return nil, fmt.Errorf("resolving base ref %s: %w", base, err)
	}
	headCommit, err := a.resolveCommit(head)
	if err != nil {
		return nil, fmt.Errorf("resolving head ref %s: %w", head, err)
	}

	baseTree, err := baseCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading base tree: %w", err)
	}
	headTree, err := headCommit.Tree()
	if err != nil {
		return nil, fmt.Errorf("reading head tree: %w", err)
	}

	changes, err := baseTree.Diff(headTree)
	if err != nil {
		return nil, fmt.Errorf("diffing %s..%s: %w", base, head, err)
	}

	out := make([]ChangedFile, 0, len(changes))
	for _, c := range changes {
		action, err := c.Action()
		if err != nil {
			return nil, fmt.Errorf("reading change action: %w", err)
		}
		switch action {
		case merkletrie.Insert:
			out = append(out, ChangedFile{Path: c.To.Name, Status: StatusAdded})
		case merkletrie.Delete:
			out = append(out, ChangedFile{Path: c.From.Name, Status: StatusDeleted})
		default:
			if c.From.Name != "" && c.To.Name != "" && c.From.Name != c.To.Name {
				out = append(out, ChangedFile{Path: c.To.Name, Status: StatusRenamed, OldPath: c.From.Name})
			} else {
				out = append(out, ChangedFile{Path: c.To.Name, Status: StatusModified})
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func (a *gitAdapter) resolveCommit(ref string) (*object.Commit, error) {
	hash, err := a.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return nil, err
	}
	return a.repo.CommitObject(*hash)
}

// IsWorkingTreeClean reports whether the worktree has no staged or
// unstaged changes, grounded on the teacher's GetFileStatus's use of
// worktree.Status().
func (a *gitAdapter) IsWorkingTreeClean(_ context.Context) (bool, error) {
	w, err := a.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}
	status, err := w.Status()
	if err != nil {
		return false, fmt.Errorf("getting worktree status: %w", err)
	}
	return status.IsClean(), nil
}

// StageFiles stages each path individually, tolerating paths that no
// longer exist (deletions are staged the same way).
func (a *gitAdapter) StageFiles(_ context.Context, paths []string) error {
	w, err := a.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	for _, p := range paths {
		if _, err := w.Add(p); err != nil {
			return fmt.Errorf("staging %s: %w", p, err)
		}
	}
	return nil
}

// DeleteFiles removes each path from the working tree and stages the deletion.
func (a *gitAdapter) DeleteFiles(_ context.Context, paths []string) error {
	w, err := a.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	for _, p := range paths {
		if _, err := w.Remove(p); err != nil {
			return fmt.Errorf("removing %s: %w", p, err)
		}
	}
	return nil
}

// Commit creates a commit from the currently staged changes.
func (a *gitAdapter) Commit(_ context.Context, message string) (CommitResult, error) {
	w, err := a.repo.Worktree()
	if err != nil {
		return CommitResult{}, fmt.Errorf("getting worktree: %w", err)
	}
	hash, err := w.Commit(message, &git.CommitOptions{})
	if err != nil {
		return CommitResult{}, fmt.Errorf("creating commit: %w", err)
	}
	return CommitResult{SHA: hash.String(), Message: message}, nil
}

// ResetToParent performs a hard reset to HEAD~1, the saga's commit-step
// compensation, grounded on the teacher's ResetHard.
func (a *gitAdapter) ResetToParent(_ context.Context) error {
	w, err := a.repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}
	hash, err := a.repo.ResolveRevision(plumbing.Revision("HEAD~1"))
	if err != nil {
		return fmt.Errorf("resolving HEAD~1: %w", err)
	}
	if err := w.Reset(&git.ResetOptions{Commit: *hash, Mode: git.HardReset}); err != nil {
		return fmt.Errorf("resetting to parent commit: %w", err)
	}
	return nil
}

// CreateTag creates an annotated tag at HEAD.
func (a *gitAdapter) CreateTag(_ context.Context, name, message string) (TagResult, error) {
	head, err := a.repo.Head()
	if err != nil {
		return TagResult{}, fmt.Errorf("getting HEAD: %w", err)
	}
	_, err = a.repo.CreateTag(name, head.Hash(), &git.CreateTagOptions{
		Message: message,
		Tagger: &object.Signature{
			Name:  "changeset",
			Email: "changeset@localhost",
			When:  time.Now(),
		},
	})
	if err != nil {
		return TagResult{}, fmt.Errorf("creating tag %s: %w", name, err)
	}
	return TagResult{Name: name, TargetSHA: head.Hash().String()}, nil
}

// DeleteTag removes a tag reference, used for best-effort self-rollback
// when a later tag in the batch fails to create, and by the saga's
// compensation for the tag-creation step.
func (a *gitAdapter) DeleteTag(_ context.Context, name string) error {
	if err := a.repo.DeleteTag(name); err != nil && err != git.ErrTagNotFound {
		return fmt.Errorf("deleting tag %s: %w", name, err)
	}
	return nil
}

// RemoteURL returns the "origin" remote's first URL, if configured, used
// to build changelog comparison links.
func (a *gitAdapter) RemoteURL(_ context.Context) (string, bool) {
	remote, err := a.repo.Remote("origin")
	if err != nil {
		return "", false
	}
	cfg := remote.Config()
	if len(cfg.URLs) == 0 {
		return "", false
	}
	return cfg.URLs[0], true
}
