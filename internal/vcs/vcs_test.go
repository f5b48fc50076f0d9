package vcs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/changeset/internal/vcs"
)

func initRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()
	repo, err := gogit.PlainInit(dir, false)
	require.NoError(t, err)
	return dir, repo
}

func commitFile(t *testing.T, dir string, repo *gogit.Repository, name, content string) string {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	w, err := repo.Worktree()
	require.NoError(t, err)
	_, err = w.Add(name)
	require.NoError(t, err)
	hash, err := w.Commit("commit "+name, &gogit.CommitOptions{
		Author: &object.Signature{Name: "tester", Email: "tester@localhost", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func TestCommit_And_IsWorkingTreeClean(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "README.md", "hello\n")

	adapter, err := vcs.Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	clean, err := adapter.IsWorkingTreeClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("new"), 0o644))
	require.NoError(t, adapter.StageFiles(ctx, []string{"a.txt"}))

	clean, err = adapter.IsWorkingTreeClean(ctx)
	require.NoError(t, err)
	assert.False(t, clean)

	result, err := adapter.Commit(ctx, "add a.txt")
	require.NoError(t, err)
	assert.NotEmpty(t, result.SHA)

	clean, err = adapter.IsWorkingTreeClean(ctx)
	require.NoError(t, err)
	assert.True(t, clean)
}

func TestCreateTag_And_DeleteTag(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "README.md", "hello\n")

	adapter, err := vcs.Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	tag, err := adapter.CreateTag(ctx, "v1.0.0", "release v1.0.0")
	require.NoError(t, err)
	assert.Equal(t, "v1.0.0", tag.Name)
	assert.NotEmpty(t, tag.TargetSHA)

	require.NoError(t, adapter.DeleteTag(ctx, "v1.0.0"))
	require.NoError(t, adapter.DeleteTag(ctx, "v1.0.0")) // idempotent
}

func TestResetToParent_UndoesLastCommit(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "README.md", "hello\n")
	commitFile(t, dir, repo, "a.txt", "a\n")

	adapter, err := vcs.Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, adapter.ResetToParent(ctx))

	_, err = os.Stat(filepath.Join(dir, "a.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestChangedFiles_DetectsAddedAndModified(t *testing.T) {
	dir, repo := initRepo(t)
	commitFile(t, dir, repo, "README.md", "hello\n")

	adapter, err := vcs.Open(dir)
	require.NoError(t, err)
	ctx := context.Background()

	baseTag, err := adapter.CreateTag(ctx, "base", "base")
	require.NoError(t, err)

	commitFile(t, dir, repo, "README.md", "hello again\n")
	commitFile(t, dir, repo, "new.txt", "new\n")

	changed, err := adapter.ChangedFiles(ctx, baseTag.Name, "HEAD")
	require.NoError(t, err)
	require.Len(t, changed, 2)
	assert.Equal(t, "README.md", changed[0].Path)
	assert.Equal(t, vcs.StatusModified, changed[0].Status)
	assert.Equal(t, "new.txt", changed[1].Path)
	assert.Equal(t, vcs.StatusAdded, changed[1].Status)
}
