package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func TestGitOpsGetCurrentCommit(t *testing.T) {
	dir, firstSHA := initRepo(t)
	ops := New(dir)

	sha, err := ops.GetCurrentCommit(context.Background())
	require.NoError(t, err)
	require.Equal(t, firstSHA, sha)
}

func TestGitOpsHasUncommittedChanges(t *testing.T) {
	dir, _ := initRepo(t)
	ops := New(dir)

	clean, err := ops.HasUncommittedChanges(context.Background())
	require.NoError(t, err)
	require.False(t, clean)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "new.txt"), []byte("change"), 0o644))

	dirty, err := ops.HasUncommittedChanges(context.Background())
	require.NoError(t, err)
	require.True(t, dirty)
}

func TestGitOpsCreatePipelineCommitUsesCustomMessage(t *testing.T) {
	dir, _ := initRepo(t)
	ops := New(dir, WithAuthor("agentpipeline-test", "test@example.com"))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.txt"), []byte("stage output"), 0o644))

	sha, err := ops.CreatePipelineCommit(context.Background(), "analyze", "run-123", "custom message", "")
	require.NoError(t, err)
	require.NotEmpty(t, sha)

	msg, err := ops.GetCommitMessage(context.Background(), sha)
	require.NoError(t, err)
	require.Equal(t, "custom message", msg)
}

func TestGitOpsCreatePipelineCommitRendersTemplate(t *testing.T) {
	dir, _ := initRepo(t)
	ops := New(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.txt"), []byte("stage output"), 0o644))

	sha, err := ops.CreatePipelineCommit(context.Background(), "analyze", "run-123", "", "stage={{.StageName}} run={{.RunID}}")
	require.NoError(t, err)

	msg, err := ops.GetCommitMessage(context.Background(), sha)
	require.NoError(t, err)
	require.Equal(t, "stage=analyze run=run-123", msg)
}

func TestGitOpsChangedFilesReportsDiff(t *testing.T) {
	dir, firstSHA := initRepo(t)
	ops := New(dir)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "output.txt"), []byte("stage output"), 0o644))
	_, err := ops.CreatePipelineCommit(context.Background(), "analyze", "run-123", "record output", "")
	require.NoError(t, err)

	files, err := ops.ChangedFiles(context.Background(), firstSHA)
	require.NoError(t, err)
	require.Contains(t, files, "output.txt")
}

func TestGitOpsEnsureWorktreeCreatesBranch(t *testing.T) {
	dir, _ := initRepo(t)
	ops := New(dir)

	path, err := ops.EnsureWorktree(context.Background(), "agentpipeline/run-123")
	require.NoError(t, err)
	require.Equal(t, dir, path)
}

func initRepo(t *testing.T) (string, string) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	wt, err := repo.Worktree()
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello"), 0o644))
	_, err = wt.Add("README.md")
	require.NoError(t, err)

	sha, err := wt.Commit("initial", &git.CommitOptions{
		Author: &object.Signature{
			Name:  "agentpipeline",
			Email: "agentpipeline@example.com",
			When:  time.Now(),
		},
	})
	require.NoError(t, err)

	return dir, sha.String()
}
