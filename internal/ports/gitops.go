package ports

import "context"

// GitOps is the capability boundary for repository operations a pipeline run
// may need: reading the current commit, detecting uncommitted work, and
// recording a stage's changes as a commit (spec §4.4 step 7, §6).
type GitOps interface {
	GetCurrentCommit(ctx context.Context) (string, error)
	HasUncommittedChanges(ctx context.Context) (bool, error)

	// CreatePipelineCommit commits any pending changes, formatting the
	// message from customMessage (if set) or the supplied template,
	// substituting stageName and runID. Returns the new commit sha.
	CreatePipelineCommit(ctx context.Context, stageName, runID, customMessage, template string) (string, error)

	GetCommitMessage(ctx context.Context, sha string) (string, error)

	// EnsureWorktree prepares (creating if necessary) an isolated worktree
	// checked out onto branchName, returning its filesystem path.
	EnsureWorktree(ctx context.Context, branchName string) (string, error)

	// PushBranch pushes the named branch to the configured remote.
	PushBranch(ctx context.Context, branchName string) error

	// ChangedFiles lists files touched since baseCommit in the current
	// worktree, used to populate RunState.Artifacts.ChangedFiles.
	ChangedFiles(ctx context.Context, baseCommit string) ([]string, error)
}

// PullRequestRef is returned by PROps.CreatePR.
type PullRequestRef struct {
	URL    string
	Number int
}

// PROps is the capability boundary for opening pull requests at finalize
// (spec §4.5 step 5, §6).
type PROps interface {
	PRExists(ctx context.Context, branch string) (bool, error)
	CreatePR(ctx context.Context, branch, base string, options PullRequestOptions) (PullRequestRef, error)
}

// PullRequestOptions carries the title/body/draft knobs for PR creation,
// already rendered from the pipeline's templates.
type PullRequestOptions struct {
	Title string
	Body  string
	Draft bool
}
