// Package git adapts go-git to the ports.GitOps capability boundary.
package git

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// defaultCommitTemplate is used when the pipeline config leaves
// git.commitTemplate empty.
const defaultCommitTemplate = "[agentpipeline] {{.StageName}} (run {{.RunID}})"

// GitOps implements ports.GitOps against a working repository on disk using
// go-git. Grounded on the teacher's internal/plugins/repo.repoPlugin
// (git.PlainOpen, repo.Head(), remote inspection), generalized from
// "evaluate/apply a cloned repo step" to "commit and push a pipeline run's
// working tree".
type GitOps struct {
	repoPath   string
	remoteName string
	author     object.Signature
}

// Option configures a GitOps instance.
type Option func(*GitOps)

// WithRemoteName overrides the remote pushed to (default "origin").
func WithRemoteName(name string) Option {
	return func(g *GitOps) { g.remoteName = name }
}

// WithAuthor overrides the commit author identity.
func WithAuthor(name, email string) Option {
	return func(g *GitOps) { g.author = object.Signature{Name: name, Email: email, When: time.Now()} }
}

// New constructs a GitOps bound to the repository at repoPath.
func New(repoPath string, opts ...Option) *GitOps {
	g := &GitOps{
		repoPath:   repoPath,
		remoteName: "origin",
		author:     object.Signature{Name: "agentpipeline", Email: "agentpipeline@localhost"},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GitOps) open() (*gogit.Repository, error) {
	return gogit.PlainOpen(g.repoPath)
}

// GetCurrentCommit returns the repository's current HEAD sha.
func (g *GitOps) GetCurrentCommit(ctx context.Context) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	head, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("resolve HEAD: %w", err)
	}
	return head.Hash().String(), nil
}

// HasUncommittedChanges reports whether the worktree has pending changes.
func (g *GitOps) HasUncommittedChanges(ctx context.Context) (bool, error) {
	repo, err := g.open()
	if err != nil {
		return false, fmt.Errorf("open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}
	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("compute status: %w", err)
	}
	return !status.IsClean(), nil
}

// CreatePipelineCommit stages all pending changes and commits them, using
// customMessage if non-empty or rendering template with {{.StageName}} and
// {{.RunID}} otherwise.
func (g *GitOps) CreatePipelineCommit(ctx context.Context, stageName, runID, customMessage, commitTemplate string) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	if _, err := worktree.Add("."); err != nil {
		return "", fmt.Errorf("stage changes: %w", err)
	}

	message := customMessage
	if message == "" {
		message, err = renderCommitMessage(commitTemplate, stageName, runID)
		if err != nil {
			return "", err
		}
	}

	sig := g.author
	sig.When = time.Now()
	hash, err := worktree.Commit(message, &gogit.CommitOptions{Author: &sig})
	if err != nil {
		return "", fmt.Errorf("commit changes: %w", err)
	}
	return hash.String(), nil
}

func renderCommitMessage(commitTemplate, stageName, runID string) (string, error) {
	tmplText := commitTemplate
	if tmplText == "" {
		tmplText = defaultCommitTemplate
	}
	tmpl, err := template.New("commit").Parse(tmplText)
	if err != nil {
		return "", fmt.Errorf("parse commit template: %w", err)
	}
	var buf strings.Builder
	data := struct{ StageName, RunID string }{StageName: stageName, RunID: runID}
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render commit template: %w", err)
	}
	return buf.String(), nil
}

// GetCommitMessage returns the commit message recorded at sha.
func (g *GitOps) GetCommitMessage(ctx context.Context, sha string) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	commit, err := repo.CommitObject(plumbing.NewHash(sha))
	if err != nil {
		return "", fmt.Errorf("load commit %s: %w", sha, err)
	}
	return commit.Message, nil
}

// EnsureWorktree checks out (creating if necessary) branchName, returning
// the repository's filesystem path (go-git worktrees are rooted at the
// repository they were opened from, there is no separate checkout path).
func (g *GitOps) EnsureWorktree(ctx context.Context, branchName string) (string, error) {
	repo, err := g.open()
	if err != nil {
		return "", fmt.Errorf("open repository: %w", err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("open worktree: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branchName)
	err = worktree.Checkout(&gogit.CheckoutOptions{Branch: ref, Create: true})
	if err != nil && err != gogit.ErrBranchExists {
		if checkoutErr := worktree.Checkout(&gogit.CheckoutOptions{Branch: ref}); checkoutErr != nil {
			return "", fmt.Errorf("checkout branch %s: %w", branchName, err)
		}
	}
	return g.repoPath, nil
}

// PushBranch pushes branchName to the configured remote.
func (g *GitOps) PushBranch(ctx context.Context, branchName string) error {
	repo, err := g.open()
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}
	ref := plumbing.NewBranchReferenceName(branchName)
	refSpec := config.RefSpec(fmt.Sprintf("%s:%s", ref, ref))
	err = repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: g.remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("push branch %s: %w", branchName, err)
	}
	return nil
}

// ChangedFiles lists files that differ between baseCommit and the current
// HEAD.
func (g *GitOps) ChangedFiles(ctx context.Context, baseCommit string) ([]string, error) {
	repo, err := g.open()
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	base, err := repo.CommitObject(plumbing.NewHash(baseCommit))
	if err != nil {
		return nil, fmt.Errorf("load base commit %s: %w", baseCommit, err)
	}
	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolve HEAD: %w", err)
	}
	current, err := repo.CommitObject(head.Hash())
	if err != nil {
		return nil, fmt.Errorf("load HEAD commit: %w", err)
	}

	baseTree, err := base.Tree()
	if err != nil {
		return nil, fmt.Errorf("load base tree: %w", err)
	}
	currentTree, err := current.Tree()
	if err != nil {
		return nil, fmt.Errorf("load current tree: %w", err)
	}

	changes, err := baseTree.Diff(currentTree)
	if err != nil {
		return nil, fmt.Errorf("diff trees: %w", err)
	}

	files := make([]string, 0, len(changes))
	for _, change := range changes {
		if change.To.Name != "" {
			files = append(files, change.To.Name)
			continue
		}
		files = append(files, change.From.Name)
	}
	return files, nil
}

var _ ports.GitOps = (*GitOps)(nil)
