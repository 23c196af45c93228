// Package pr adapts go-github to the ports.PROps capability boundary used
// at pipeline finalize time.
package pr

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/go-github/v76/github"

	"github.com/agentpipeline/agentpipeline/internal/ports"
)

// Driver implements ports.PROps against the GitHub REST API via go-github.
// No concrete go-github example was retrieved alongside this spec; the call
// shape follows the library's documented public API.
type Driver struct {
	client *github.Client
	owner  string
	repo   string
}

// New constructs a Driver authenticated with token, targeting owner/repo.
func New(token, owner, repo string) *Driver {
	client := github.NewClient(nil).WithAuthToken(token)
	return &Driver{client: client, owner: owner, repo: repo}
}

// PRExists reports whether an open pull request already exists for branch.
func (d *Driver) PRExists(ctx context.Context, branch string) (bool, error) {
	head := fmt.Sprintf("%s:%s", d.owner, branch)
	prs, _, err := d.client.PullRequests.List(ctx, d.owner, d.repo, &github.PullRequestListOptions{
		State: "open",
		Head:  head,
	})
	if err != nil {
		return false, fmt.Errorf("list pull requests for %s: %w", head, err)
	}
	return len(prs) > 0, nil
}

// CreatePR opens a pull request from branch onto base.
func (d *Driver) CreatePR(ctx context.Context, branch, base string, options ports.PullRequestOptions) (ports.PullRequestRef, error) {
	title := options.Title
	if title == "" {
		title = branch
	}

	newPR := &github.NewPullRequest{
		Title: github.Ptr(title),
		Head:  github.Ptr(branch),
		Base:  github.Ptr(base),
		Body:  github.Ptr(options.Body),
		Draft: github.Ptr(options.Draft),
	}

	created, _, err := d.client.PullRequests.Create(ctx, d.owner, d.repo, newPR)
	if err != nil {
		return ports.PullRequestRef{}, fmt.Errorf("create pull request %s -> %s: %w", branch, base, err)
	}

	return ports.PullRequestRef{
		URL:    created.GetHTMLURL(),
		Number: created.GetNumber(),
	}, nil
}

// ParseRepoSlug splits an "owner/repo" slug into its owner and repository
// parts.
func ParseRepoSlug(slug string) (owner, repo string, err error) {
	parts := strings.SplitN(slug, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repository slug %q, expected owner/repo", slug)
	}
	return parts[0], parts[1], nil
}

var _ ports.PROps = (*Driver)(nil)
