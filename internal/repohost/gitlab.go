package repohost

import (
	"context"
	"fmt"
	"net/http"

	gitlab "github.com/xanzy/go-gitlab"
	"golang.org/x/time/rate"
)

// readmeCandidates are the file names probed for a repository README, in order.
var readmeCandidates = []string{"README.md", "README", "readme.md"}

// GitLab implements Host against the GitLab API.
type GitLab struct {
	client *gitlab.Client
}

// NewGitLab creates a GitLab host client. baseURL overrides the API endpoint
// for self-hosted installations; leave empty for gitlab.com.
func NewGitLab(token, baseURL string, requestsPerSecond float64) (*GitLab, error) {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}

	opts := []gitlab.ClientOptionFunc{
		gitlab.WithCustomLimiter(rate.NewLimiter(rate.Limit(requestsPerSecond), 1)),
	}
	if baseURL != "" {
		opts = append(opts, gitlab.WithBaseURL(baseURL))
	}

	client, err := gitlab.NewClient(token, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating gitlab client: %w", err)
	}
	return &GitLab{client: client}, nil
}

// pid builds the project identifier GitLab accepts in place of a numeric ID.
func pid(owner, repo string) string {
	return owner + "/" + repo
}

// GetRepository fetches project metadata, resolving the default branch.
func (g *GitLab) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	project, resp, err := g.client.Projects.GetProject(pid(owner, repo), nil, gitlab.WithContext(ctx))
	if err != nil {
		return nil, classifyGitLab(resp, err, "fetching project")
	}
	return &Repository{DefaultBranch: project.DefaultBranch}, nil
}

// GetTree lists the full recursive file tree at the given ref, following
// pagination. Listings beyond maxTreeEntries fail with ErrTooLarge, mirroring
// the truncation limit GitHub enforces server-side.
func (g *GitLab) GetTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	opt := &gitlab.ListTreeOptions{
		Recursive:   gitlab.Ptr(true),
		Ref:         gitlab.Ptr(ref),
		ListOptions: gitlab.ListOptions{PerPage: 100},
	}

	var entries []TreeEntry
	for {
		nodes, resp, err := g.client.Repositories.ListTree(pid(owner, repo), opt, gitlab.WithContext(ctx))
		if err != nil {
			return nil, classifyGitLab(resp, err, "fetching tree")
		}

		for _, n := range nodes {
			entries = append(entries, TreeEntry{Path: n.Path, Type: n.Type})
		}
		if len(entries) > maxTreeEntries {
			return nil, fmt.Errorf("%w: tree listing for %s/%s exceeds %d entries", ErrTooLarge, owner, repo, maxTreeEntries)
		}

		if resp.NextPage == 0 {
			break
		}
		opt.Page = resp.NextPage
	}

	return entries, nil
}

// GetReadme probes the well-known README file names at the project root.
// A missing README is not an error; empty text is returned instead.
func (g *GitLab) GetReadme(ctx context.Context, owner, repo string) (string, error) {
	project, resp, err := g.client.Projects.GetProject(pid(owner, repo), nil, gitlab.WithContext(ctx))
	if err != nil {
		return "", classifyGitLab(resp, err, "fetching project")
	}

	for _, name := range readmeCandidates {
		raw, resp, err := g.client.RepositoryFiles.GetRawFile(pid(owner, repo), name,
			&gitlab.GetRawFileOptions{Ref: gitlab.Ptr(project.DefaultBranch)}, gitlab.WithContext(ctx))
		if err != nil {
			if resp != nil && resp.StatusCode == http.StatusNotFound {
				continue
			}
			return "", fmt.Errorf("fetching readme: %w", err)
		}
		return string(raw), nil
	}
	return "", nil
}

// GetFileContent fetches a file at the given ref, annotated with line numbers.
// Paths that resolve to directories or nothing at all report ok=false.
func (g *GitLab) GetFileContent(ctx context.Context, owner, repo, ref, path string) (string, bool, error) {
	raw, resp, err := g.client.RepositoryFiles.GetRawFile(pid(owner, repo), path,
		&gitlab.GetRawFileOptions{Ref: gitlab.Ptr(ref)}, gitlab.WithContext(ctx))
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetching %s: %w", path, err)
	}
	return AnnotateLines(string(raw)), true, nil
}

// classifyGitLab maps GitLab API failures onto the typed error taxonomy.
func classifyGitLab(resp *gitlab.Response, err error, op string) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
