package repohost

import (
	"context"
	"fmt"
	"net/http"

	"github.com/google/go-github/v68/github"
	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/time/rate"
)

// GitHub implements Host against the GitHub REST API.
type GitHub struct {
	client  *github.Client
	limiter *rate.Limiter
}

// NewGitHub creates a GitHub host client. token may be empty for anonymous
// access to public repositories. baseURL overrides the API endpoint for
// GitHub Enterprise; leave empty for github.com. requestsPerSecond throttles
// outgoing calls to stay under the host's rate limit.
func NewGitHub(token, baseURL string, requestsPerSecond float64) (*GitHub, error) {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil

	client := github.NewClient(rc.StandardClient())
	if token != "" {
		client = client.WithAuthToken(token)
	}
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("configuring enterprise URL: %w", err)
		}
	}

	return newGitHubFromClient(client, requestsPerSecond), nil
}

func newGitHubFromClient(client *github.Client, requestsPerSecond float64) *GitHub {
	if requestsPerSecond <= 0 {
		requestsPerSecond = 5
	}
	return &GitHub{
		client:  client,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
	}
}

// GetRepository fetches repository metadata, resolving the default branch.
func (g *GitHub) GetRepository(ctx context.Context, owner, repo string) (*Repository, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	r, resp, err := g.client.Repositories.Get(ctx, owner, repo)
	if err != nil {
		return nil, g.classify(resp, err, "fetching repository")
	}

	return &Repository{DefaultBranch: r.GetDefaultBranch()}, nil
}

// GetTree lists the full recursive file tree at the given ref.
func (g *GitHub) GetTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	tree, resp, err := g.client.Git.GetTree(ctx, owner, repo, ref, true)
	if err != nil {
		return nil, g.classify(resp, err, "fetching tree")
	}

	if tree.GetTruncated() {
		return nil, fmt.Errorf("%w: tree listing for %s/%s was truncated", ErrTooLarge, owner, repo)
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, e := range tree.Entries {
		entries = append(entries, TreeEntry{Path: e.GetPath(), Type: e.GetType()})
	}
	return entries, nil
}

// GetReadme fetches the repository README. A missing README is not an error;
// empty text is returned instead.
func (g *GitHub) GetReadme(ctx context.Context, owner, repo string) (string, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", err
	}

	readme, resp, err := g.client.Repositories.GetReadme(ctx, owner, repo, nil)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", nil
		}
		return "", fmt.Errorf("fetching readme: %w", err)
	}

	content, err := readme.GetContent()
	if err != nil {
		return "", fmt.Errorf("decoding readme: %w", err)
	}
	return content, nil
}

// GetFileContent fetches a file at the given ref, annotated with line numbers.
// Paths that resolve to directories or nothing at all report ok=false.
func (g *GitHub) GetFileContent(ctx context.Context, owner, repo, ref, path string) (string, bool, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return "", false, err
	}

	opts := &github.RepositoryContentGetOptions{Ref: ref}
	file, _, resp, err := g.client.Repositories.GetContents(ctx, owner, repo, path, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return "", false, nil
		}
		return "", false, fmt.Errorf("fetching %s: %w", path, err)
	}

	// A nil file with a nil error means the path was a directory.
	if file == nil {
		return "", false, nil
	}

	content, err := file.GetContent()
	if err != nil {
		return "", false, fmt.Errorf("decoding %s: %w", path, err)
	}
	return AnnotateLines(content), true, nil
}

// classify maps GitHub API failures onto the typed error taxonomy. 404s become
// ErrNotFound; anything else stays transient.
func (g *GitHub) classify(resp *github.Response, err error, op string) error {
	if resp != nil && resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}
	return fmt.Errorf("%s: %w", op, err)
}
