package wiki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"text/template"

	"github.com/julianshen/reposcribe/internal/repohost"
)

const (
	minPlanPages    = 4
	maxPlanPages    = 12
	maxFilesPerPage = 10
)

// Planner is the analysis stage: it turns a repository's file tree and README
// into a validated wiki plan.
type Planner struct {
	host repohost.Host
	llm  LLMCompleter
}

// NewPlanner creates a Planner over the given host and completer.
func NewPlanner(host repohost.Host, llm LLMCompleter) *Planner {
	return &Planner{host: host, llm: llm}
}

// FetchTree pulls the repository's recursive file tree. NotFound and TooLarge
// from the host are hard failures that abort the whole run.
func (p *Planner) FetchTree(ctx context.Context, owner, repo, ref string) ([]repohost.TreeEntry, error) {
	return p.host.GetTree(ctx, owner, repo, ref)
}

// FetchReadme pulls the repository README; a missing README yields empty text.
func (p *Planner) FetchReadme(ctx context.Context, owner, repo string) (string, error) {
	return p.host.GetReadme(ctx, owner, repo)
}

var planTmpl = template.Must(template.New("plan").Parse(
	`Analyse the GitHub repository {{.Owner}}/{{.Repo}} and create a wiki structure for it.

1. The complete file tree of the project:
<file_tree>
{{.Tree}}
</file_tree>

2. The README file of the project:
<readme>
{{.Readme}}
</readme>

Determine the most logical wiki structure for this repository: between {{.MinPages}} and {{.MaxPages}} pages, each covering what the software does for users, not how it is technically organised.

Good structure: user onboarding flow, authentication, feature X, feature Y.
Bad structure: frontend, API, backend, utils.

Respond with a single JSON object and nothing else, in exactly this shape:
{
  "title": "<wiki title>",
  "description": "<wiki description>",
  "pages": [
    {"name": "<page name>", "description": "<page description>", "files": ["<path>", ...]}
  ]
}

Each page must list between 3 and {{.MaxFiles}} file paths taken verbatim from the file tree above; include every file relevant to the page, as they will be used to generate its content.`))

// GeneratePlan asks the model for a wiki structure and validates it against
// the fetched tree. Degenerate output (no pages, or a page with no usable
// file paths) raises a ValidationError so the step can be retried; a fresh
// completion may well be valid.
func (p *Planner) GeneratePlan(ctx context.Context, owner, repo string, tree []repohost.TreeEntry, readme string) (*Plan, error) {
	var buf bytes.Buffer
	err := planTmpl.Execute(&buf, struct {
		Owner, Repo, Tree, Readme    string
		MinPages, MaxPages, MaxFiles int
	}{
		Owner:    owner,
		Repo:     repo,
		Tree:     renderTree(tree),
		Readme:   readme,
		MinPages: minPlanPages,
		MaxPages: maxPlanPages,
		MaxFiles: maxFilesPerPage,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering plan prompt: %w", err)
	}

	response, err := p.llm.Complete(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("plan completion: %w", err)
	}

	var plan Plan
	if err := json.Unmarshal([]byte(extractJSON(response)), &plan); err != nil {
		return nil, &ValidationError{Reason: fmt.Sprintf("plan is not valid JSON: %v", err)}
	}

	if err := validatePlan(&plan, tree); err != nil {
		return nil, err
	}
	return &plan, nil
}

// renderTree flattens tree entries into "type path" lines for the prompt.
func renderTree(tree []repohost.TreeEntry) string {
	var b strings.Builder
	for i, e := range tree {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(e.Type)
		b.WriteByte(' ')
		b.WriteString(e.Path)
	}
	return b.String()
}

// extractJSON strips a Markdown code fence around a JSON object, if present.
// Models occasionally wrap their answer despite instructions.
func extractJSON(response string) string {
	s := strings.TrimSpace(response)
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx >= 0 {
			s = s[idx+1:]
		}
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	// Fall back to the outermost braces for any remaining prose around it.
	if start := strings.Index(s, "{"); start >= 0 {
		if end := strings.LastIndex(s, "}"); end > start {
			s = s[start : end+1]
		}
	}
	return strings.TrimSpace(s)
}

// validatePlan enforces the structural contract on model output: a non-empty
// page list, and for every page at least one file path that actually exists
// in the repository tree. Paths the model invented are dropped; file lists
// are clamped to maxFilesPerPage.
func validatePlan(plan *Plan, tree []repohost.TreeEntry) error {
	if len(plan.Pages) == 0 {
		return &ValidationError{Reason: "plan contains no pages"}
	}

	known := make(map[string]bool, len(tree))
	for _, e := range tree {
		if e.Type == "blob" {
			known[e.Path] = true
		}
	}

	for i := range plan.Pages {
		page := &plan.Pages[i]

		var kept []string
		for _, path := range page.FilePaths {
			if known[path] {
				kept = append(kept, path)
			}
		}
		if len(kept) == 0 {
			return &ValidationError{Reason: fmt.Sprintf("page %q has no usable file paths", page.Name)}
		}
		if len(kept) > maxFilesPerPage {
			kept = kept[:maxFilesPerPage]
		}
		page.FilePaths = kept
	}

	return nil
}
