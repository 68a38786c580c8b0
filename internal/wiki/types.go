// Package wiki implements the documentation generation core: repository
// analysis, fan-out page generation, and the orchestration state machine
// that keeps a consistent status record for polling readers.
package wiki

import (
	"context"
	"strings"
)

// Status is the lifecycle state of a Wiki.
//
// Valid transitions: STARTED -> GENERATING -> GENERATED, with FAILED
// reachable from STARTED or GENERATING. A wiki never leaves GENERATED.
type Status string

const (
	StatusStarted    Status = "STARTED"
	StatusGenerating Status = "GENERATING"
	StatusGenerated  Status = "GENERATED"
	StatusFailed     Status = "FAILED"
)

// InFlight reports whether a generation run is currently underway. A new
// generation request for the same repository must be rejected while true.
func (s Status) InFlight() bool {
	return s == StatusStarted || s == StatusGenerating
}

// Wiki identifies one documentation set for one source repository.
type Wiki struct {
	ID         string
	Repository string // canonical lowercase "owner/repo", unique
	Status     Status
	Branch     string // resolved source branch, empty until determined
}

// WikiPage is one generated Markdown document within a Wiki.
type WikiPage struct {
	ID              string
	WikiID          string
	Title           string
	Slug            string
	Order           int // zero-based navigation position
	MarkdownContent string
}

// PageSpec is the model-produced plan for one page before content generation.
type PageSpec struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	FilePaths   []string `json:"files"`
}

// Plan is the full output of the analysis stage.
type Plan struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Pages       []PageSpec `json:"pages"`
}

// CanonicalRepository normalizes owner/repo into the canonical lowercase key
// used to identify a wiki. All store lookups go through this.
func CanonicalRepository(owner, repo string) string {
	return strings.ToLower(owner + "/" + repo)
}

// Store is the durable record of wikis and their pages. Implementations must
// make ClaimForGeneration a single atomic round-trip: it is the mutual
// exclusion point for concurrent generation requests.
type Store interface {
	ExistsByRepository(ctx context.Context, owner, repo string) (bool, error)
	FindOneByRepository(ctx context.Context, owner, repo string) (*Wiki, error)

	// ClaimForGeneration upserts the wiki at STARTED unless a run is already
	// in flight (status STARTED or GENERATING), in which case it returns
	// ErrConflict. The wiki's id is stable across reclaims.
	ClaimForGeneration(ctx context.Context, owner, repo string) (*Wiki, error)

	// Upsert inserts the wiki if its repository key is absent; otherwise it
	// updates status and branch only, leaving the id stable.
	Upsert(ctx context.Context, w *Wiki) (*Wiki, error)

	// UpdateStatus sets the status of an existing wiki. It returns
	// ErrWikiNotFound if no wiki has the given id.
	UpdateStatus(ctx context.Context, wikiID string, status Status) (*Wiki, error)

	InsertPage(ctx context.Context, page *WikiPage) (*WikiPage, error)
	FindPagesByRepository(ctx context.Context, owner, repo string) ([]*WikiPage, error)
	FindPageBySlug(ctx context.Context, owner, repo, slug string) (*WikiPage, error)
}

// LLMCompleter abstracts LLM completion for testability.
type LLMCompleter interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
