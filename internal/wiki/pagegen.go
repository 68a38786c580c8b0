package wiki

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/julianshen/reposcribe/internal/repohost"
)

// PageGenerator produces the Markdown content of a single wiki page from its
// plan entry and writes it to the store.
type PageGenerator struct {
	host             repohost.Host
	llm              LLMCompleter
	store            Store
	fetchConcurrency int
}

// NewPageGenerator creates a PageGenerator. fetchConcurrency bounds how many
// source files are fetched in parallel per page.
func NewPageGenerator(host repohost.Host, llm LLMCompleter, store Store, fetchConcurrency int) *PageGenerator {
	if fetchConcurrency <= 0 {
		fetchConcurrency = 1
	}
	return &PageGenerator{host: host, llm: llm, store: store, fetchConcurrency: fetchConcurrency}
}

// sourceFile is one fetched file with line-annotated content.
type sourceFile struct {
	Path    string
	Content string
}

// fetchSources retrieves the page's source files concurrently, keeping the
// order declared in the plan. Paths the host reports absent (deleted between
// tree fetch and now, or directories) are dropped silently; transport errors
// propagate.
func (g *PageGenerator) fetchSources(ctx context.Context, owner, repo, ref string, paths []string) ([]sourceFile, error) {
	fetched := make([]*sourceFile, len(paths))

	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(g.fetchConcurrency)
	for i, path := range paths {
		i, path := i, path
		grp.Go(func() error {
			content, ok, err := g.host.GetFileContent(ctx, owner, repo, ref, path)
			if err != nil {
				return fmt.Errorf("fetching %s: %w", path, err)
			}
			if ok {
				fetched[i] = &sourceFile{Path: path, Content: content}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	var files []sourceFile
	for _, f := range fetched {
		if f != nil {
			files = append(files, *f)
		}
	}
	return files, nil
}

var pageTmpl = template.Must(template.New("page").Parse(
	`You are writing one page of a documentation wiki for the repository {{.Repository}}.

Page title: {{.Name}}
Page description: {{.Description}}

The relevant source files follow. Every line is prefixed with its line number as "N|".
{{range .Files}}
<file path="{{.Path}}">
{{.Content}}
</file>
{{end}}
Write the page as GitHub-flavoured Markdown. Start with a top-level heading matching the page title. Explain what this part of the software does, how it works, and how its pieces fit together, grounded strictly in the source shown above.

Cite sources inline wherever you state something a file shows. A citation is a bracketed marker of the form [path:start-end], where start and end are 1-based inclusive line numbers, for example [src/server.ts:12-40]. Cite several ranges in one marker by joining them with semicolons: [src/a.ts:1-2;src/b.ts:4-9]. Use exactly this format; it is parsed mechanically. Do not invent paths or line numbers not present above.

Respond with the Markdown content only, no preamble and no code fence around the whole document.`))

// GeneratePage runs the full generation of one page: fetch sources, prompt the
// model, and persist the result under the repository's wiki. Page order in the
// wiki follows the plan order passed as position.
func (g *PageGenerator) GeneratePage(ctx context.Context, owner, repo, ref string, spec PageSpec, position int) (*WikiPage, error) {
	files, err := g.fetchSources(ctx, owner, repo, ref, spec.FilePaths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		// Every planned file vanished since the tree fetch. Generate from the
		// description alone rather than failing the page.
		log.Printf("WARNING: page %q for %s/%s has no fetchable source files", spec.Name, owner, repo)
	}

	var buf bytes.Buffer
	err = pageTmpl.Execute(&buf, struct {
		Repository, Name, Description string
		Files                         []sourceFile
	}{
		Repository:  CanonicalRepository(owner, repo),
		Name:        spec.Name,
		Description: spec.Description,
		Files:       files,
	})
	if err != nil {
		return nil, fmt.Errorf("rendering page prompt: %w", err)
	}

	markdown, err := g.llm.Complete(ctx, buf.String())
	if err != nil {
		return nil, fmt.Errorf("page completion: %w", err)
	}
	markdown = strings.TrimSpace(markdown)
	if markdown == "" {
		return nil, &ValidationError{Reason: fmt.Sprintf("page %q came back empty", spec.Name)}
	}

	// Re-read the wiki rather than trusting a cached row: the page must attach
	// to whatever record currently owns the repository key.
	w, err := g.store.FindOneByRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWikiNotFound
	}

	return g.store.InsertPage(ctx, &WikiPage{
		WikiID:          w.ID,
		Title:           spec.Name,
		Slug:            Slugify(spec.Name),
		Order:           position,
		MarkdownContent: markdown,
	})
}
