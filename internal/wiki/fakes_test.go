package wiki

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/julianshen/reposcribe/internal/repohost"
)

// memStore is an in-memory Store with the same claim semantics as the real
// SQLite store.
type memStore struct {
	mu    sync.Mutex
	wikis map[string]*Wiki // by canonical repository
	pages []*WikiPage
}

func newMemStore() *memStore {
	return &memStore{wikis: map[string]*Wiki{}}
}

func (s *memStore) ExistsByRepository(ctx context.Context, owner, repo string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.wikis[CanonicalRepository(owner, repo)]
	return ok, nil
}

func (s *memStore) FindOneByRepository(ctx context.Context, owner, repo string) (*Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.wikis[CanonicalRepository(owner, repo)]
	if !ok {
		return nil, nil
	}
	copied := *w
	return &copied, nil
}

func (s *memStore) ClaimForGeneration(ctx context.Context, owner, repo string) (*Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := CanonicalRepository(owner, repo)
	if existing, ok := s.wikis[key]; ok {
		if existing.Status.InFlight() {
			return nil, ErrConflict
		}
		existing.Status = StatusStarted
		existing.Branch = ""
		s.deletePagesLocked(existing.ID)
		copied := *existing
		return &copied, nil
	}

	w := &Wiki{ID: uuid.NewString(), Repository: key, Status: StatusStarted}
	s.wikis[key] = w
	copied := *w
	return &copied, nil
}

func (s *memStore) Upsert(ctx context.Context, w *Wiki) (*Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.wikis[w.Repository]; ok {
		existing.Status = w.Status
		if w.Branch != "" {
			existing.Branch = w.Branch
		}
		copied := *existing
		return &copied, nil
	}

	stored := *w
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.wikis[w.Repository] = &stored
	copied := stored
	return &copied, nil
}

func (s *memStore) UpdateStatus(ctx context.Context, wikiID string, status Status) (*Wiki, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.wikis {
		if w.ID == wikiID {
			w.Status = status
			copied := *w
			return &copied, nil
		}
	}
	return nil, ErrWikiNotFound
}

func (s *memStore) InsertPage(ctx context.Context, page *WikiPage) (*WikiPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Same slug semantics as the SQLite store: a colliding (wiki, slug) pair
	// overwrites the existing row in place, keeping its id.
	for _, p := range s.pages {
		if p.WikiID == page.WikiID && p.Slug == page.Slug {
			p.Title = page.Title
			p.Order = page.Order
			p.MarkdownContent = page.MarkdownContent
			copied := *p
			return &copied, nil
		}
	}

	stored := *page
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	s.pages = append(s.pages, &stored)
	copied := stored
	return &copied, nil
}

// deletePagesLocked removes all pages of the given wiki. Caller holds mu.
func (s *memStore) deletePagesLocked(wikiID string) {
	kept := s.pages[:0]
	for _, p := range s.pages {
		if p.WikiID != wikiID {
			kept = append(kept, p)
		}
	}
	s.pages = kept
}

func (s *memStore) FindPagesByRepository(ctx context.Context, owner, repo string) ([]*WikiPage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.wikis[CanonicalRepository(owner, repo)]
	if !ok {
		return nil, nil
	}

	var out []*WikiPage
	for _, p := range s.pages {
		if p.WikiID == w.ID {
			copied := *p
			out = append(out, &copied)
		}
	}
	// Insertion order is page-generation completion order; readers want
	// navigation order.
	for i := range out {
		for j := i + 1; j < len(out); j++ {
			if out[j].Order < out[i].Order {
				out[i], out[j] = out[j], out[i]
			}
		}
	}
	return out, nil
}

func (s *memStore) FindPageBySlug(ctx context.Context, owner, repo, slug string) (*WikiPage, error) {
	pages, err := s.FindPagesByRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	for _, p := range pages {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, nil
}

// fakeHost serves canned repository data and records per-path errors.
type fakeHost struct {
	mu sync.Mutex

	repo      *repohost.Repository
	repoErr   error
	tree      []repohost.TreeEntry
	treeErr   error
	readme    string
	readmeErr error
	files     map[string]string // annotated content by path
	fileErrs  map[string]error

	treeCalls int
}

func newFakeHost() *fakeHost {
	return &fakeHost{
		repo:     &repohost.Repository{DefaultBranch: "main"},
		files:    map[string]string{},
		fileErrs: map[string]error{},
	}
}

func (h *fakeHost) GetRepository(ctx context.Context, owner, repo string) (*repohost.Repository, error) {
	if h.repoErr != nil {
		return nil, h.repoErr
	}
	return h.repo, nil
}

func (h *fakeHost) GetTree(ctx context.Context, owner, repo, ref string) ([]repohost.TreeEntry, error) {
	h.mu.Lock()
	h.treeCalls++
	h.mu.Unlock()
	if h.treeErr != nil {
		return nil, h.treeErr
	}
	return h.tree, nil
}

func (h *fakeHost) GetReadme(ctx context.Context, owner, repo string) (string, error) {
	if h.readmeErr != nil {
		return "", h.readmeErr
	}
	return h.readme, nil
}

func (h *fakeHost) GetFileContent(ctx context.Context, owner, repo, ref, path string) (string, bool, error) {
	if err := h.fileErrs[path]; err != nil {
		return "", false, err
	}
	content, ok := h.files[path]
	return content, ok, nil
}

// fakeLLM answers completions through a caller-supplied function and keeps
// every prompt it saw.
type fakeLLM struct {
	mu       sync.Mutex
	complete func(prompt string) (string, error)
	prompts  []string
}

func (f *fakeLLM) Complete(ctx context.Context, prompt string) (string, error) {
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()
	if f.complete == nil {
		return "", fmt.Errorf("no completion configured")
	}
	return f.complete(prompt)
}

func (f *fakeLLM) promptCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.prompts)
}

func (f *fakeLLM) lastPrompt() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.prompts) == 0 {
		return ""
	}
	return f.prompts[len(f.prompts)-1]
}
