package wiki

import (
	"context"
	"log"
	"sync"
)

// Service is the public entry point for wiki generation and reads. Generation
// runs in the background; callers observe progress through GetStatus.
type Service struct {
	orch  *Orchestrator
	store Store

	wg sync.WaitGroup
}

// NewService creates a Service over the orchestrator and store.
func NewService(orch *Orchestrator, store Store) *Service {
	return &Service{orch: orch, store: store}
}

// RequestGeneration claims the repository and starts a generation run in the
// background, returning as soon as the claim is recorded. It returns
// ErrConflict if a run is already in flight for the repository. The returned
// wiki is at STARTED.
func (s *Service) RequestGeneration(ctx context.Context, owner, repo string) (*Wiki, error) {
	w, err := s.orch.Begin(ctx, owner, repo)
	if err != nil {
		return nil, err
	}

	// The run outlives the request: cancelling the caller's context must not
	// strand the wiki in an in-flight status.
	runCtx := context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.orch.Run(runCtx, w, owner, repo); err != nil {
			log.Printf("WARNING: wiki generation for %s failed: %v", CanonicalRepository(owner, repo), err)
		}
	}()

	return w, nil
}

// Wait blocks until all background generation runs have finished.
func (s *Service) Wait() {
	s.wg.Wait()
}

// GetStatus returns the wiki record for the repository, or ErrWikiNotFound if
// none exists.
func (s *Service) GetStatus(ctx context.Context, owner, repo string) (*Wiki, error) {
	w, err := s.store.FindOneByRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if w == nil {
		return nil, ErrWikiNotFound
	}
	return w, nil
}

// GetPages returns the repository's wiki pages in navigation order. It returns
// ErrWikiNotFound if the repository has no wiki at all.
func (s *Service) GetPages(ctx context.Context, owner, repo string) ([]*WikiPage, error) {
	exists, err := s.store.ExistsByRepository(ctx, owner, repo)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, ErrWikiNotFound
	}
	return s.store.FindPagesByRepository(ctx, owner, repo)
}

// GetPageBySlug returns one page of the repository's wiki. It returns
// ErrWikiNotFound when either the wiki or the page is absent.
func (s *Service) GetPageBySlug(ctx context.Context, owner, repo, slug string) (*WikiPage, error) {
	p, err := s.store.FindPageBySlug(ctx, owner, repo, slug)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrWikiNotFound
	}
	return p, nil
}
