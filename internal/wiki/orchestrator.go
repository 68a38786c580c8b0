package wiki

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/sourcegraph/conc/pool"
	"golang.org/x/sync/semaphore"

	"github.com/julianshen/reposcribe/internal/repohost"
)

const (
	stepAttempts  = 4
	stepBaseDelay = 500 * time.Millisecond
)

// Orchestrator drives a complete generation run: claim, analysis, fan-out
// page generation, fan-in, terminal status. One Orchestrator is shared by all
// runs in the process; its semaphore is the process-wide ceiling on
// concurrent page generations across every repository.
type Orchestrator struct {
	host    repohost.Host
	planner *Planner
	pages   *PageGenerator
	store   Store

	sem *semaphore.Weighted
}

// NewOrchestrator creates an Orchestrator whose page fan-out never exceeds
// concurrency in-flight page generations process-wide.
func NewOrchestrator(host repohost.Host, planner *Planner, pages *PageGenerator, store Store, concurrency int) *Orchestrator {
	if concurrency <= 0 {
		concurrency = 10
	}
	return &Orchestrator{
		host:    host,
		planner: planner,
		pages:   pages,
		store:   store,
		sem:     semaphore.NewWeighted(int64(concurrency)),
	}
}

// Begin claims the repository for generation, returning the claimed wiki at
// STARTED, or ErrConflict if a run is already in flight.
func (o *Orchestrator) Begin(ctx context.Context, owner, repo string) (*Wiki, error) {
	return o.store.ClaimForGeneration(ctx, owner, repo)
}

// Run executes a generation run for a wiki previously claimed by Begin. On
// return the wiki is at GENERATED or FAILED; the returned error is the run's
// failure cause, nil on success. A failed page never cancels its siblings:
// every other page runs to completion and pages already persisted stay.
func (o *Orchestrator) Run(ctx context.Context, w *Wiki, owner, repo string) error {
	if err := o.run(ctx, w, owner, repo); err != nil {
		if _, serr := o.store.UpdateStatus(ctx, w.ID, StatusFailed); serr != nil {
			log.Printf("WARNING: marking wiki %s failed: %v", w.ID, serr)
		}
		return err
	}
	if _, err := o.store.UpdateStatus(ctx, w.ID, StatusGenerated); err != nil {
		return fmt.Errorf("marking wiki generated: %w", err)
	}
	return nil
}

func (o *Orchestrator) run(ctx context.Context, w *Wiki, owner, repo string) error {
	repository, err := runStep(ctx, "resolve repository", func(ctx context.Context) (*repohost.Repository, error) {
		return o.host.GetRepository(ctx, owner, repo)
	})
	if err != nil {
		return err
	}
	ref := repository.DefaultBranch

	if _, err := o.store.Upsert(ctx, &Wiki{
		Repository: CanonicalRepository(owner, repo),
		Status:     StatusGenerating,
		Branch:     ref,
	}); err != nil {
		return fmt.Errorf("recording generating status: %w", err)
	}

	tree, err := runStep(ctx, "fetch tree", func(ctx context.Context) ([]repohost.TreeEntry, error) {
		return o.planner.FetchTree(ctx, owner, repo, ref)
	})
	if err != nil {
		return err
	}

	readme, err := runStep(ctx, "fetch readme", func(ctx context.Context) (string, error) {
		return o.planner.FetchReadme(ctx, owner, repo)
	})
	if err != nil {
		return err
	}

	plan, err := runStep(ctx, "generate plan", func(ctx context.Context) (*Plan, error) {
		return o.planner.GeneratePlan(ctx, owner, repo, tree, readme)
	})
	if err != nil {
		return err
	}

	// Fan-out: one task per planned page. The pool collects every error
	// instead of cancelling the group, so a non-retriable page failure still
	// lets its siblings finish and persist.
	p := pool.New().WithErrors()
	for i, spec := range plan.Pages {
		i, spec := i, spec
		p.Go(func() error {
			if err := o.sem.Acquire(ctx, 1); err != nil {
				return fmt.Errorf("page %q: %w", spec.Name, err)
			}
			defer o.sem.Release(1)

			_, err := runStep(ctx, "generate page", func(ctx context.Context) (*WikiPage, error) {
				return o.pages.GeneratePage(ctx, owner, repo, ref, spec, i)
			})
			if err != nil {
				return fmt.Errorf("page %q: %w", spec.Name, err)
			}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return fmt.Errorf("generating pages: %w", err)
	}

	return nil
}

// runStep executes one pipeline step with retry. Retriable errors get up to
// stepAttempts tries with exponential backoff; non-retriable ones fail the
// step on first sight.
func runStep[T any](ctx context.Context, name string, fn func(context.Context) (T, error)) (T, error) {
	return retry.DoWithData(
		func() (T, error) { return fn(ctx) },
		retry.Context(ctx),
		retry.Attempts(stepAttempts),
		retry.Delay(stepBaseDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetriable),
		retry.OnRetry(func(n uint, err error) {
			log.Printf("WARNING: step %s attempt %d failed: %v", name, n+1, err)
		}),
	)
}
