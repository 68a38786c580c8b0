package wiki

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianshen/reposcribe/internal/repohost"
)

// orchTestPlan answers the plan prompt with n pages of one file each and every
// page prompt with fixed Markdown. The plan prompt is recognised by its
// <file_tree> delimiter.
func orchTestPlan(n int) func(string) (string, error) {
	return func(prompt string) (string, error) {
		if strings.Contains(prompt, "<file_tree>") {
			var pages []string
			for i := 0; i < n; i++ {
				pages = append(pages, fmt.Sprintf(
					`{"name":"Page %c","description":"d","files":["src/%c.go"]}`, 'A'+i, 'a'+i))
			}
			return fmt.Sprintf(`{"title":"T","description":"D","pages":[%s]}`, strings.Join(pages, ",")), nil
		}
		return "# Page\n\nBody [src/a.go:1-1].", nil
	}
}

func orchFixture(n int) (*fakeHost, *fakeLLM, *memStore) {
	host := newFakeHost()
	host.readme = "readme"
	for i := 0; i < n; i++ {
		path := fmt.Sprintf("src/%c.go", 'a'+i)
		host.tree = append(host.tree, repohost.TreeEntry{Path: path, Type: "blob"})
		host.files[path] = "1|package x"
	}
	llm := &fakeLLM{complete: orchTestPlan(n)}
	return host, llm, newMemStore()
}

func newOrchestrator(host *fakeHost, llm *fakeLLM, store *memStore, concurrency int) *Orchestrator {
	planner := NewPlanner(host, llm)
	pages := NewPageGenerator(host, llm, store, 2)
	return NewOrchestrator(host, planner, pages, store, concurrency)
}

func TestRunGeneratesAllPages(t *testing.T) {
	host, llm, store := orchFixture(5)
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, w, "octo", "hello"))

	final, err := store.FindOneByRepository(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, final.Status)
	assert.Equal(t, "main", final.Branch)

	pages, err := store.FindPagesByRepository(ctx, "octo", "hello")
	require.NoError(t, err)
	require.Len(t, pages, 5)
	for i, p := range pages {
		assert.Equal(t, i, p.Order)
	}
}

func TestRunRegeneratesAfterPriorRun(t *testing.T) {
	host, llm, store := orchFixture(3)
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, w, "octo", "hello"))

	// Same repository, fresh run: the earlier pages are replaced, not
	// accumulated, and the run reaches GENERATED again.
	w2, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, w.ID, w2.ID)
	require.NoError(t, o.Run(ctx, w2, "octo", "hello"))

	final, err := store.FindOneByRepository(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, final.Status)

	pages, err := store.FindPagesByRepository(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Len(t, pages, 3)
}

func TestRunRetriesSucceedsAfterFailedRun(t *testing.T) {
	host, llm, store := orchFixture(3)
	// First run: one page's only file hits a non-retriable fetch error,
	// leaving the wiki FAILED with the sibling pages persisted.
	host.fileErrs["src/b.go"] = fmt.Errorf("fetching file: %w", repohost.ErrNotFound)
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	require.Error(t, o.Run(ctx, w, "octo", "hello"))

	// Retry by re-issuing a fresh generation request once the fault clears.
	delete(host.fileErrs, "src/b.go")
	w2, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, w2, "octo", "hello"))

	final, err := store.FindOneByRepository(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, StatusGenerated, final.Status)

	pages, err := store.FindPagesByRepository(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Len(t, pages, 3)
}

func TestBeginRejectsSecondClaim(t *testing.T) {
	host, llm, store := orchFixture(1)
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	_, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)

	_, err = o.Begin(ctx, "octo", "hello")
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRunTooLargeTreeFailsWithoutRetry(t *testing.T) {
	host, llm, store := orchFixture(1)
	host.treeErr = fmt.Errorf("fetching tree: %w", repohost.ErrTooLarge)
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)

	err = o.Run(ctx, w, "octo", "hello")
	assert.True(t, repohost.IsTooLarge(err))
	assert.Equal(t, 1, host.treeCalls, "non-retriable steps must not be retried")

	final, _ := store.FindOneByRepository(ctx, "octo", "hello")
	assert.Equal(t, StatusFailed, final.Status)

	pages, _ := store.FindPagesByRepository(ctx, "octo", "hello")
	assert.Empty(t, pages)
}

func TestRunRepositoryNotFoundFails(t *testing.T) {
	host, llm, store := orchFixture(1)
	host.repoErr = fmt.Errorf("resolving repository: %w", repohost.ErrNotFound)
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)

	err = o.Run(ctx, w, "octo", "hello")
	assert.True(t, repohost.IsNotFound(err))

	final, _ := store.FindOneByRepository(ctx, "octo", "hello")
	assert.Equal(t, StatusFailed, final.Status)
}

func TestRunSucceedsWithoutReadme(t *testing.T) {
	host, llm, store := orchFixture(2)
	host.readme = ""
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, w, "octo", "hello"))

	final, _ := store.FindOneByRepository(ctx, "octo", "hello")
	assert.Equal(t, StatusGenerated, final.Status)
}

func TestRunFailedPageDoesNotCancelSiblings(t *testing.T) {
	host, llm, store := orchFixture(5)
	// One page's only file hits a non-retriable fetch error.
	host.fileErrs["src/c.go"] = fmt.Errorf("fetching file: %w", repohost.ErrNotFound)
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)

	err = o.Run(ctx, w, "octo", "hello")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Page C")

	// The run is FAILED, but the four sibling pages completed and persisted.
	final, _ := store.FindOneByRepository(ctx, "octo", "hello")
	assert.Equal(t, StatusFailed, final.Status)

	pages, _ := store.FindPagesByRepository(ctx, "octo", "hello")
	assert.Len(t, pages, 4)
	for _, p := range pages {
		assert.NotEqual(t, "page-c", p.Slug)
	}
}

func TestRunRetriesTransientPlanFailure(t *testing.T) {
	host, llm, store := orchFixture(1)
	var calls atomic.Int32
	inner := orchTestPlan(1)
	llm.complete = func(prompt string) (string, error) {
		if strings.Contains(prompt, "<file_tree>") && calls.Add(1) == 1 {
			return "", errors.New("upstream hiccup")
		}
		return inner(prompt)
	}
	o := newOrchestrator(host, llm, store, 10)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, w, "octo", "hello"))

	assert.Equal(t, int32(2), calls.Load())
	final, _ := store.FindOneByRepository(ctx, "octo", "hello")
	assert.Equal(t, StatusGenerated, final.Status)
}

func TestRunHonoursConcurrencyCeiling(t *testing.T) {
	host, llm, store := orchFixture(6)

	var mu sync.Mutex
	inFlight, peak := 0, 0
	inner := orchTestPlan(6)
	llm.complete = func(prompt string) (string, error) {
		if !strings.Contains(prompt, "<file_tree>") {
			mu.Lock()
			inFlight++
			if inFlight > peak {
				peak = inFlight
			}
			mu.Unlock()
			defer func() {
				mu.Lock()
				inFlight--
				mu.Unlock()
			}()
		}
		return inner(prompt)
	}

	o := newOrchestrator(host, llm, store, 2)
	ctx := context.Background()

	w, err := o.Begin(ctx, "octo", "hello")
	require.NoError(t, err)
	require.NoError(t, o.Run(ctx, w, "octo", "hello"))

	assert.LessOrEqual(t, peak, 2)
}
