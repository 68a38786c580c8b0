package repohost

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestGitLab wires a GitLab host against an httptest server.
func newTestGitLab(t *testing.T, handler http.Handler) *GitLab {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	g, err := NewGitLab("test-token", server.URL, 1000)
	require.NoError(t, err)
	return g
}

func TestGitLabGetRepository(t *testing.T) {
	g := newTestGitLab(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "/projects/")
		fmt.Fprint(w, `{"id":1,"default_branch":"develop"}`)
	}))

	repo, err := g.GetRepository(context.Background(), "group", "proj")
	require.NoError(t, err)
	assert.Equal(t, "develop", repo.DefaultBranch)
}

func TestGitLabGetRepositoryNotFound(t *testing.T) {
	g := newTestGitLab(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"message":"404 Project Not Found"}`)
	}))

	_, err := g.GetRepository(context.Background(), "group", "gone")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
}

func TestGitLabGetTreePaginates(t *testing.T) {
	g := newTestGitLab(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/repository/tree")
		assert.Equal(t, "true", r.URL.Query().Get("recursive"))

		switch r.URL.Query().Get("page") {
		case "", "1":
			w.Header().Set("X-Next-Page", "2")
			fmt.Fprint(w, `[{"path":"main.go","type":"blob"},{"path":"docs","type":"tree"}]`)
		default:
			w.Header().Set("X-Next-Page", "")
			fmt.Fprint(w, `[{"path":"docs/guide.md","type":"blob"}]`)
		}
	}))

	entries, err := g.GetTree(context.Background(), "group", "proj", "main")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "docs/guide.md", entries[2].Path)
}

func TestGitLabGetReadmeFallsBack(t *testing.T) {
	g := newTestGitLab(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case strings.Contains(r.URL.Path, "/repository/files/"):
			if strings.Contains(r.URL.EscapedPath(), "README.md") {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			fmt.Fprint(w, "plain readme")
		default:
			fmt.Fprint(w, `{"id":1,"default_branch":"main"}`)
		}
	}))

	readme, err := g.GetReadme(context.Background(), "group", "proj")
	require.NoError(t, err)
	assert.Equal(t, "plain readme", readme)
}

func TestGitLabGetReadmeMissingIsEmpty(t *testing.T) {
	g := newTestGitLab(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/repository/files/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fmt.Fprint(w, `{"id":1,"default_branch":"main"}`)
	}))

	readme, err := g.GetReadme(context.Background(), "group", "bare")
	require.NoError(t, err)
	assert.Equal(t, "", readme)
}

func TestGitLabGetFileContentAnnotates(t *testing.T) {
	g := newTestGitLab(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Contains(t, r.URL.Path, "/repository/files/")
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		fmt.Fprint(w, "line one\nline two")
	}))

	content, ok, err := g.GetFileContent(context.Background(), "group", "proj", "main", "main.go")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1|line one\n2|line two", content)
}

func TestGitLabGetFileContentMissingIsAbsent(t *testing.T) {
	g := newTestGitLab(t, http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))

	_, ok, err := g.GetFileContent(context.Background(), "group", "proj", "main", "ghost.go")
	require.NoError(t, err)
	assert.False(t, ok)
}
