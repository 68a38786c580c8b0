// Package repohost wraps source-control host APIs (GitHub, GitLab) behind a
// single interface, translating transport failures into typed outcomes the
// wiki pipeline can classify as retriable or not.
package repohost

import (
	"context"
	"fmt"
	"strings"
)

// TreeEntry is one node in a repository file tree.
type TreeEntry struct {
	Path string
	Type string // "blob" or "tree"
}

// Repository holds the host-side metadata the pipeline needs.
type Repository struct {
	DefaultBranch string
}

// Host is the source-control host a wiki is generated from.
//
// GetReadme returns empty text, not an error, when no README exists.
// GetFileContent returns ok=false, not an error, when the path does not
// resolve to a file (absent, or it was a directory).
type Host interface {
	GetRepository(ctx context.Context, owner, repo string) (*Repository, error)
	GetTree(ctx context.Context, owner, repo, ref string) ([]TreeEntry, error)
	GetReadme(ctx context.Context, owner, repo string) (string, error)
	GetFileContent(ctx context.Context, owner, repo, ref, path string) (content string, ok bool, err error)
}

// maxTreeEntries caps recursive tree listings. Listings beyond this (or ones
// the host itself reports as truncated) fail with ErrTooLarge.
const maxTreeEntries = 100000

// AnnotateLines prefixes each line of content with its 1-based line number in
// the form "<n>|<line>". Generated citations reference these numbers, so the
// format is part of the citation contract.
func AnnotateLines(content string) string {
	if content == "" {
		return ""
	}
	lines := strings.Split(content, "\n")
	var b strings.Builder
	for i, line := range lines {
		if i > 0 {
			b.WriteByte('\n')
		}
		fmt.Fprintf(&b, "%d|%s", i+1, line)
	}
	return b.String()
}
