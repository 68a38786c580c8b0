package wiki

import (
	"errors"

	"github.com/julianshen/reposcribe/internal/repohost"
)

// ErrConflict indicates a generation request was rejected because a run for
// the same repository is already in flight. Surfaced distinctly so callers
// can show "already in progress" rather than a generic failure.
var ErrConflict = errors.New("wiki generation is already in progress")

// ErrWikiNotFound indicates an operation referenced a wiki that does not
// exist. Within a run this is a logical invariant violation, never retried.
var ErrWikiNotFound = errors.New("wiki not found")

// ValidationError indicates the model returned structurally invalid output
// (empty page list, pages with no usable file paths). It is retriable: a
// fresh generation attempt may well produce a valid result.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid model output: " + e.Reason
}

// IsRetriable classifies an error for the step retry policy. Not-found,
// too-large, conflict and missing-wiki conditions abort immediately;
// validation failures and everything else (network, timeouts, unexpected)
// are retried with backoff.
func IsRetriable(err error) bool {
	switch {
	case err == nil:
		return false
	case errors.Is(err, ErrConflict),
		errors.Is(err, ErrWikiNotFound),
		repohost.IsNotFound(err),
		repohost.IsTooLarge(err):
		return false
	}
	return true
}

// UserMessage renders a failure as a short human-readable message with no
// internal detail, suitable for the polling UI.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrConflict):
		return "Wiki generation is already in progress"
	case repohost.IsNotFound(err):
		return "Repository not found"
	case repohost.IsTooLarge(err):
		return "Repository is too large to process"
	case errors.Is(err, ErrWikiNotFound):
		return "Wiki not found"
	}
	return "Wiki generation failed"
}
