package repohost

import "errors"

// ErrNotFound indicates the repository, branch, or ref does not exist on the
// host. It is never retried.
var ErrNotFound = errors.New("repository not found")

// ErrTooLarge indicates the repository tree listing was truncated by the host
// or exceeds the processing cap. It is never retried.
var ErrTooLarge = errors.New("repository is too large to process")

// IsNotFound reports whether err is (or wraps) ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsTooLarge reports whether err is (or wraps) ErrTooLarge.
func IsTooLarge(err error) bool {
	return errors.Is(err, ErrTooLarge)
}
