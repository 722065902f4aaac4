package service

import "errors"

var (
	ErrWorkspaceNotFound     = errors.New("workspace not found")
	ErrRepositoryUnavailable = errors.New("repository unavailable")
	ErrCommitNotFound        = errors.New("commit not found")
	ErrPathNotFound          = errors.New("path not found")
	ErrNotABlob              = errors.New("target is not a git blob")
	ErrBlobTooLarge          = errors.New("blob exceeds raw size limit")
)

// IsNotFound reports whether err is a reference-resolution failure: bad
// workspace id, unopenable store, unknown commit, missing path, or a content
// request on something other than a file.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrWorkspaceNotFound) ||
		errors.Is(err, ErrRepositoryUnavailable) ||
		errors.Is(err, ErrCommitNotFound) ||
		errors.Is(err, ErrPathNotFound) ||
		errors.Is(err, ErrNotABlob)
}
