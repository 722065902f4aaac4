package gitstore

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var (
	// ErrNoCommits is returned by HeadCommit for a repository without any commit
	// reachable from HEAD or the fallback branches.
	ErrNoCommits = errors.New("repository has no commits")
	// ErrCommitNotFound is returned when a reference does not name a commit.
	ErrCommitNotFound = errors.New("commit not found")
)

// HeadCommit returns the commit HEAD points at. When HEAD is dangling (e.g.
// it names master but only main was pushed) the fallback branches are tried
// in order.
func (s *Store) HeadCommit(fallbacks []string) (*object.Commit, error) {
	head, err := s.Repo.Head()
	if err == nil {
		return s.commit(head.Hash())
	}
	if !errors.Is(err, plumbing.ErrReferenceNotFound) {
		return nil, fmt.Errorf("read HEAD: %w", err)
	}
	for _, branch := range fallbacks {
		ref, err := s.Repo.Reference(plumbing.NewBranchReferenceName(branch), true)
		if err != nil {
			continue
		}
		return s.commit(ref.Hash())
	}
	return nil, ErrNoCommits
}

// ResolveCommit parses ref as a revision (full or abbreviated hash, branch,
// tag, or any other expression the revision parser accepts) and returns the
// commit it names. Annotated tags are peeled.
func (s *Store) ResolveCommit(ref string) (*object.Commit, error) {
	hash, err := s.Repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		if isUnresolvedRevision(err) {
			return nil, fmt.Errorf("%w: %q: %v", ErrCommitNotFound, ref, err)
		}
		return nil, fmt.Errorf("resolve revision %q: %w", ref, err)
	}
	return s.commit(*hash)
}

// isUnresolvedRevision reports whether err means the revision names nothing,
// as opposed to a failure reading the store. The revision parser's syntax
// errors are unexported and are recognized by their message.
func isUnresolvedRevision(err error) bool {
	return errors.Is(err, plumbing.ErrReferenceNotFound) ||
		errors.Is(err, plumbing.ErrObjectNotFound) ||
		strings.HasPrefix(err.Error(), "Revision invalid")
}

func (s *Store) commit(h plumbing.Hash) (*object.Commit, error) {
	c, err := s.Repo.CommitObject(h)
	if err != nil {
		if errors.Is(err, plumbing.ErrObjectNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrCommitNotFound, h)
		}
		return nil, fmt.Errorf("read commit %s: %w", h, err)
	}
	return c, nil
}
