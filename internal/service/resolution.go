package service

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/odvcencio/pmrhub/internal/gitstore"
)

// Target is where a path walk ended: an *ObjectTarget inside the workspace's
// own store, or a *SubRepoBoundary pointing into another repository.
type Target interface {
	isTarget()
}

// ObjectTarget is a tree or blob of the resolved commit. Entries is set for
// trees. Object is nil only for the root of an empty repository.
type ObjectTarget struct {
	Kind    gitstore.Kind
	Object  object.Object
	Entries []gitstore.TreeEntry
}

// newObjectTarget classifies obj. Only trees and blobs are addressable.
func newObjectTarget(obj object.Object, p string) (*ObjectTarget, error) {
	t := &ObjectTarget{Kind: gitstore.Classify(obj), Object: obj}
	switch t.Kind {
	case gitstore.KindTree:
		entries, _, err := gitstore.AsTree(obj)
		if err != nil {
			return nil, err
		}
		t.Entries = entries
	case gitstore.KindBlob:
	default:
		return nil, fmt.Errorf("%w: %s is not a tree or blob", ErrPathNotFound, p)
	}
	return t, nil
}

// SubRepoBoundary is produced when the walk reaches a commit-link. Commit and
// Path are the coordinates inside the linked repository; Path is the part of
// the requested path below the link.
type SubRepoBoundary struct {
	Location string `json:"location"`
	Commit   string `json:"commit"`
	Path     string `json:"path"`
}

func (*ObjectTarget) isTarget()    {}
func (*SubRepoBoundary) isTarget() {}

// PathResolution is the result of resolving (commit ref, path) in a workspace.
type PathResolution struct {
	// Commit is nil only when the repository has no commits.
	Commit *object.Commit
	// Path is the normalized requested path: no leading slash, and a trailing
	// slash when it names a directory.
	Path   string
	Target Target

	store *gitstore.Store
}

// CommitID returns the full hash of the resolved commit, or nil for an empty
// repository.
func (r *PathResolution) CommitID() *string {
	if r == nil || r.Commit == nil {
		return nil
	}
	id := r.Commit.Hash.String()
	return &id
}

// Close releases the store handle backing the resolution. Blob readers must
// be drained before Close.
func (r *PathResolution) Close() error {
	if r == nil {
		return nil
	}
	return r.store.Close()
}
