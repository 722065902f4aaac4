package gitstore

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// ErrCorruptTree is returned for trees that violate git's invariants.
var ErrCorruptTree = errors.New("corrupt tree")

// Kind classifies a stored object.
type Kind int

const (
	KindOther Kind = iota
	KindTree
	KindBlob
)

func (k Kind) String() string {
	switch k {
	case KindTree:
		return "tree"
	case KindBlob:
		return "blob"
	default:
		return "other"
	}
}

// Classify reports the kind of obj without reading blob content.
func Classify(obj object.Object) Kind {
	switch obj.(type) {
	case *object.Tree:
		return KindTree
	case *object.Blob:
		return KindBlob
	default:
		return KindOther
	}
}

// AsTree returns the entries of obj when it is a tree.
func AsTree(obj object.Object) ([]TreeEntry, bool, error) {
	tree, ok := obj.(*object.Tree)
	if !ok {
		return nil, false, nil
	}
	entries, err := Entries(tree)
	if err != nil {
		return nil, true, err
	}
	return entries, true, nil
}

// AsBlob returns obj as a blob. The content stays in the object store until
// the caller opens a reader on it.
func AsBlob(obj object.Object) (*object.Blob, bool) {
	blob, ok := obj.(*object.Blob)
	return blob, ok
}

// EntryKind is how a tree entry participates in the path space.
type EntryKind string

const (
	EntryTree       EntryKind = "tree"
	EntryBlob       EntryKind = "blob"
	EntryCommitLink EntryKind = "commit-link"
	EntryOther      EntryKind = "other"
)

// EntryKindOf maps a tree entry mode to its kind. Symlinks are stored as
// blobs and are listed as such.
func EntryKindOf(mode filemode.FileMode) EntryKind {
	switch {
	case mode == filemode.Dir:
		return EntryTree
	case mode == filemode.Submodule:
		return EntryCommitLink
	case mode.IsFile():
		return EntryBlob
	default:
		return EntryOther
	}
}

// TreeEntry is one classified entry of a tree.
type TreeEntry struct {
	Name string
	Kind EntryKind
	Hash plumbing.Hash
}

// Entries classifies the entries of tree in stored order. Duplicate names
// are reported as ErrCorruptTree.
func Entries(tree *object.Tree) ([]TreeEntry, error) {
	entries := make([]TreeEntry, len(tree.Entries))
	seen := make(map[string]struct{}, len(tree.Entries))
	for i, e := range tree.Entries {
		if _, dup := seen[e.Name]; dup {
			return nil, fmt.Errorf("%w: tree %s lists %q twice", ErrCorruptTree, tree.Hash, e.Name)
		}
		seen[e.Name] = struct{}{}
		entries[i] = TreeEntry{Name: e.Name, Kind: EntryKindOf(e.Mode), Hash: e.Hash}
	}
	return entries, nil
}

// Tree reads the tree object h.
func (s *Store) Tree(h plumbing.Hash) (*object.Tree, error) {
	tree, err := s.Repo.TreeObject(h)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", h, err)
	}
	return tree, nil
}

// Blob reads the blob header for h. Content is only read through Blob.Reader.
func (s *Store) Blob(h plumbing.Hash) (*object.Blob, error) {
	blob, err := s.Repo.BlobObject(h)
	if err != nil {
		return nil, fmt.Errorf("read blob %s: %w", h, err)
	}
	return blob, nil
}
