package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/odvcencio/pmrhub/internal/gitstore"
)

// Walker descends a commit's tree one path segment at a time.
type Walker struct {
	store   *gitstore.Store
	root    *object.Tree
	modules map[string]*config.Submodule
}

func NewWalker(store *gitstore.Store, root *object.Tree) *Walker {
	return &Walker{store: store, root: root}
}

// SplitPath splits p on "/" and drops empty segments.
func SplitPath(p string) []string {
	parts := strings.Split(p, "/")
	out := parts[:0]
	for _, part := range parts {
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Walk resolves p below the root tree. It returns the target and the
// normalized form of p. Lookups are exact by name, so "." and ".." are
// simply missing entries.
func (w *Walker) Walk(ctx context.Context, p string) (Target, string, error) {
	segments := SplitPath(p)
	current := w.root
	for i, seg := range segments {
		if err := ctx.Err(); err != nil {
			return nil, "", err
		}
		entries, err := gitstore.Entries(current)
		if err != nil {
			return nil, "", err
		}
		entry, ok := findEntry(entries, seg)
		if !ok {
			return nil, "", fmt.Errorf("%w: %s", ErrPathNotFound, strings.Join(segments[:i+1], "/"))
		}
		last := i == len(segments)-1
		walked := strings.Join(segments[:i+1], "/")

		switch entry.Kind {
		case gitstore.EntryCommitLink:
			location, err := w.subRepoLocation(walked)
			if err != nil {
				return nil, "", err
			}
			return &SubRepoBoundary{
				Location: location,
				Commit:   entry.Hash.String(),
				Path:     strings.Join(segments[i+1:], "/"),
			}, strings.Join(segments, "/"), nil
		case gitstore.EntryTree:
			tree, err := w.store.Tree(entry.Hash)
			if err != nil {
				return nil, "", err
			}
			current = tree
			if last {
				return treeTarget(tree, walked+"/")
			}
		case gitstore.EntryBlob:
			if !last {
				return nil, "", fmt.Errorf("%w: %s is a file", ErrPathNotFound, walked)
			}
			blob, err := w.store.Blob(entry.Hash)
			if err != nil {
				return nil, "", err
			}
			target, err := newObjectTarget(blob, walked)
			if err != nil {
				return nil, "", err
			}
			return target, walked, nil
		default:
			return nil, "", fmt.Errorf("%w: %s", ErrPathNotFound, walked)
		}
	}
	return treeTarget(w.root, "")
}

func treeTarget(tree *object.Tree, normalized string) (Target, string, error) {
	target, err := newObjectTarget(tree, normalized)
	if err != nil {
		return nil, "", err
	}
	return target, normalized, nil
}

func findEntry(entries []gitstore.TreeEntry, name string) (gitstore.TreeEntry, bool) {
	for _, e := range entries {
		if e.Name == name {
			return e, true
		}
	}
	return gitstore.TreeEntry{}, false
}

// subRepoLocation returns the url .gitmodules declares for the link at
// path, falling back to the path itself.
func (w *Walker) subRepoLocation(path string) (string, error) {
	if w.modules == nil {
		modules, err := gitstore.Submodules(w.root)
		if err != nil {
			return "", err
		}
		w.modules = modules
	}
	if sm, ok := w.modules[path]; ok && sm.URL != "" {
		return sm.URL, nil
	}
	return path, nil
}
