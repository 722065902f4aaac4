// Package gittest builds small git repositories on disk for tests.
package gittest

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/filemode"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// Repo is a bare repository whose objects are written directly, without a
// worktree.
type Repo struct {
	t    testing.TB
	Dir  string
	repo *git.Repository
}

// Init creates a bare repository at dir with HEAD pointing at main.
func Init(t testing.TB, dir string) *Repo {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(dir), 0o755); err != nil {
		t.Fatalf("create parent of %s: %v", dir, err)
	}
	repo, err := git.PlainInit(dir, true)
	if err != nil {
		t.Fatalf("init repository %s: %v", dir, err)
	}
	r := &Repo{t: t, Dir: dir, repo: repo}
	r.SetHEAD("main")
	return r
}

// Blob stores content and returns its hash.
func (r *Repo) Blob(content string) plumbing.Hash {
	r.t.Helper()
	obj := r.repo.Storer.NewEncodedObject()
	obj.SetType(plumbing.BlobObject)
	w, err := obj.Writer()
	if err != nil {
		r.t.Fatalf("blob writer: %v", err)
	}
	if _, err := io.WriteString(w, content); err != nil {
		r.t.Fatalf("write blob: %v", err)
	}
	if err := w.Close(); err != nil {
		r.t.Fatalf("close blob: %v", err)
	}
	return r.store(obj)
}

// Entry is one entry of a tree under construction.
type Entry struct {
	Name string
	Mode filemode.FileMode
	Hash plumbing.Hash
}

func File(name string, h plumbing.Hash) Entry { return Entry{Name: name, Mode: filemode.Regular, Hash: h} }
func Dir(name string, h plumbing.Hash) Entry  { return Entry{Name: name, Mode: filemode.Dir, Hash: h} }

// Submodule is a commit-link entry. The commit need not exist locally.
func Submodule(name string, commit plumbing.Hash) Entry {
	return Entry{Name: name, Mode: filemode.Submodule, Hash: commit}
}

// Tree stores a tree of entries in git's canonical order. Duplicate names
// are written as given.
func (r *Repo) Tree(entries ...Entry) plumbing.Hash {
	r.t.Helper()
	sorted := make([]Entry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool { return sortKey(sorted[i]) < sortKey(sorted[j]) })

	tree := &object.Tree{}
	for _, e := range sorted {
		tree.Entries = append(tree.Entries, object.TreeEntry{Name: e.Name, Mode: e.Mode, Hash: e.Hash})
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := tree.Encode(obj); err != nil {
		r.t.Fatalf("encode tree: %v", err)
	}
	return r.store(obj)
}

// Files stores nested trees for a set of slash-separated file paths and
// returns the root tree hash. Extra entries are merged into the tree at the
// directory named by their key ("" for the root).
func (r *Repo) Files(files map[string]string, extra map[string][]Entry) plumbing.Hash {
	r.t.Helper()
	type dir struct {
		files map[string]string
		dirs  map[string]*dir
	}
	newDir := func() *dir { return &dir{files: map[string]string{}, dirs: map[string]*dir{}} }
	root := newDir()
	lookup := func(parts []string) *dir {
		d := root
		for _, p := range parts {
			child, ok := d.dirs[p]
			if !ok {
				child = newDir()
				d.dirs[p] = child
			}
			d = child
		}
		return d
	}
	for path, content := range files {
		parts := strings.Split(path, "/")
		lookup(parts[:len(parts)-1]).files[parts[len(parts)-1]] = content
	}
	for path := range extra {
		if path != "" {
			lookup(strings.Split(path, "/"))
		}
	}

	var write func(prefix string, d *dir) plumbing.Hash
	write = func(prefix string, d *dir) plumbing.Hash {
		var entries []Entry
		for name, content := range d.files {
			entries = append(entries, File(name, r.Blob(content)))
		}
		for name, child := range d.dirs {
			entries = append(entries, Dir(name, write(strings.TrimPrefix(prefix+"/"+name, "/"), child)))
		}
		entries = append(entries, extra[prefix]...)
		return r.Tree(entries...)
	}
	return write("", root)
}

// Commit stores a commit of tree with the given parents.
func (r *Repo) Commit(tree plumbing.Hash, message string, parents ...plumbing.Hash) plumbing.Hash {
	r.t.Helper()
	sig := object.Signature{Name: "Test", Email: "test@example.org", When: time.Unix(1700000000, 0).UTC()}
	c := &object.Commit{
		Author:       sig,
		Committer:    sig,
		Message:      message,
		TreeHash:     tree,
		ParentHashes: parents,
	}
	obj := r.repo.Storer.NewEncodedObject()
	if err := c.Encode(obj); err != nil {
		r.t.Fatalf("encode commit: %v", err)
	}
	return r.store(obj)
}

// SetBranch points refs/heads/<name> at h.
func (r *Repo) SetBranch(name string, h plumbing.Hash) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), h)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("set branch %s: %v", name, err)
	}
}

// SetTag points refs/tags/<name> at h.
func (r *Repo) SetTag(name string, h plumbing.Hash) {
	r.t.Helper()
	ref := plumbing.NewHashReference(plumbing.NewTagReferenceName(name), h)
	if err := r.repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("set tag %s: %v", name, err)
	}
}

// SetHEAD makes HEAD a symbolic ref to refs/heads/<branch>.
func (r *Repo) SetHEAD(branch string) {
	r.t.Helper()
	ref := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName(branch))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		r.t.Fatalf("set HEAD: %v", err)
	}
}

func (r *Repo) store(obj plumbing.EncodedObject) plumbing.Hash {
	r.t.Helper()
	h, err := r.repo.Storer.SetEncodedObject(obj)
	if err != nil {
		r.t.Fatalf("store %s: %v", obj.Type(), err)
	}
	return h
}

func sortKey(e Entry) string {
	if e.Mode == filemode.Dir {
		return e.Name + "/"
	}
	return e.Name
}
