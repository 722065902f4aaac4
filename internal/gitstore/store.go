package gitstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/storage/filesystem"
	lru "github.com/hashicorp/golang-lru/v2"
)

// ErrRepositoryNotFound is returned when a path does not hold a git repository.
var ErrRepositoryNotFound = errors.New("git repository not found")

// Store is a read handle on one repository's object store and refs.
// Handles are cheap to open; each request opens its own.
type Store struct {
	Repo    *git.Repository
	storage *filesystem.Storage
	root    string
}

// Root returns the git directory the store was opened on.
func (s *Store) Root() string { return s.root }

// Close releases file descriptors held by the underlying storage.
func (s *Store) Close() error {
	if s == nil || s.storage == nil {
		return nil
	}
	return s.storage.Close()
}

// Pool opens stores and shares one decoded-object cache per repository
// between them. The object caches are internally synchronized, so handles
// opened for concurrent requests read in parallel.
type Pool struct {
	caches    *lru.Cache[string, cache.Object]
	cacheSize cache.FileSize
}

// NewPool returns a Pool keeping object caches for up to maxStores
// repositories, each bounded to objectCacheMB megabytes.
func NewPool(maxStores, objectCacheMB int) (*Pool, error) {
	if maxStores <= 0 {
		maxStores = 128
	}
	if objectCacheMB <= 0 {
		objectCacheMB = 32
	}
	caches, err := lru.New[string, cache.Object](maxStores)
	if err != nil {
		return nil, fmt.Errorf("create store cache: %w", err)
	}
	return &Pool{
		caches:    caches,
		cacheSize: cache.FileSize(objectCacheMB) * cache.MiByte,
	}, nil
}

// Open opens the repository at repoPath, which may be a bare repository or a
// working copy containing a .git directory.
func (p *Pool) Open(repoPath string) (*Store, error) {
	root, err := locateGitDir(repoPath)
	if err != nil {
		return nil, err
	}
	storage := filesystem.NewStorageWithOptions(osfs.New(root), p.objectCache(root), filesystem.Options{})
	repo, err := git.Open(storage, nil)
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return nil, fmt.Errorf("%w: %s", ErrRepositoryNotFound, repoPath)
		}
		return nil, fmt.Errorf("open repository %s: %w", repoPath, err)
	}
	return &Store{Repo: repo, storage: storage, root: root}, nil
}

// Len reports how many repositories currently have a cached object set.
func (p *Pool) Len() int { return p.caches.Len() }

func (p *Pool) objectCache(root string) cache.Object {
	if c, ok := p.caches.Get(root); ok {
		return c
	}
	c := cache.NewObjectLRU(p.cacheSize)
	if prev, ok, _ := p.caches.PeekOrAdd(root, c); ok {
		return prev
	}
	return c
}

func locateGitDir(repoPath string) (string, error) {
	info, err := os.Stat(repoPath)
	if err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrRepositoryNotFound, repoPath)
		}
		return "", fmt.Errorf("stat repository %s: %w", repoPath, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%w: %s is not a directory", ErrRepositoryNotFound, repoPath)
	}
	dotGit := filepath.Join(repoPath, git.GitDirName)
	if info, err := os.Stat(dotGit); err == nil && info.IsDir() {
		repoPath = dotGit
	}
	if info, err := os.Stat(filepath.Join(repoPath, "objects")); err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s has no object store", ErrRepositoryNotFound, repoPath)
	}
	return repoPath, nil
}
