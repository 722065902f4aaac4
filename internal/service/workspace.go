package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/odvcencio/pmrhub/internal/database"
	"github.com/odvcencio/pmrhub/internal/gitstore"
	"github.com/odvcencio/pmrhub/internal/models"
)

const serviceTracerName = "github.com/odvcencio/pmrhub/internal/service"

const headLookupConcurrency = 8

// Options configures where workspace repositories live and how they are read.
type Options struct {
	GitRoot         string
	DefaultBranches []string
	// MaxRawBytes caps blob downloads; 0 disables the cap.
	MaxRawBytes int64
}

// WorkspaceService maps workspace records to their git repositories and
// resolves paths inside them.
type WorkspaceService struct {
	db     database.DB
	pool   *gitstore.Pool
	opts   Options
	tracer trace.Tracer
}

func NewWorkspaceService(db database.DB, pool *gitstore.Pool, opts Options) *WorkspaceService {
	return &WorkspaceService{
		db:     db,
		pool:   pool,
		opts:   opts,
		tracer: otel.Tracer(serviceTracerName),
	}
}

func (s *WorkspaceService) List(ctx context.Context) ([]models.Workspace, error) {
	return s.db.ListWorkspaces(ctx)
}

func (s *WorkspaceService) Get(ctx context.Context, id int64) (*models.Workspace, error) {
	ws, err := s.db.GetWorkspaceByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %d", ErrWorkspaceNotFound, id)
		}
		return nil, err
	}
	return ws, nil
}

// FindByURL returns the lowest-numbered workspace registered under url.
func (s *WorkspaceService) FindByURL(ctx context.Context, url string) (*models.Workspace, error) {
	ws, err := s.db.GetWorkspaceByURL(ctx, url)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrWorkspaceNotFound, url)
		}
		return nil, err
	}
	return ws, nil
}

func (s *WorkspaceService) Create(ctx context.Context, url, description string) (*models.Workspace, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("workspace url is required")
	}
	ws := &models.Workspace{URL: url}
	if description = strings.TrimSpace(description); description != "" {
		ws.Description = &description
	}
	if err := s.db.CreateWorkspace(ctx, ws); err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	return ws, nil
}

// RepoPath is the on-disk location of the workspace's repository.
func (s *WorkspaceService) RepoPath(id int64) string {
	return filepath.Join(s.opts.GitRoot, strconv.FormatInt(id, 10))
}

// Open opens a fresh store handle for the workspace. Handles share a
// decoded-object cache through the pool; the caller closes the handle.
func (s *WorkspaceService) Open(ws *models.Workspace) (*gitstore.Store, error) {
	store, err := s.pool.Open(s.RepoPath(ws.ID))
	if err != nil {
		if errors.Is(err, gitstore.ErrRepositoryNotFound) {
			return nil, fmt.Errorf("%w: workspace %d: %w", ErrRepositoryUnavailable, ws.ID, err)
		}
		return nil, fmt.Errorf("open workspace %d: %w", ws.ID, err)
	}
	return store, nil
}

// ResolvePath resolves ref and p inside the workspace. An empty ref means the
// default head. A repository without commits resolves its root to an empty
// listing. The caller must Close the returned resolution.
func (s *WorkspaceService) ResolvePath(ctx context.Context, ws *models.Workspace, ref, p string) (*PathResolution, error) {
	ctx, span := s.tracer.Start(ctx, "service.ResolvePath", trace.WithAttributes(
		attribute.Int64("workspace.id", ws.ID),
		attribute.String("commit.ref", ref),
		attribute.String("path", p),
	))
	defer span.End()

	res, err := s.resolvePath(ctx, ws, ref, p)
	if err != nil {
		span.RecordError(err)
		if !IsNotFound(err) {
			span.SetStatus(codes.Error, err.Error())
		}
		return nil, err
	}
	if id := res.CommitID(); id != nil {
		span.SetAttributes(attribute.String("commit.id", *id))
	}
	return res, nil
}

func (s *WorkspaceService) resolvePath(ctx context.Context, ws *models.Workspace, ref, p string) (*PathResolution, error) {
	store, err := s.Open(ws)
	if err != nil {
		return nil, err
	}
	res, err := s.resolveInStore(ctx, store, ref, p)
	if err != nil {
		store.Close()
		return nil, err
	}
	res.store = store
	return res, nil
}

func (s *WorkspaceService) resolveInStore(ctx context.Context, store *gitstore.Store, ref, p string) (*PathResolution, error) {
	commit, err := s.resolveCommit(store, ref)
	if errors.Is(err, gitstore.ErrNoCommits) {
		if segments := SplitPath(p); len(segments) > 0 {
			return nil, fmt.Errorf("%w: %s (repository has no commits)", ErrPathNotFound, strings.Join(segments, "/"))
		}
		return &PathResolution{Target: &ObjectTarget{Kind: gitstore.KindTree, Entries: []gitstore.TreeEntry{}}}, nil
	}
	if err != nil {
		return nil, err
	}
	root, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("read root tree of %s: %w", commit.Hash, err)
	}
	target, normalized, err := NewWalker(store, root).Walk(ctx, p)
	if err != nil {
		return nil, err
	}
	return &PathResolution{Commit: commit, Path: normalized, Target: target}, nil
}

func (s *WorkspaceService) resolveCommit(store *gitstore.Store, ref string) (*object.Commit, error) {
	var (
		commit *object.Commit
		err    error
	)
	if ref == "" {
		commit, err = store.HeadCommit(s.opts.DefaultBranches)
	} else {
		commit, err = store.ResolveCommit(ref)
	}
	if errors.Is(err, gitstore.ErrCommitNotFound) {
		return nil, fmt.Errorf("%w: %w", ErrCommitNotFound, err)
	}
	return commit, err
}

// HeadCommit returns the full hash of the workspace's default head, or nil
// when the repository has no commits.
func (s *WorkspaceService) HeadCommit(ctx context.Context, ws *models.Workspace) (*string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	store, err := s.Open(ws)
	if err != nil {
		return nil, err
	}
	defer store.Close()

	commit, err := store.HeadCommit(s.opts.DefaultBranches)
	if err != nil {
		if errors.Is(err, gitstore.ErrNoCommits) {
			return nil, nil
		}
		return nil, err
	}
	id := commit.Hash.String()
	return &id, nil
}

// Record pairs ws with its head commit. A repository that cannot be read
// yields a nil head rather than an error.
func (s *WorkspaceService) Record(ctx context.Context, ws *models.Workspace) models.WorkspaceRecord {
	head, err := s.HeadCommit(ctx, ws)
	if err != nil {
		level := slog.LevelWarn
		if errors.Is(err, ErrRepositoryUnavailable) {
			level = slog.LevelInfo
		}
		slog.Log(ctx, level, "workspace head unavailable", "workspace_id", ws.ID, "error", err)
		head = nil
	}
	return models.WorkspaceRecord{Workspace: *ws, HeadCommit: head}
}

// ListWithHeads lists all workspaces with their head commits, reading
// repositories concurrently.
func (s *WorkspaceService) ListWithHeads(ctx context.Context) ([]models.WorkspaceRecord, error) {
	workspaces, err := s.db.ListWorkspaces(ctx)
	if err != nil {
		return nil, err
	}
	records := make([]models.WorkspaceRecord, len(workspaces))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(headLookupConcurrency)
	for i := range workspaces {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			records[i] = s.Record(gctx, &workspaces[i])
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

// MaxRawBytes is the configured blob download cap.
func (s *WorkspaceService) MaxRawBytes() int64 { return s.opts.MaxRawBytes }
