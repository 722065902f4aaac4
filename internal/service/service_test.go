package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5/plumbing"

	"github.com/odvcencio/pmrhub/internal/database"
	"github.com/odvcencio/pmrhub/internal/gitstore"
	"github.com/odvcencio/pmrhub/internal/gittest"
	"github.com/odvcencio/pmrhub/internal/models"
)

var libCommit = plumbing.NewHash("def4560000000000000000000000000000000000")

type fixture struct {
	svc *WorkspaceService
	db  *database.SQLiteDB
}

func newFixture(t testing.TB, opts Options) *fixture {
	t.Helper()
	db, err := database.OpenSQLite(filepath.Join(t.TempDir(), "pmrhub.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	pool, err := gitstore.NewPool(8, 4)
	if err != nil {
		t.Fatal(err)
	}
	if opts.GitRoot == "" {
		opts.GitRoot = filepath.Join(t.TempDir(), "git")
	}
	if opts.DefaultBranches == nil {
		opts.DefaultBranches = []string{"main", "master"}
	}
	return &fixture{svc: NewWorkspaceService(db, pool, opts), db: db}
}

// addWorkspace registers a workspace and initializes its repository.
func (f *fixture) addWorkspace(t testing.TB, url string) (*models.Workspace, *gittest.Repo) {
	t.Helper()
	ws, err := f.svc.Create(context.Background(), url, "test workspace")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return ws, gittest.Init(t, f.svc.RepoPath(ws.ID))
}

// addW1 is a workspace whose only commit holds models/ODE.cellml and README.
func (f *fixture) addW1(t testing.TB) (*models.Workspace, plumbing.Hash) {
	t.Helper()
	ws, repo := f.addWorkspace(t, "https://models.example.org/w1")
	commit := repo.Commit(repo.Files(map[string]string{
		"models/ODE.cellml": "<model name=\"ode\"/>\n",
		"README":            "W1\n",
	}, nil), "initial")
	repo.SetBranch("main", commit)
	return ws, commit
}

// addW2 is a workspace embedding lib as a sub-repository at libCommit.
func (f *fixture) addW2(t *testing.T, gitmodules bool) (*models.Workspace, plumbing.Hash) {
	t.Helper()
	ws, repo := f.addWorkspace(t, "https://models.example.org/w2")
	files := map[string]string{"main.c": "int main(void) { return 0; }\n"}
	if gitmodules {
		files[".gitmodules"] = "[submodule \"lib\"]\n\tpath = lib\n\turl = other/repo\n"
	}
	commit := repo.Commit(repo.Files(files, map[string][]gittest.Entry{
		"": {gittest.Submodule("lib", libCommit)},
	}), "with lib")
	repo.SetBranch("main", commit)
	return ws, commit
}

func resolve(t *testing.T, svc *WorkspaceService, ws *models.Workspace, ref, p string) *PathResolution {
	t.Helper()
	res, err := svc.ResolvePath(context.Background(), ws, ref, p)
	if err != nil {
		t.Fatalf("ResolvePath(%q, %q): %v", ref, p, err)
	}
	t.Cleanup(func() { res.Close() })
	return res
}
