package database

import (
	"context"

	"github.com/odvcencio/pmrhub/internal/models"
)

// DB defines the workspace metadata store. Implemented by SQLite and PostgreSQL backends.
// Lookups of a missing row return an error wrapping sql.ErrNoRows.
type DB interface {
	Close() error
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error

	// Workspaces
	CreateWorkspace(ctx context.Context, ws *models.Workspace) error
	GetWorkspaceByID(ctx context.Context, id int64) (*models.Workspace, error)
	GetWorkspaceByURL(ctx context.Context, url string) (*models.Workspace, error)
	ListWorkspaces(ctx context.Context) ([]models.Workspace, error)
}
