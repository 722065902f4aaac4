package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/odvcencio/pmrhub/internal/models"

	_ "modernc.org/sqlite"
)

type SQLiteDB struct {
	db *sql.DB
}

func OpenSQLite(dsn string) (*SQLiteDB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Enable WAL mode and foreign keys
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("pragma %s: %w", pragma, err)
		}
	}
	return &SQLiteDB{db: db}, nil
}

func (s *SQLiteDB) Close() error { return s.db.Close() }

func (s *SQLiteDB) Ping(ctx context.Context) error { return s.db.PingContext(ctx) }

func (s *SQLiteDB) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

const schema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	url TEXT NOT NULL,
	description TEXT,
	created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_workspaces_url ON workspaces(url);
`

func (s *SQLiteDB) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO workspaces (url, description) VALUES (?, ?)`,
		ws.URL, ws.Description)
	if err != nil {
		return err
	}
	ws.ID, _ = res.LastInsertId()
	return s.db.QueryRowContext(ctx, `SELECT created_at FROM workspaces WHERE id = ?`, ws.ID).Scan(&ws.CreatedAt)
}

func (s *SQLiteDB) GetWorkspaceByID(ctx context.Context, id int64) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, description, created_at FROM workspaces WHERE id = ?`, id).
		Scan(&ws.ID, &ws.URL, &ws.Description, &ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("workspace %d: %w", id, err)
	}
	return ws, nil
}

func (s *SQLiteDB) GetWorkspaceByURL(ctx context.Context, url string) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, url, description, created_at FROM workspaces WHERE url = ? ORDER BY id LIMIT 1`, url).
		Scan(&ws.ID, &ws.URL, &ws.Description, &ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("workspace %q: %w", url, err)
	}
	return ws, nil
}

func (s *SQLiteDB) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, url, description, created_at FROM workspaces ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	workspaces := []models.Workspace{}
	for rows.Next() {
		var ws models.Workspace
		if err := rows.Scan(&ws.ID, &ws.URL, &ws.Description, &ws.CreatedAt); err != nil {
			return nil, err
		}
		workspaces = append(workspaces, ws)
	}
	return workspaces, rows.Err()
}
