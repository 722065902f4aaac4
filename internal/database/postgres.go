package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/odvcencio/pmrhub/internal/models"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type PostgresDB struct {
	db *sql.DB
}

func OpenPostgres(dsn string) (*PostgresDB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	return &PostgresDB{db: db}, nil
}

func (p *PostgresDB) Close() error { return p.db.Close() }

func (p *PostgresDB) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *PostgresDB) Migrate(ctx context.Context) error {
	_, err := p.db.ExecContext(ctx, pgSchema)
	return err
}

const pgSchema = `
CREATE TABLE IF NOT EXISTS workspaces (
	id BIGSERIAL PRIMARY KEY,
	url TEXT NOT NULL,
	description TEXT,
	created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE INDEX IF NOT EXISTS idx_workspaces_url ON workspaces(url);
`

func (p *PostgresDB) CreateWorkspace(ctx context.Context, ws *models.Workspace) error {
	return p.db.QueryRowContext(ctx,
		`INSERT INTO workspaces (url, description) VALUES ($1, $2) RETURNING id, created_at`,
		ws.URL, ws.Description).Scan(&ws.ID, &ws.CreatedAt)
}

func (p *PostgresDB) GetWorkspaceByID(ctx context.Context, id int64) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := p.db.QueryRowContext(ctx,
		`SELECT id, url, description, created_at FROM workspaces WHERE id = $1`, id).
		Scan(&ws.ID, &ws.URL, &ws.Description, &ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("workspace %d: %w", id, err)
	}
	return ws, nil
}

func (p *PostgresDB) GetWorkspaceByURL(ctx context.Context, url string) (*models.Workspace, error) {
	ws := &models.Workspace{}
	err := p.db.QueryRowContext(ctx,
		`SELECT id, url, description, created_at FROM workspaces WHERE url = $1 ORDER BY id LIMIT 1`, url).
		Scan(&ws.ID, &ws.URL, &ws.Description, &ws.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("workspace %q: %w", url, err)
	}
	return ws, nil
}

func (p *PostgresDB) ListWorkspaces(ctx context.Context) ([]models.Workspace, error) {
	rows, err := p.db.QueryContext(ctx,
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
