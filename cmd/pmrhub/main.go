package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/odvcencio/pmrhub/internal/api"
	"github.com/odvcencio/pmrhub/internal/config"
	"github.com/odvcencio/pmrhub/internal/database"
	"github.com/odvcencio/pmrhub/internal/gitstore"
	"github.com/odvcencio/pmrhub/internal/service"
	"github.com/odvcencio/pmrhub/internal/web"
)

const usage = `Usage: pmrhub <command> [flags]

Commands:
  serve           Start the server
  migrate         Run database migrations
  workspace-add   Register a workspace (--url, --description)
  workspace-list  List registered workspaces with their head commits
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		cmdServe(os.Args[2:])
	case "migrate":
		cmdMigrate(os.Args[2:])
	case "workspace-add":
		cmdWorkspaceAdd(os.Args[2:], os.Stdout)
	case "workspace-list":
		cmdWorkspaceList(os.Args[2:], os.Stdout)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", os.Args[1])
		os.Exit(1)
	}
}

func cmdServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	if err := cfg.ValidateServe(); err != nil {
		slog.Error("invalid config", "error", err)
		os.Exit(1)
	}

	traceShutdown, err := initTracing(context.Background())
	if err != nil {
		slog.Error("init tracing", "error", err)
		os.Exit(1)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := traceShutdown(ctx); err != nil {
			slog.Error("shutdown tracing", "error", err)
		}
	}()

	db, workspaces, err := openWorkspaces(cfg)
	if err != nil {
		slog.Error("open workspaces", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Auto-migrate on startup
	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}

	pages, err := web.NewRenderer()
	if err != nil {
		slog.Error("load templates", "error", err)
		os.Exit(1)
	}
	server := api.NewServer(db, workspaces, pages, api.ServerOptions{})

	httpServer := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      server,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 5 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		slog.Info("pmrhub listening", "addr", cfg.Addr(), "git_root", cfg.Storage.GitRoot)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			slog.Error("listen", "error", err)
			os.Exit(1)
		}
	}()

	<-done
	slog.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	httpServer.Shutdown(ctx)
}

func cmdMigrate(args []string) {
	fs := flag.NewFlagSet("migrate", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	cfg := loadConfig(*configPath)
	db, err := openDB(cfg)
	if err != nil {
		slog.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		slog.Error("migrate", "error", err)
		os.Exit(1)
	}
	slog.Info("migrations complete")
}

func cmdWorkspaceAdd(args []string, out io.Writer) {
	fs := flag.NewFlagSet("workspace-add", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	url := fs.String("url", "", "canonical url of the workspace")
	description := fs.String("description", "", "optional description")
	fs.Parse(args)

	if err := runWorkspaceAdd(context.Background(), loadConfig(*configPath), *url, *description, out); err != nil {
		slog.Error("workspace-add", "error", err)
		os.Exit(1)
	}
}

func cmdWorkspaceList(args []string, out io.Writer) {
	fs := flag.NewFlagSet("workspace-list", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	if err := runWorkspaceList(context.Background(), loadConfig(*configPath), out); err != nil {
		slog.Error("workspace-list", "error", err)
		os.Exit(1)
	}
}

// runWorkspaceAdd registers a workspace and reports where its repository
// is expected on disk.
func runWorkspaceAdd(ctx context.Context, cfg *config.Config, url, description string, out io.Writer) error {
	url = strings.TrimSpace(url)
	if url == "" {
		return fmt.Errorf("--url is required")
	}
	db, workspaces, err := openWorkspaces(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	ws, err := workspaces.Create(ctx, url, description)
	if err != nil {
		return err
	}
	return json.NewEncoder(out).Encode(struct {
		ID       int64  `json:"id"`
		URL      string `json:"url"`
		RepoPath string `json:"repo_path"`
	}{ws.ID, ws.URL, workspaces.RepoPath(ws.ID)})
}

// runWorkspaceList writes one JSON record per workspace.
func runWorkspaceList(ctx context.Context, cfg *config.Config, out io.Writer) error {
	db, workspaces, err := openWorkspaces(cfg)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	records, err := workspaces.ListWithHeads(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, record := range records {
		if err := enc.Encode(record); err != nil {
			return err
		}
	}
	return nil
}

func loadConfig(path string) *config.Config {
	cfg, err := config.Load(path)
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Log.Level)})))
	return cfg
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func openDB(cfg *config.Config) (database.DB, error) {
	switch cfg.Database.Driver {
	case "sqlite":
		return database.OpenSQLite(cfg.Database.DSN)
	case "postgres":
		return database.OpenPostgres(cfg.Database.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Database.Driver)
	}
}

func openWorkspaces(cfg *config.Config) (database.DB, *service.WorkspaceService, error) {
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	pool, err := gitstore.NewPool(cfg.Browse.StoreCacheSize, cfg.Browse.ObjectCacheMB)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("create store pool: %w", err)
	}
	workspaces := service.NewWorkspaceService(db, pool, service.Options{
		GitRoot:         cfg.Storage.GitRoot,
		DefaultBranches: cfg.Browse.DefaultBranches,
		MaxRawBytes:     cfg.Browse.MaxRawBytes,
	})
	return db, workspaces, nil
}
