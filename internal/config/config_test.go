package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := Default()

	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("Server.Host = %q, want %q", cfg.Server.Host, "0.0.0.0")
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("Server.Port = %d, want 8000", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Fatalf("Database.Driver = %q, want %q", cfg.Database.Driver, "sqlite")
	}
	if !reflect.DeepEqual(cfg.Browse.DefaultBranches, []string{"main", "master"}) {
		t.Fatalf("Browse.DefaultBranches = %#v, want main,master", cfg.Browse.DefaultBranches)
	}
	if cfg.Browse.MaxRawBytes != 64<<20 {
		t.Fatalf("Browse.MaxRawBytes = %d, want %d", cfg.Browse.MaxRawBytes, 64<<20)
	}
	if cfg.Log.Level != "info" {
		t.Fatalf("Log.Level = %q, want %q", cfg.Log.Level, "info")
	}
}

func TestAddr(t *testing.T) {
	cfg := Default()
	cfg.Server.Host = "127.0.0.1"
	cfg.Server.Port = 8088

	if got := cfg.Addr(); got != "127.0.0.1:8088" {
		t.Fatalf("Addr() = %q, want %q", got, "127.0.0.1:8088")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("PMRHUB_HOST", "127.0.0.1")
	t.Setenv("PMRHUB_PORT", "4000")
	t.Setenv("PMRHUB_DB_DRIVER", "postgres")
	t.Setenv("PMRHUB_DB_DSN", "postgres://example")
	t.Setenv("PMRHUB_GIT_ROOT", "/tmp/git")
	t.Setenv("PMRHUB_DEFAULT_BRANCHES", " trunk, ,main ")
	t.Setenv("PMRHUB_MAX_RAW_BYTES", "1024")
	t.Setenv("PMRHUB_OBJECT_CACHE_MB", "8")
	t.Setenv("PMRHUB_STORE_CACHE_SIZE", "16")
	t.Setenv("PMRHUB_LOG_LEVEL", " DEBUG ")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Host != "127.0.0.1" {
		t.Fatalf("Server.Host = %q, want %q", cfg.Server.Host, "127.0.0.1")
	}
	if cfg.Server.Port != 4000 {
		t.Fatalf("Server.Port = %d, want 4000", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Fatalf("Database.Driver = %q, want %q", cfg.Database.Driver, "postgres")
	}
	if cfg.Database.DSN != "postgres://example" {
		t.Fatalf("Database.DSN = %q, want %q", cfg.Database.DSN, "postgres://example")
	}
	if cfg.Storage.GitRoot != "/tmp/git" {
		t.Fatalf("Storage.GitRoot = %q, want %q", cfg.Storage.GitRoot, "/tmp/git")
	}
	if want := []string{"trunk", "main"}; !reflect.DeepEqual(cfg.Browse.DefaultBranches, want) {
		t.Fatalf("Browse.DefaultBranches = %#v, want %#v", cfg.Browse.DefaultBranches, want)
	}
	if cfg.Browse.MaxRawBytes != 1024 {
		t.Fatalf("Browse.MaxRawBytes = %d, want 1024", cfg.Browse.MaxRawBytes)
	}
	if cfg.Browse.ObjectCacheMB != 8 {
		t.Fatalf("Browse.ObjectCacheMB = %d, want 8", cfg.Browse.ObjectCacheMB)
	}
	if cfg.Browse.StoreCacheSize != 16 {
		t.Fatalf("Browse.StoreCacheSize = %d, want 16", cfg.Browse.StoreCacheSize)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("Log.Level = %q, want %q", cfg.Log.Level, "debug")
	}
}

func TestLoadLegacyEnvAliases(t *testing.T) {
	t.Setenv("DATABASE_URL", "legacy.db")
	t.Setenv("PMR_GIT_ROOT", "/srv/pmr")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Database.DSN != "legacy.db" {
		t.Fatalf("Database.DSN = %q, want %q", cfg.Database.DSN, "legacy.db")
	}
	if cfg.Storage.GitRoot != "/srv/pmr" {
		t.Fatalf("Storage.GitRoot = %q, want %q", cfg.Storage.GitRoot, "/srv/pmr")
	}

	t.Setenv("PMRHUB_GIT_ROOT", "/srv/override")
	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Storage.GitRoot != "/srv/override" {
		t.Fatalf("Storage.GitRoot = %q, want PMRHUB_GIT_ROOT to win", cfg.Storage.GitRoot)
	}
}

func TestLoadInvalidEnvValuesDoNotOverrideDefaults(t *testing.T) {
	t.Setenv("PMRHUB_PORT", "not-an-int")
	t.Setenv("PMRHUB_MAX_RAW_BYTES", "-5")
	t.Setenv("PMRHUB_OBJECT_CACHE_MB", "0")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 8000 {
		t.Fatalf("Server.Port = %d, want default 8000", cfg.Server.Port)
	}
	if cfg.Browse.MaxRawBytes != 64<<20 {
		t.Fatalf("Browse.MaxRawBytes = %d, want default", cfg.Browse.MaxRawBytes)
	}
	if cfg.Browse.ObjectCacheMB != 32 {
		t.Fatalf("Browse.ObjectCacheMB = %d, want default 32", cfg.Browse.ObjectCacheMB)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`server:
  port: 9100
storage:
  git_root: /data/workspaces
browse:
  default_branches: [develop]
  max_raw_bytes: 0
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Port != 9100 {
		t.Fatalf("Server.Port = %d, want 9100", cfg.Server.Port)
	}
	if cfg.Server.Host != "0.0.0.0" {
		t.Fatalf("Server.Host = %q, want default to survive partial file", cfg.Server.Host)
	}
	if cfg.Storage.GitRoot != "/data/workspaces" {
		t.Fatalf("Storage.GitRoot = %q, want %q", cfg.Storage.GitRoot, "/data/workspaces")
	}
	if !reflect.DeepEqual(cfg.Browse.DefaultBranches, []string{"develop"}) {
		t.Fatalf("Browse.DefaultBranches = %#v, want [develop]", cfg.Browse.DefaultBranches)
	}
	if cfg.Browse.MaxRawBytes != 0 {
		t.Fatalf("Browse.MaxRawBytes = %d, want 0", cfg.Browse.MaxRawBytes)
	}
}

func TestLoadReadError(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "missing.yaml")

	_, err := Load(missing)
	if err == nil {
		t.Fatal("Load(missing) error = nil, want error")
	}
	if !strings.Contains(err.Error(), "read config") {
		t.Fatalf("Load(missing) error = %v, want read config error", err)
	}
}

func TestLoadParseError(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server: [\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load(invalid yaml) error = nil, want error")
	}
	if !strings.Contains(err.Error(), "parse config") {
		t.Fatalf("Load(invalid yaml) error = %v, want parse config error", err)
	}
}

func TestValidateServe(t *testing.T) {
	if err := (*Config)(nil).ValidateServe(); err == nil {
		t.Fatal("ValidateServe(nil) error = nil, want error")
	}

	cfg := Default()
	if err := cfg.ValidateServe(); err != nil {
		t.Fatalf("ValidateServe(default) = %v, want nil", err)
	}

	cfg.Storage.GitRoot = ""
	if err := cfg.ValidateServe(); err == nil || !strings.Contains(err.Error(), "git_root") {
		t.Fatalf("ValidateServe(empty git root) = %v, want git_root error", err)
	}

	cfg = Default()
	cfg.Database.Driver = "mysql"
	if err := cfg.ValidateServe(); err == nil || !strings.Contains(err.Error(), "mysql") {
		t.Fatalf("ValidateServe(mysql) = %v, want unsupported driver error", err)
	}

	cfg = Default()
	cfg.Server.Port = 0
	if err := cfg.ValidateServe(); err == nil {
		t.Fatal("ValidateServe(port 0) error = nil, want error")
	}
}
