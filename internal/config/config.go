package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Browse   BrowseConfig   `yaml:"browse"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"` // "sqlite" or "postgres"
	DSN    string `yaml:"dsn"`    // file path for sqlite, connection string for postgres
}

type StorageConfig struct {
	GitRoot string `yaml:"git_root"` // one repository per workspace id below this directory
}

type BrowseConfig struct {
	DefaultBranches []string `yaml:"default_branches"` // tried in order when HEAD is dangling
	MaxRawBytes     int64    `yaml:"max_raw_bytes"`    // 0 disables the cap
	ObjectCacheMB   int      `yaml:"object_cache_mb"`
	StoreCacheSize  int      `yaml:"store_cache_size"`
}

type LogConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

func (c *Config) ValidateServe() error {
	if c == nil {
		return fmt.Errorf("config is required")
	}
	if c.Storage.GitRoot == "" {
		return fmt.Errorf("storage.git_root must be configured (example: PMRHUB_GIT_ROOT=/var/lib/pmr/git)")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535 (current: %d)", c.Server.Port)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database driver: %s", c.Database.Driver)
	}
	if c.Browse.MaxRawBytes < 0 {
		return fmt.Errorf("browse.max_raw_bytes must not be negative")
	}
	return nil
}

func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8000,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "pmrhub.db",
		},
		Storage: StorageConfig{
			GitRoot: "data/git",
		},
		Browse: BrowseConfig{
			DefaultBranches: []string{"main", "master"},
			MaxRawBytes:     64 << 20,
			ObjectCacheMB:   32,
			StoreCacheSize:  128,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PMRHUB_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("PMRHUB_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = p
		}
	}
	if v := os.Getenv("PMRHUB_DB_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PMRHUB_DB_DSN"); v != "" {
		cfg.Database.DSN = v
	}
	if v := os.Getenv("PMR_GIT_ROOT"); v != "" {
		cfg.Storage.GitRoot = v
	}
	if v := os.Getenv("PMRHUB_GIT_ROOT"); v != "" {
		cfg.Storage.GitRoot = v
	}
	if v := os.Getenv("PMRHUB_DEFAULT_BRANCHES"); v != "" {
		cfg.Browse.DefaultBranches = parseCSV(v)
	}
	if v := os.Getenv("PMRHUB_MAX_RAW_BYTES"); v != "" {
		if value, err := strconv.ParseInt(v, 10, 64); err == nil && value >= 0 {
			cfg.Browse.MaxRawBytes = value
		}
	}
	if v := os.Getenv("PMRHUB_OBJECT_CACHE_MB"); v != "" {
		if value, err := strconv.Atoi(v); err == nil && value > 0 {
			cfg.Browse.ObjectCacheMB = value
		}
	}
	if v := os.Getenv("PMRHUB_STORE_CACHE_SIZE"); v != "" {
		if value, err := strconv.Atoi(v); err == nil && value > 0 {
			cfg.Browse.StoreCacheSize = value
		}
	}
	if v := os.Getenv("PMRHUB_LOG_LEVEL"); v != "" {
		cfg.Log.Level = strings.ToLower(strings.TrimSpace(v))
	}
}

func parseCSV(v string) []string {
	raw := strings.TrimSpace(v)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		value := strings.TrimSpace(part)
		if value == "" {
			continue
		}
		out = append(out, value)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
