package app

import (
	"fmt"
	"os"
)

// GetDBPath resolves the database path.
// Order of precedence:
// 1) CLI override (--db-path)
// 2) Environment variable: NMEM_DB_PATH
// 3) config.toml: db_path
// 4) Default: $HOME/.nmem/nmem.db
// Ensures the parent directory exists (owner-only) before returning.
func GetDBPath() (string, error) {
	if override := getDBPathOverride(); override != "" {
		return EnsureDBDir(override)
	}
	if envPath := os.Getenv("NMEM_DB_PATH"); envPath != "" {
		return EnsureDBDir(envPath)
	}
	cfg, err := LoadSettings()
	if err != nil {
		return "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DBPath != "" {
		return EnsureDBDir(cfg.DBPath)
	}
	path, err := defaultDBPath()
	if err != nil {
		return "", fmt.Errorf("failed to determine default db path: %w", err)
	}
	return EnsureDBDir(path)
}

// ResolveDBPathDetailed returns the resolved DB path along with the source
// of that decision, for status/doctor reporting.
func ResolveDBPathDetailed() (path string, source string, err error) {
	if override := getDBPathOverride(); override != "" {
		resolved, ensureErr := EnsureDBDir(override)
		return resolved, "cli(--db-path)", ensureErr
	}
	if envPath := os.Getenv("NMEM_DB_PATH"); envPath != "" {
		resolved, ensureErr := EnsureDBDir(envPath)
		return resolved, "env(NMEM_DB_PATH)", ensureErr
	}
	cfg, err := LoadSettings()
	if err != nil {
		return "", "", fmt.Errorf("failed to load config: %w", err)
	}
	if cfg.DBPath != "" {
		resolved, ensureErr := EnsureDBDir(cfg.DBPath)
		return resolved, "config(db_path)", ensureErr
	}
	resolved, err := defaultDBPath()
	if err != nil {
		return "", "", fmt.Errorf("failed to determine default db path: %w", err)
	}
	resolved, err = EnsureDBDir(resolved)
	return resolved, "default($HOME/.nmem/nmem.db)", err
}
