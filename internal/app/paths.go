// Package app resolves nmem's configuration file, database path, and
// filesystem permissions the way internal/app did for the teacher CLI,
// adapted to the TOML config and env vars spec §6 names.
package app

import (
	"os"
	"path/filepath"
)

// ConfigDir returns $HOME/.nmem.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".nmem"), nil
}

// ConfigPath resolves the TOML config file location: $NMEM_CONFIG if set,
// else $HOME/.nmem/config.toml.
func ConfigPath() (string, error) {
	if p := os.Getenv("NMEM_CONFIG"); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir creates the config directory with owner-only
// permissions if missing (spec §6: "Directory mode 0700").
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// EnsureDBDir creates the parent directory of dbPath with owner-only
// permissions if missing, and returns dbPath unchanged.
func EnsureDBDir(dbPath string) (string, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return "", err
	}
	return dbPath, nil
}

// defaultDBPath returns $HOME/.nmem/nmem.db.
func defaultDBPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "nmem.db"), nil
}
