package app

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/BurntSushi/toml"
)

// FilterConfig is the [filter] table (spec §6).
type FilterConfig struct {
	ExtraPatterns    []string `toml:"extra_patterns"`
	EntropyThreshold float64  `toml:"entropy_threshold"`
	EntropyMinLength uint     `toml:"entropy_min_length"`
	DisableEntropy   bool     `toml:"disable_entropy"`
}

// ProjectConfig is one [projects.<name>] table.
type ProjectConfig struct {
	Sensitivity                string `toml:"sensitivity"` // "default" | "strict" | "relaxed"
	ContextLocalLimit          int    `toml:"context_local_limit"`
	ContextCrossLimit          int    `toml:"context_cross_limit"`
	SuppressCrossProject       bool   `toml:"suppress_cross_project"`
	ContextEpisodeWindowHours  int    `toml:"context_episode_window_hours"`
}

// EncryptionConfig is the [encryption] table. The encryption layer itself is
// an out-of-scope external collaborator (spec §1); only its config surface
// lives here so other components can detect whether it's configured.
type EncryptionConfig struct {
	KeyFile string `toml:"key_file"`
}

// RetentionConfig is the [retention] table (spec §6, consumed by S10).
type RetentionConfig struct {
	Enabled      bool           `toml:"enabled"`
	MaxDBSizeMB  *uint          `toml:"max_db_size_mb"`
	Days         map[string]int `toml:"days"`
}

// MetricsConfig is the [metrics] table. The exporter is an out-of-scope
// external collaborator; this config is read but not wired to anything.
type MetricsConfig struct {
	Enabled   bool   `toml:"enabled"`
	Transport string `toml:"transport"` // "http" | "grpc"
	Endpoint  string `toml:"endpoint"`
}

// SummarizationConfig is the [summarization] table, consumed by S7.
type SummarizationConfig struct {
	Enabled          bool    `toml:"enabled"`
	Endpoint         string  `toml:"endpoint"`
	Model            string  `toml:"model"`
	TimeoutSecs      int     `toml:"timeout_secs"`
	FallbackEndpoint *string `toml:"fallback_endpoint"`
}

// Config is the full TOML configuration document (spec §6).
type Config struct {
	DBPath        string                   `toml:"db_path"`
	Filter        FilterConfig             `toml:"filter"`
	Projects      map[string]ProjectConfig `toml:"projects"`
	Encryption    EncryptionConfig         `toml:"encryption"`
	Retention     RetentionConfig          `toml:"retention"`
	Metrics       MetricsConfig            `toml:"metrics"`
	Summarization SummarizationConfig      `toml:"summarization"`
}

// defaultConfig seeds a freshly created config.toml.
const defaultConfigTOML = `# nmem configuration
# See: nmem --help

# Optional: override the SQLite database location.
# Can also be set via NMEM_DB_PATH or --db-path.
# db_path = "~/.nmem/nmem.db"

[retention]
enabled = true

[retention.days]
command = 30
file_read = 14
file_edit = 90
file_write = 90
git_commit = 365
git_push = 365
tool_other = 14
mcp_call = 14

[summarization]
enabled = false
`

// EnsureConfigFile creates the config directory and a default config.toml
// if neither exists yet.
func EnsureConfigFile() error {
	if err := EnsureConfigDir(); err != nil {
		return err
	}
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.WriteFile(path, []byte(defaultConfigTOML), 0600)
	}
	return nil
}

//nolint:gochecknoglobals // sync.Once singleton + RWMutex override mirror the teacher's process-wide config cache
var (
	settingsOnce     sync.Once
	settings         Config
	settingsErr      error
	dbPathOverrideMu sync.RWMutex
	dbPathOverride   string
)

// SetDBPathOverride sets a process-wide database path override, used by the
// CLI's --db-path flag.
func SetDBPathOverride(path string) {
	dbPathOverrideMu.Lock()
	dbPathOverride = path
	dbPathOverrideMu.Unlock()
}

func getDBPathOverride() string {
	dbPathOverrideMu.RLock()
	defer dbPathOverrideMu.RUnlock()
	return dbPathOverride
}

// resetSettingsStateForTest clears the lazy-load singleton. Test-only.
func resetSettingsStateForTest() {
	settingsOnce = sync.Once{}
	settings = Config{}
	settingsErr = nil
	dbPathOverrideMu.Lock()
	dbPathOverride = ""
	dbPathOverrideMu.Unlock()
}

// LoadSettings loads and caches the TOML config file. Missing file is not an
// error — callers see a zero-value Config with documented defaults applied
// by each consumer (FilterConfig, RetentionConfig, etc).
func LoadSettings() (Config, error) {
	settingsOnce.Do(func() {
		path, err := ConfigPath()
		if err != nil {
			settingsErr = err
			return
		}
		cfg, err := loadSettingsFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				settings = Config{}
				return
			}
			settingsErr = err
			return
		}
		settings = cfg
	})
	return settings, settingsErr
}

func loadSettingsFile(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	var cfg Config
	if _, err := toml.Decode(string(b), &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// ProjectConfigFor resolves the [projects.<name>] table for a project,
// returning zero-value defaults when unconfigured.
func ProjectConfigFor(name string) ProjectConfig {
	cfg, err := LoadSettings()
	if err != nil || cfg.Projects == nil {
		return ProjectConfig{}
	}
	return cfg.Projects[name]
}
