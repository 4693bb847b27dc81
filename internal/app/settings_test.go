package app

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadSettings_ParsesTOML(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NMEM_CONFIG", "")

	cfgDir := filepath.Join(home, ".nmem")
	require.NoError(t, os.MkdirAll(cfgDir, 0700))
	cfgPath := filepath.Join(cfgDir, "config.toml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
db_path = "/tmp/from-config.db"

[filter]
entropy_threshold = 3.5
disable_entropy = false

[projects.myproj]
sensitivity = "strict"
context_local_limit = 20

[retention]
enabled = true

[retention.days]
command = 30
`), 0600))

	cfg, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, "/tmp/from-config.db", cfg.DBPath)
	require.Equal(t, 3.5, cfg.Filter.EntropyThreshold)
	require.True(t, cfg.Retention.Enabled)
	require.Equal(t, 30, cfg.Retention.Days["command"])
	require.Equal(t, "strict", cfg.Projects["myproj"].Sensitivity)
}

func TestLoadSettings_MissingFileIsNotError(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NMEM_CONFIG", "")

	cfg, err := LoadSettings()
	require.NoError(t, err)
	require.Equal(t, Config{}, cfg)
}

func TestProjectConfigFor_UnconfiguredReturnsZeroValue(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NMEM_CONFIG", "")

	pc := ProjectConfigFor("nonexistent")
	require.Equal(t, ProjectConfig{}, pc)
}
