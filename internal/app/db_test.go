package app

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetDBPath_PrecedenceCLIOverEnvOverDefault(t *testing.T) {
	resetSettingsStateForTest()
	t.Cleanup(resetSettingsStateForTest)

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("NMEM_CONFIG", "")
	t.Setenv("NMEM_DB_PATH", "")

	path, err := GetDBPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, ".nmem", "nmem.db"), path)

	t.Setenv("NMEM_DB_PATH", filepath.Join(home, "env.db"))
	path, err = GetDBPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "env.db"), path)

	SetDBPathOverride(filepath.Join(home, "cli.db"))
	t.Cleanup(func() { SetDBPathOverride("") })
	path, err = GetDBPath()
	require.NoError(t, err)
	require.Equal(t, filepath.Join(home, "cli.db"), path)
}
