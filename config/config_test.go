package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadLayersFilesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte(`
jwt:
  secret: test
ui:
  mount_path: "app/"
  index_days: 5
  hold_delay: 300ms
ratelimit:
  tick:
    - limit: 2
      window: 1s
`), 0o644))

	cfg, err := Load("local", dir)
	require.NoError(t, err)

	assert.Equal(t, "/app", cfg.UI.MountPath)
	assert.Equal(t, "/app", cfg.RootPath())
	assert.Equal(t, 5, cfg.UI.IndexDays)
	assert.Equal(t, 300*time.Millisecond, cfg.UI.HoldDelay)
	assert.True(t, cfg.UI.EnableHabitNotes, "defaults survive when not overridden")
	assert.Equal(t, "#fb4934", cfg.UI.ColorLastWeekIncomplete)
	require.Len(t, cfg.RateLimit.Tick, 1)
	assert.Equal(t, 2, cfg.RateLimit.Tick[0].Limit)
	assert.Equal(t, time.Second, cfg.RateLimit.Tick[0].Window)
}

func TestLoadRequiresSecret(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("debug: true\n"), 0o644))
	_, err := Load("local", dir)
	require.Error(t, err)
}

func TestLoadEnvOverride(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("jwt:\n  secret: a\n"), 0o644))
	t.Setenv("SERVER_PORT", ":9999")
	t.Setenv("JWT_SECRET", "b")

	cfg, err := Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.Port)
	assert.Equal(t, "b", cfg.JWT.Secret)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenTTL())
}

func TestRootPathWhenMountedAtRoot(t *testing.T) {
	cfg := Default()
	cfg.JWT.Secret = "x"
	cfg.UI.MountPath = "/"
	require.NoError(t, cfg.normalize())
	assert.Equal(t, "", cfg.UI.MountPath)
	assert.Equal(t, "/", cfg.RootPath())
}

func TestLoadStorage(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("jwt:\n  secret: a\n"), 0o644))
	cfg, err := Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, StoragePostgres, cfg.Storage)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "local.yaml"), []byte("storage: disk\n"), 0o644))
	_, err = Load("local", dir)
	require.Error(t, err)

	t.Setenv("STORAGE", "memory")
	cfg, err = Load("local", dir)
	require.NoError(t, err)
	assert.Equal(t, StorageMemory, cfg.Storage)
}
