package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig(t *testing.T) {
	t.Run("File values", func(t *testing.T) {
		dir := writeConfig(t, `
server:
  port: 9090
store:
  driver: backend
backend:
  url: https://example.supabase.co
  anon_key: anon
logger:
  level: debug
  format: json
`)
		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, 9090, cfg.Server.Port)
		assert.Equal(t, "https://example.supabase.co", cfg.Backend.URL)
		assert.Equal(t, "json", cfg.Logger.Format)
		assert.Equal(t, 10.0, cfg.Backend.RateLimit)
	})

	t.Run("Env overrides file", func(t *testing.T) {
		dir := writeConfig(t, `
store:
  driver: sqlite
database:
  dsn: from-file.sqlite
`)
		t.Setenv("DATABASE_DSN", "from-env.sqlite")
		cfg, err := LoadConfig(dir)
		require.NoError(t, err)
		assert.Equal(t, "from-env.sqlite", cfg.Database.DSN)
		assert.Equal(t, "local", cfg.Store.LocalOwner)
	})

	t.Run("Missing file uses defaults", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", StoreSQLite)
		cfg, err := LoadConfig(t.TempDir())
		require.NoError(t, err)
		assert.Equal(t, 8080, cfg.Server.Port)
		assert.Equal(t, "journal.sqlite", cfg.Database.DSN)
		assert.Equal(t, "forex-journal", cfg.Trace.ServiceName)
	})

	t.Run("Backend store needs credentials", func(t *testing.T) {
		dir := writeConfig(t, "store:\n  driver: backend\n")
		_, err := LoadConfig(dir)
		assert.ErrorContains(t, err, "backend.url")
	})
}

func TestValidateUnknownDriver(t *testing.T) {
	err := Config{Store: Store{Driver: "postgres"}}.Validate()
	assert.ErrorContains(t, err, "unknown store driver")
}
