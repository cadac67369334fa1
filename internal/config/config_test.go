package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoundTrip(t *testing.T) {
	cfg := Default("Test Books")
	cfg.Database.Path = "/var/lib/ledger/books.db"
	cfg.Server.Addr = "127.0.0.1:9000"

	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, cfg.Ledger, got.Ledger)
	assert.Equal(t, cfg.Database, got.Database)
	assert.Equal(t, cfg.Server, got.Server)
	assert.Equal(t, cfg.Log, got.Log)
	assert.Equal(t, cfg.Pagination, got.Pagination)
}

func TestDefaults(t *testing.T) {
	cfg := Default("My Company")

	assert.Equal(t, "My Company", cfg.Ledger.Name)
	assert.Equal(t, "ledger.db", cfg.Database.Path)
	assert.Equal(t, 5000, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 20, cfg.Pagination.DefaultPageSize)
	assert.Equal(t, 100, cfg.Pagination.MaxPageSize)
	require.NoError(t, cfg.Validate())
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database:\n  path: books.db\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "books.db", cfg.Database.Path)
	assert.Equal(t, 5000, cfg.Database.BusyTimeoutMS)
	assert.Equal(t, 20, cfg.Pagination.DefaultPageSize)
}

func TestLoadNotFound(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestYAMLFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.yaml")
	require.NoError(t, Save(path, Default("Test Books")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	contents := string(data)

	assert.Contains(t, contents, "name: Test Books")
	assert.Contains(t, contents, "path: ledger.db")
	assert.Contains(t, contents, "default_page_size: 20")
}

func TestResolveMissingFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	cfg, err := Resolve(filepath.Join(dir, "ledger.yaml"), "")
	require.NoError(t, err)
	assert.Equal(t, "ledger.db", cfg.Database.Path)
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("LEDGER_DB_PATH", "/tmp/env.db")
	t.Setenv("LEDGER_ADDR", ":7070")
	t.Setenv("LEDGER_LOG_LEVEL", "debug")
	t.Setenv("LEDGER_BUSY_TIMEOUT_MS", "250")
	chdir(t, t.TempDir())

	cfg := Default("")
	require.NoError(t, cfg.ApplyEnv(""))

	assert.Equal(t, "/tmp/env.db", cfg.Database.Path)
	assert.Equal(t, ":7070", cfg.Server.Addr)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 250, cfg.Database.BusyTimeoutMS)
}

func TestApplyEnvFile(t *testing.T) {
	t.Setenv("LEDGER_LOG_FORMAT", "")
	require.NoError(t, os.Unsetenv("LEDGER_LOG_FORMAT"))
	envPath := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(envPath, []byte("LEDGER_LOG_FORMAT=json\n"), 0o644))

	cfg := Default("")
	require.NoError(t, cfg.ApplyEnv(envPath))
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestApplyEnvBadTimeout(t *testing.T) {
	t.Setenv("LEDGER_BUSY_TIMEOUT_MS", "soon")
	chdir(t, t.TempDir())

	cfg := Default("")
	require.Error(t, cfg.ApplyEnv(""))
}

func TestValidate(t *testing.T) {
	cfg := Default("")
	cfg.Database.Path = ""
	cfg.Pagination.MaxPageSize = 5
	cfg.Log.Format = "xml"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database.path")
	assert.Contains(t, err.Error(), "max_page_size")
	assert.Contains(t, err.Error(), "log.format")
}

// chdir changes the working directory for the duration of the test
// (equivalent to testing.T.Chdir, which requires Go 1.24).
func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
