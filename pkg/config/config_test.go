package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "none", cfg.Narrator)
	assert.True(t, cfg.FallbackToCSV)
	assert.False(t, cfg.UseRealtimeData)
	assert.Equal(t, 30*time.Minute, cfg.CacheTTL())
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Origins())
	assert.Empty(t, cfg.DSN())
}

func TestLoad_FileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
port: "9000"
narrator: ollama
refresh_interval: 10m
rapidapi_pages: 3
allowed_origins: "https://a.example, https://b.example"
`), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "9100")
	t.Setenv("NARRATION_TIMEOUT", "5")
	t.Setenv("SHORTLIST_TTL_HOURS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "9100", cfg.Port, "env wins over file")
	assert.Equal(t, "ollama", cfg.Narrator)
	assert.Equal(t, 10*time.Minute, cfg.RefreshInterval)
	assert.Equal(t, 3, cfg.RapidAPIPages)
	assert.Equal(t, 5*time.Second, cfg.NarrationTimeout)
	assert.Equal(t, 2*time.Hour, cfg.ShortlistTTL())
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Origins())
}

func TestLoad_Invalid(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("NARRATOR", "gpt")
	_, err := Load()
	assert.Error(t, err)

	t.Setenv("NARRATOR", "")
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	_, err = Load()
	assert.Error(t, err)
}

func TestDSN_MasksPassword(t *testing.T) {
	cfg := Defaults()
	cfg.DatabaseURL = "postgres://app:secret@db:5432/props?sslmode=disable"
	assert.NotContains(t, cfg.DSN(), "secret")
	assert.Contains(t, cfg.DSN(), "db:5432")
}

func TestEnvOrDefaultDuration(t *testing.T) {
	t.Setenv("X_DUR", "1h30m")
	assert.Equal(t, 90*time.Minute, envOrDefaultDuration("X_DUR", 0))
	t.Setenv("X_DUR", "bogus")
	assert.Equal(t, time.Second, envOrDefaultDuration("X_DUR", time.Second))
}
