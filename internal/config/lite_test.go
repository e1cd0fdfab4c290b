package config

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLiteConfig(t *testing.T) {
	cfg := DefaultLiteConfig()

	require.NotNil(t, cfg)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
}

func TestLoadLiteConfig_EnvOverrides(t *testing.T) {
	t.Setenv("ONCOSAFERX_DATA_DIR", "/tmp/pgx-test")
	t.Setenv("ONCOSAFERX_CACHE_MAX_ITEMS", "50")
	t.Setenv("ONCOSAFERX_CACHE_TTL", "1h")
	t.Setenv("ONCOSAFERX_LOG_LEVEL", "debug")
	t.Setenv("ONCOSAFERX_LOG_FORMAT", "text")

	cfg := LoadLiteConfig()

	assert.Equal(t, "/tmp/pgx-test", cfg.DataDir)
	assert.Equal(t, 50, cfg.CacheMaxItems)
	assert.Equal(t, time.Hour, cfg.CacheTTL)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestLoadLiteConfig_InvalidEnvIgnored(t *testing.T) {
	t.Setenv("ONCOSAFERX_CACHE_MAX_ITEMS", "not-a-number")
	t.Setenv("ONCOSAFERX_CACHE_TTL", "soon")

	cfg := LoadLiteConfig()

	// Invalid values fall back to defaults rather than failing startup.
	assert.Equal(t, 1000, cfg.CacheMaxItems)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
}

func TestLiteConfigPaths(t *testing.T) {
	cfg := &LiteConfig{DataDir: "/var/lib/pgx"}

	assert.Equal(t, filepath.Join("/var/lib/pgx", "reviews.db"), cfg.ReviewDBPath())
	assert.Equal(t, filepath.Join("/var/lib/pgx", "exports"), cfg.ExportDir())
}

func TestEnsureDataDir(t *testing.T) {
	cfg := &LiteConfig{DataDir: filepath.Join(t.TempDir(), "nested", "data")}

	require.NoError(t, cfg.EnsureDataDir())

	assert.DirExists(t, cfg.DataDir)
	assert.DirExists(t, cfg.ExportDir())
}
