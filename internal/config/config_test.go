package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFrom_RepositoryConfig(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("API_BASE_URL", "http://api:8080")

	cfg, err := LoadFrom("local", filepath.Join("..", "..", "config"))
	require.NoError(t, err)

	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, 24*time.Hour, cfg.JWT.TTL)
	assert.Equal(t, "http://api:8080", cfg.Dashboard.APIBaseURL)
	assert.Equal(t, 5*time.Minute, cfg.Dashboard.RefreshInterval)
	assert.Equal(t, 5, cfg.Dashboard.AuthProbeAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Dashboard.AuthProbeDelay)
	assert.True(t, cfg.Dashboard.WatchTemplates)
	assert.Equal(t, 50, cfg.DB.SlowQueryMS)
}

func TestLoadFrom_Defaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "base.yaml"), []byte("server:\n  port: \":1\"\n"), 0o600))

	cfg, err := LoadFrom("", dir)
	require.NoError(t, err)
	assert.Equal(t, time.Hour, cfg.RateLimit.Window)
	assert.Equal(t, int64(25<<20), cfg.Uploads.MaxBytes)
	assert.Equal(t, "0 2 * * *", cfg.Invoices.OverdueSweepCron)
	assert.Equal(t, ":8085", cfg.Worker.HealthPort)
}
