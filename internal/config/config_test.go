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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTP.Port)
	assert.Equal(t, "mongo", cfg.Storage.Driver)
	assert.Equal(t, 5*time.Minute, cfg.Redis.ProductCacheTTL)
	assert.Equal(t, 30*time.Minute, cfg.Auth.ResetTokenTTL)
	assert.Equal(t, 4, cfg.Notify.Workers)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.False(t, cfg.Auth.ExposeResetToken)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("JWT_TTL", "1h")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.HTTP.Port)
	assert.Equal(t, "memory", cfg.Storage.Driver)
	assert.Equal(t, time.Hour, cfg.Auth.TokenTTL)
}

func TestLoad_YAMLFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
http:
  port: "7000"
mongo:
  database: shop_test
notify:
  workers: 2
  queue_size: 8
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "7000", cfg.HTTP.Port)
	assert.Equal(t, "shop_test", cfg.Mongo.Database)
	assert.Equal(t, 2, cfg.Notify.Workers)
	assert.Equal(t, 8, cfg.Notify.QueueSize)
	assert.Equal(t, 10*time.Second, cfg.HTTP.ShutdownTimeout)
}
