package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data/wallet.db", cfg.Database.Path)
	assert.Equal(t, "local", cfg.Lock.Backend)
	assert.Equal(t, 10*time.Second, cfg.Lock.Expiry)
	assert.Equal(t, "KES", cfg.Currency)
	assert.Equal(t, 3, cfg.Retry.Attempts)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("WALLET_DATABASE_PATH", "/tmp/other.db")
	t.Setenv("WALLET_CURRENCY", "JPY")
	t.Setenv("WALLET_LOCK_EXPIRY", "3s")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "/tmp/other.db", cfg.Database.Path)
	assert.Equal(t, "JPY", cfg.Currency)
	assert.Equal(t, 3*time.Second, cfg.Lock.Expiry)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
database:
  path: ledger.db
http:
  addr: ":9090"
lock:
  backend: redis
  redis_addr: localhost:6379
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "ledger.db", cfg.Database.Path)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "redis", cfg.Lock.Backend)
	assert.Equal(t, "localhost:6379", cfg.Lock.RedisAddr)
}

func TestLoadValidation(t *testing.T) {
	t.Run("discord without channel", func(t *testing.T) {
		t.Setenv("WALLET_DISCORD_TOKEN", "token")
		_, err := Load("")
		assert.ErrorContains(t, err, "channel")
	})
	t.Run("redis without address", func(t *testing.T) {
		t.Setenv("WALLET_LOCK_BACKEND", "redis")
		_, err := Load("")
		assert.ErrorContains(t, err, "redis_addr")
	})
	t.Run("unknown lock backend", func(t *testing.T) {
		t.Setenv("WALLET_LOCK_BACKEND", "etcd")
		_, err := Load("")
		assert.ErrorContains(t, err, "unknown lock backend")
	})
}
