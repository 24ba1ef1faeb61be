package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 8080, cfg.HTTP.Port)
	assert.Equal(t, 12*time.Hour, cfg.Security.SessionTTL)
	assert.Equal(t, 1, cfg.Verification.ValidityYears)
	assert.Equal(t, "transit:activity", cfg.Activity.Stream)
	assert.False(t, cfg.RedisEnabled())
	assert.Equal(t, "@every 5m", cfg.Jobs.AttentionSnapshot)
	assert.Equal(t, ":9102", cfg.Worker.MetricsAddr)
}

func TestLoadWorkerOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRANSIT_WORKER_METRICSADDR", "127.0.0.1:9200")
	t.Setenv("TRANSIT_JOBS_ATTENTIONSNAPSHOT", "@every 1m")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9200", cfg.Worker.MetricsAddr)
	assert.Equal(t, "@every 1m", cfg.Jobs.AttentionSnapshot)
}

func TestLoadFromEnv(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("TRANSIT_STORE_DRIVER", "redis")

	_, err := Load()
	assert.Error(t, err, "redis driver without an address")
}

func TestValidateProductionSecrets(t *testing.T) {
	cfg := AppConfig{Environment: "production", Store: StoreConfig{Driver: "memory"}}
	assert.Error(t, cfg.validate())

	cfg.Security = SecurityConfig{JWTSecret: "s", KeyPepper: "p"}
	assert.NoError(t, cfg.validate())

	cfg.Store.Driver = "sqlite"
	assert.Error(t, cfg.validate())
}

func TestValidateSignatureNeedsRedis(t *testing.T) {
	cfg := AppConfig{Store: StoreConfig{Driver: "memory"}, Security: SecurityConfig{RequireSignature: true, SignatureSecret: "sig"}}
	assert.Error(t, cfg.validate())

	cfg.Redis.Addr = "localhost:6379"
	assert.NoError(t, cfg.validate())
}
