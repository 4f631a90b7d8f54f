package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mvukovic/liftlog/internal/config"
)

const testConfigToml = `
[development]
host = "localhost"
port = 9000
log_level = "trace"
log_to_stdout = true
postgres_host = "localhost"
postgres_port = "5432"
postgres_db_name = "liftlog_dev"
analytics_cache_ttl_seconds = 300

[production]
host = ""
port = 9000
log_level = "debug"
logs_path = "/var/log/liftlog/service.log"
postgres_host = "liftlog-db"
postgres_port = "5432"
postgres_db_name = "liftlog"
sentry_enabled = true
`

func writeTestConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfigToml), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := config.Load("development", path)
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 9000, cfg.Port)
	assert.Equal(t, "trace", cfg.LogLevel)
	assert.Equal(t, "liftlog_dev", cfg.PostgresDBName)
	assert.Equal(t, 300, cfg.AnalyticsCacheTTLSeconds)
	assert.False(t, cfg.SentryEnabled)

	prodCfg, err := config.Load("prod", path)
	require.NoError(t, err)
	assert.Equal(t, "liftlog", prodCfg.PostgresDBName)
	assert.True(t, prodCfg.SentryEnabled)
}

func TestLoad_UnknownEnv(t *testing.T) {
	path := writeTestConfig(t)

	cfg, err := config.Load("staging", path)
	require.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_MissingFile(t *testing.T) {
	cfg, err := config.Load("development", "/nonexistent/config.toml")
	require.Error(t, err)
	assert.Nil(t, cfg)
}
