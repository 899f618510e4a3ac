package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `env: "dev"

telegram:
  token: "123:abc"
  admin_ids: [42, 7]

monitor:
  check_interval: 15m
  default_threshold: 1000

fetcher:
  cookie: "session=test"
  timeout: 10s

postgres:
  host: "localhost"
  port: 5433
  user: "bot"
  password: "secret"
  dbname: "pricebot"

redis:
  addr: "localhost:6379"
  db: 2

http_server:
  address: "0.0.0.0:8081"
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestMustLoad(t *testing.T) {
	cfg := MustLoad(writeConfig(t, testConfig))

	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, "123:abc", cfg.Telegram.Token)
	assert.Equal(t, []int64{42, 7}, cfg.Telegram.AdminIDs)

	assert.Equal(t, 15*time.Minute, cfg.Monitor.CheckInterval)
	assert.Equal(t, 1000, cfg.Monitor.DefaultThreshold)

	assert.Equal(t, "session=test", cfg.Fetcher.Cookie)
	assert.Equal(t, 10*time.Second, cfg.Fetcher.Timeout)

	assert.Equal(t, "localhost", cfg.Postgres.Host)
	assert.Equal(t, 5433, cfg.Postgres.Port)

	assert.Equal(t, 2, cfg.Redis.Db)
	assert.Equal(t, "0.0.0.0:8081", cfg.HTTPServer.Address)
}

func TestMustLoad_Defaults(t *testing.T) {
	minimal := `telegram:
  token: "123:abc"
  admin_ids: [42]

fetcher:
  cookie: "session=test"

postgres:
  user: "bot"
  password: "secret"
  dbname: "pricebot"
`

	cfg := MustLoad(writeConfig(t, minimal))

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 30*time.Minute, cfg.Monitor.CheckInterval)
	assert.Equal(t, 500, cfg.Monitor.DefaultThreshold)
	assert.Equal(t, "disable", cfg.Postgres.SSLMode)
	assert.Equal(t, time.Minute, cfg.Redis.DefaultTTL)
	assert.Equal(t, "localhost:8080", cfg.HTTPServer.Address)
}

func TestIsAdmin(t *testing.T) {
	cfg := MustLoad(writeConfig(t, testConfig))

	assert.True(t, cfg.IsAdmin(42))
	assert.True(t, cfg.IsAdmin(7))
	assert.False(t, cfg.IsAdmin(1))
}
