package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yml"), []byte(body), 0o600))
	return dir
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := writeConfig(t, "backend:\n  base_url: http://bots.local/api\n")

	cfg, err := LoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, "http://bots.local/api", cfg.Backend.BaseURL)
	assert.Equal(t, 3, cfg.Backend.MaxRetries)
	assert.Equal(t, time.Minute, cfg.Polling.Trades)
	assert.Equal(t, 4200*time.Millisecond, cfg.Notification.DisplayDuration)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.ElementsMatch(t, []string{"symbols", "strategies", "candleSizes", "exchanges"}, cfg.Backend.Resources)
}

func TestLoadConfig_FileValues(t *testing.T) {
	dir := writeConfig(t, `
backend:
  base_url: http://bots.local/api
  rate_limit: 2
polling:
  trades: 10s
  prices: 0s
notification:
  display_duration: 1s
logger:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, 2.0, cfg.Backend.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Polling.Trades)
	assert.Equal(t, time.Duration(0), cfg.Polling.Prices)
	assert.Equal(t, time.Second, cfg.Notification.DisplayDuration)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, "json", cfg.Logger.Format)
}

func TestLoadConfig_EnvOverride(t *testing.T) {
	dir := writeConfig(t, "server:\n  port: 9000\n")
	t.Setenv("SERVER_PORT", "9100")

	cfg, err := LoadConfig(dir)

	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := LoadConfig(t.TempDir())
	assert.Error(t, err)
}
