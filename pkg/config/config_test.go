package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
environment: test
catalog:
  dsn: ":memory:"
history:
  backend: clickhouse
clickhouse:
  host: localhost
redis:
  enabled: true
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	c, err := Load(writeConfig(t, minimal))
	require.NoError(t, err)

	assert.Equal(t, 8080, c.Server.Port)
	assert.Equal(t, "info", c.Log.Level)
	assert.Equal(t, 50, c.Forecast.Epochs)
	assert.Equal(t, 0.2, c.Forecast.ValidationSplit)
	assert.Equal(t, 24*time.Hour, c.Cache.SessionTTL)
	assert.Equal(t, "pricetrack", c.Redis.Prefix)
	assert.Equal(t, "/metrics", c.Metrics.Path)
	assert.EqualValues(t, 10<<20, c.Forecast.MaxUploadBytes)
	assert.Equal(t, []string{"*"}, c.Server.AllowedOrigins)
}

func TestLoadAllowedOrigins(t *testing.T) {
	c, err := Load(writeConfig(t, minimal+"server:\n  allowed_origins: [https://app.example]\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"https://app.example"}, c.Server.AllowedOrigins)
}

func TestLoadParsesDurations(t *testing.T) {
	c, err := Load(writeConfig(t, minimal+"cache:\n  products_ttl: 90s\n"))
	require.NoError(t, err)
	assert.Equal(t, 90*time.Second, c.Cache.ProductsTTL)
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"unknown backend":    "environment: x\ncatalog: {dsn: a}\nhistory: {backend: mongo}\nredis: {enabled: true}\n",
		"influx needs url":   "environment: x\ncatalog: {dsn: a}\nhistory: {backend: influxdb}\nredis: {enabled: true}\n",
		"redis required":     "environment: x\ncatalog: {dsn: a}\nhistory: {backend: clickhouse}\nclickhouse: {host: h}\n",
		"kafka needs topic":  minimal + "kafka:\n  enabled: true\n  brokers: [b]\n",
		"ai needs base url":  minimal + "ai:\n  enabled: true\n",
		"missing catalog":    "environment: x\nhistory: {backend: clickhouse}\nclickhouse: {host: h}\nredis: {enabled: true}\n",
		"bad validation cut": minimal + "forecast:\n  validation_split: 1.5\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("AI_GATEWAY_API_KEY", "secret")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("HISTORY_BACKEND", "clickhouse")

	c, err := LoadWithEnv(writeConfig(t, minimal))
	require.NoError(t, err)
	assert.Equal(t, "secret", c.AI.APIKey)
	assert.Equal(t, []string{"a:9092", "b:9092"}, c.Kafka.Brokers)
}
