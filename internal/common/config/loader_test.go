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
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadFromFile_Defaults(t *testing.T) {
	t.Setenv("RABBITMQ_URL", "")
	path := writeConfig(t, `
app:
  name: property-search
messaging:
  rabbitmq:
    url: ${RABBITMQ_URL}
workers:
  search-properties:
    enabled: true
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, StorageMemory, cfg.Storage.Backend)
	assert.Equal(t, SearchEngine, cfg.Search.Backend)
	assert.Equal(t, 1000, cfg.Search.MaxResults)
	assert.Equal(t, []string{"*"}, cfg.Server.AllowedOrigins)
	assert.Empty(t, cfg.Messaging.RabbitMQ.URL)
	assert.Equal(t, "property-indexer", cfg.Messaging.RabbitMQ.Queue)

	w := GetWorkerConfig(cfg, "search-properties")
	assert.True(t, w.Enabled)
	assert.Equal(t, 5, w.MaxJobsActive)
	assert.Equal(t, 30000, w.Timeout)
}

func TestLoadFromFile_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_USER", "search")
	path := writeConfig(t, `
storage:
  backend: postgres
database:
  postgres:
    host: ${DB_HOST}
    database: property_search
`)

	cfg, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, "search", cfg.Database.Postgres.User)
	assert.Contains(t, cfg.Database.Postgres.GetDSN(), "host=db.internal port=5432")
}

func TestLoadFromFile_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown storage",
			body: "storage:\n  backend: mongo\n",
			want: "storage.backend",
		},
		{
			name: "postgres search without postgres storage",
			body: "search:\n  backend: postgres\n",
			want: "requires storage.backend",
		},
		{
			name: "elasticsearch without addresses",
			body: "search:\n  backend: elasticsearch\n",
			want: "database.elasticsearch.addresses",
		},
		{
			name: "cache without redis",
			body: "search:\n  cache_enabled: true\n",
			want: "database.redis.address",
		},
		{
			name: "camunda without broker",
			body: "camunda:\n  enabled: true\n",
			want: "camunda.broker_address",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFromFile(writeConfig(t, tt.body))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFromFile_Missing(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, GetDuration(1500))
}

func TestGetWorkerConfig_Fallback(t *testing.T) {
	cfg := &Config{}
	w := GetWorkerConfig(cfg, "notify-agent")
	assert.False(t, w.Enabled)
	assert.Equal(t, 3, w.MaxRetries)
}
