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
	assert.Equal(t, "jsonl", cfg.Source.Type)
	assert.Equal(t, 1000, cfg.Build.RecordBatchSize)
	assert.Equal(t, int64(64*1024*1024), cfg.Build.MemoryBudget)
	assert.Equal(t, 1, cfg.Build.Workers)
	assert.Equal(t, 8080, cfg.Search.Port)
	assert.Equal(t, 10, cfg.Search.DefaultLimit)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Metrics.Enabled)
}

func TestLoadYAMLFile(t *testing.T) {
	content := `
source:
  type: postgres
build:
  dataDir: /var/lib/vsearch
  recordBatchSize: 250
  workers: 4
search:
  port: 9999
  cacheEnabled: true
redis:
  cacheTTL: 2m
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Source.Type)
	assert.Equal(t, "/var/lib/vsearch", cfg.Build.DataDir)
	assert.Equal(t, 250, cfg.Build.RecordBatchSize)
	assert.Equal(t, 4, cfg.Build.Workers)
	assert.Equal(t, 9999, cfg.Search.Port)
	assert.True(t, cfg.Search.CacheEnabled)
	assert.Equal(t, 2*time.Minute, cfg.Redis.CacheTTL)
	// Unset fields keep their defaults.
	assert.Equal(t, 100, cfg.Search.MaxLimit)
	assert.Equal(t, "localhost:9092", cfg.Kafka.Brokers[0])
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("VS_SOURCE_TYPE", "kafka")
	t.Setenv("VS_BUILD_DATA_DIR", "/tmp/idx")
	t.Setenv("VS_BUILD_BATCH_SIZE", "77")
	t.Setenv("VS_KAFKA_BROKERS", "b1:9092,b2:9092")
	t.Setenv("VS_LOGGING_LEVEL", "debug")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "kafka", cfg.Source.Type)
	assert.Equal(t, "/tmp/idx", cfg.Build.DataDir)
	assert.Equal(t, 77, cfg.Build.RecordBatchSize)
	assert.Equal(t, []string{"b1:9092", "b2:9092"}, cfg.Kafka.Brokers)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host: "db.internal", Port: 5433, User: "svc", Password: "pw",
		Database: "records", SSLMode: "require",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=svc password=pw dbname=records sslmode=require",
		p.DSN())
}
