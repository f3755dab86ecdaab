package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docufind/internal/platform/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	for _, key := range []string{"DATABASE_URL", "REDIS_URL", "KAFKA_BROKERS", "S3_BUCKET", "SMTP_HOST", "MOMO_BASE_URL", "DOCUMENT_TYPES_FILE"} {
		t.Setenv(key, "")
	}
	return config.FromEnv()
}

func TestBindOverrides(t *testing.T) {
	cfg := testConfig(t)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	bindOverrides(fs, &cfg)

	require.NoError(t, fs.Parse([]string{"--database-url", "postgres://x", "--kafka-brokers", "k1:9092,k2:9092"}))
	assert.Equal(t, "postgres://x", cfg.Postgres.DSN)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
}

func TestMigrateRequiresDatabase(t *testing.T) {
	cfg := testConfig(t)
	cmd := migrateCmd(&cfg)
	cmd.SetContext(context.Background())
	assert.Error(t, cmd.RunE(cmd, nil))
}

func TestStatsAgainstInMemoryBackends(t *testing.T) {
	cfg := testConfig(t)
	cmd := statsCmd(&cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, cmd.RunE(cmd, nil))
	var st map[string]int
	require.NoError(t, json.Unmarshal(out.Bytes(), &st))
	assert.Equal(t, 0, st["total_lost"])
}

func TestSweepPrintsReport(t *testing.T) {
	cfg := testConfig(t)
	cmd := sweepCmd(&cfg)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetContext(context.Background())

	require.NoError(t, cmd.RunE(cmd, nil))
	assert.Contains(t, out.String(), `"tokens_purged": 0`)
}
