package ops

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"tradebook/internal/dedup"
	"tradebook/pkg/exception"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("TRADEBOOK_PG_PASSWORD", "secret123")
	path := writeTempFile(t, `
dedup:
  ttl: 5m
  maxKeys: 100
ledger:
  strict: true
  retention: 2h
dispatch:
  workers: 4
registry:
  aliases:
    - venue: hyperliquid
      alias: "@107"
      name: HYPE
journal:
  dir: /tmp/journal
  segmentMaxBytes: 1048576
  flushInterval: 250ms
postgres:
  host: db
  user: book
  password: ${TRADEBOOK_PG_PASSWORD}
  database: trades
pyroscope:
  serverAddress: http://localhost:4040
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 5*time.Minute, cfg.Dedup.TTL)
	assert.Equal(t, 100, cfg.Dedup.MaxKeys)
	assert.Equal(t, dedup.DefaultSweepInterval, cfg.Dedup.SweepInterval)
	assert.True(t, cfg.Ledger.Strict)
	assert.Equal(t, 2*time.Hour, cfg.Retention)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, defaultQueueCapacity, cfg.QueueCapacity)

	name, ok := cfg.Registry.ResolveAlias("hyperliquid", "@107")
	require.True(t, ok)
	assert.Equal(t, "HYPE", name)

	require.NotNil(t, cfg.Journal)
	assert.Equal(t, "/tmp/journal", cfg.Journal.Dir)
	assert.Equal(t, int64(1048576), cfg.Journal.SegmentMaxBytes)
	assert.Equal(t, 250*time.Millisecond, cfg.Journal.FlushInterval)

	assert.Equal(t, "secret123", cfg.Postgres.Password)
	assert.True(t, cfg.Postgres.Enabled())
	assert.True(t, cfg.Profile.Enabled())
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, dedup.DefaultTTL, cfg.Dedup.TTL)
	assert.Equal(t, dedup.DefaultMaxKeys, cfg.Dedup.MaxKeys)
	assert.Nil(t, cfg.Journal)
	assert.False(t, cfg.Postgres.Enabled())
	assert.False(t, cfg.Profile.Enabled())
	assert.Equal(t, 0, cfg.Registry.AliasCount("hyperliquid"))
}

func TestLoadRejectsInvalid(t *testing.T) {
	_, err := Load(writeTempFile(t, "dispatch:\n  workers: -1\n"))
	assert.ErrorIs(t, err, exception.ErrConfigInvalid)

	_, err = Load(writeTempFile(t, `
registry:
  aliases:
    - venue: hyperliquid
      alias: "@107"
      name: HYPE
    - venue: hyperliquid
      alias: "@107"
      name: PURR
`))
	assert.ErrorIs(t, err, exception.ErrConfigInvalid)

	_, err = Load(writeTempFile(t, "dedup: [1, 2"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
