package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"STORAGE", "TX_ISOLATION", "DB_ACQUIRE_TIMEOUT_MS", "FAULT_INJECT", "AUDIT_BATCH_LIMIT"} {
		t.Setenv(k, "")
	}
	cfg := Load()
	require.Equal(t, "pg", cfg.Storage)
	require.Equal(t, "read committed", cfg.TxIsolation)
	require.Equal(t, 5*time.Second, cfg.AcquireTimeout)
	require.Empty(t, cfg.FaultInject)
	require.Equal(t, 100, cfg.AuditBatchLimit)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE", "sqlite")
	t.Setenv("DB_STATEMENT_TIMEOUT_MS", "250")
	t.Setenv("FAULT_INJECT", "user_created")
	t.Setenv("REDIS_DB", "not-a-number")

	cfg := Load()
	require.Equal(t, "sqlite", cfg.Storage)
	require.Equal(t, 250*time.Millisecond, cfg.StatementTimeout)
	require.Equal(t, "user_created", cfg.FaultInject)
	require.Equal(t, 0, cfg.RedisDB)
}
