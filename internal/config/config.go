package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	// Common
	Env      string
	LogLevel string
	// API
	Port string
	// Storage
	Storage          string
	DatabaseURL      string
	SQLitePath       string
	TxIsolation      string
	AcquireTimeout   time.Duration
	StatementTimeout time.Duration
	// FaultInject names a workflow step to fail at, e.g. "user_created".
	// Empty disables fault injection.
	FaultInject string
	// Redis (idempotency)
	IdempotencyBackend string
	RedisAddr          string
	RedisPassword      string
	RedisDB            int
	RedisTTL           time.Duration
	// Orphan auditor
	AuditPoll       time.Duration
	AuditBatchLimit int
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func msDef(key string, defMS int) time.Duration {
	return time.Duration(atoiDef(getEnv(key, strconv.Itoa(defMS)), defMS)) * time.Millisecond
}

// Load reads environment variables and applies defaults.
func Load() Config {
	return Config{
		Env:                getEnv("ENV", "local"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		Port:               getEnv("PORT", "8080"),
		Storage:            getEnv("STORAGE", "pg"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		SQLitePath:         getEnv("SQLITE_PATH", "userprofile.db"),
		TxIsolation:        getEnv("TX_ISOLATION", "read committed"),
		AcquireTimeout:     msDef("DB_ACQUIRE_TIMEOUT_MS", 5000),
		StatementTimeout:   msDef("DB_STATEMENT_TIMEOUT_MS", 3000),
		FaultInject:        getEnv("FAULT_INJECT", ""),
		IdempotencyBackend: getEnv("IDEMPOTENCY_BACKEND", "redis"),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisDB:            atoiDef(getEnv("REDIS_DB", "0"), 0),
		RedisTTL:           msDef("IDEMPOTENCY_TTL_MS", 86400000),
		AuditPoll:          msDef("AUDIT_POLL_MS", 30000),
		AuditBatchLimit:    atoiDef(getEnv("AUDIT_BATCH_LIMIT", "100"), 100),
	}
}
