package config

import "time"

const (
	DefaultHTTPPort         = "8080"
	DefaultShutdownTimeout  = 10 * time.Second
	DefaultAuditPoll        = 30 * time.Second
	DefaultAuditBatch       = 100
	DefaultPGMaxConns       = 5
	DefaultPGMinConns       = 1
	DefaultAcquireTimeout   = 5 * time.Second
	DefaultStatementTimeout = 3 * time.Second
	DefaultSQLiteMaxConns   = 4
)
