package constants

import "time"

// Database Constants
const (
	// PostgreSQL defaults
	DefaultPostgresPort    = 5432
	DefaultPostgresSSLMode = "disable"

	// Connection pool sizing
	DefaultPoolMinConns = 2
	DefaultPoolMaxConns = 10

	// SQLite allows only one writer
	DefaultSQLiteMaxConnections = 1
	DefaultSQLiteMaxIdleConns   = 1

	// SQLite busy timeout in milliseconds
	SQLiteBusyTimeoutMS = 5000

	// Version ledger table, one per tracked backend
	LedgerTable = "schema_migrations"

	// Embedding width expected by the pgvector columns
	DefaultVectorDim = 768
)

// Time and Duration Constants
const (
	DefaultPoolIdleTimeout    = 1 * time.Minute
	DefaultPoolConnectTimeout = 10 * time.Second
	DefaultSQLiteLifetime     = 10 * time.Minute
	DefaultSQLiteIdleTime     = 5 * time.Minute

	// Pool health classification thresholds
	HealthLatencyLow  = 100 * time.Millisecond
	HealthLatencyHigh = 1 * time.Second

	// Pool utilization above this fraction degrades health
	HealthUtilizationHigh = 0.9

	// Quiet period before a broken pool is recreated
	DefaultRecoveryDelay = 5 * time.Second
)

// Retry Constants
const (
	DefaultMaxRetries   = 3
	DefaultRetryBase    = 100 * time.Millisecond
	DefaultRetryCap     = 5 * time.Second
	DefaultRetryBackoff = 2.0
)
