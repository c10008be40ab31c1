package pool

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/loykin/graphmigrate/internal/backend/postgres"
	"github.com/loykin/graphmigrate/internal/common"
	"github.com/loykin/graphmigrate/internal/constants"
	"github.com/loykin/graphmigrate/internal/retry"
)

var (
	// ErrPoolNotFound is returned when the named pool was never created.
	ErrPoolNotFound = errors.New("pool not found")
	// ErrPoolExists is returned when a pool name is created twice.
	ErrPoolExists = errors.New("pool already exists")
)

type poolEntry struct {
	pool   *pgxpool.Pool
	cfg    postgres.Config
	health Health
}

// Manager owns a set of named connection pools to the network backend,
// performs on-demand health checks, and recovers pools after connection
// failures with a per-name debounce so concurrent error callbacks do not
// spawn overlapping recreation attempts.
type Manager struct {
	mu            sync.Mutex
	pools         map[string]*poolEntry
	pending       map[string]*time.Timer
	recoveryDelay time.Duration
	retryCfg      *retry.Config
	logger        *common.Logger

	// connect is swapped in tests to avoid a live server.
	connect func(ctx context.Context, cfg postgres.Config) (*pgxpool.Pool, error)
}

// NewManager creates a pool manager with default recovery and retry settings.
func NewManager() *Manager {
	return &Manager{
		pools:         make(map[string]*poolEntry),
		pending:       make(map[string]*time.Timer),
		recoveryDelay: constants.DefaultRecoveryDelay,
		retryCfg:      retry.DefaultConfig(),
		logger:        common.GetLogger().WithComponent("pool"),
		connect:       connectAndProbe,
	}
}

// connectAndProbe builds a pool from configuration and verifies both base
// connectivity and the vector extension before handing it out.
func connectAndProbe(ctx context.Context, cfg postgres.Config) (*pgxpool.Pool, error) {
	pc, err := cfg.PoolConfig()
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("connectivity probe failed: %w", err)
	}
	var installed int
	err = pool.QueryRow(ctx, `SELECT COUNT(*) FROM pg_extension WHERE extname = 'vector'`).Scan(&installed)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("vector extension probe failed: %w", err)
	}
	if installed == 0 {
		pool.Close()
		return nil, fmt.Errorf("vector extension is not installed on %s/%s", cfg.Host, cfg.DBName)
	}
	return pool, nil
}

// CreatePool connects a new named pool. Creation fails fatally when the
// connectivity or feature probe fails; no pool is registered in that case.
func (m *Manager) CreatePool(ctx context.Context, name string, cfg postgres.Config) (*pgxpool.Pool, error) {
	m.mu.Lock()
	if _, ok := m.pools[name]; ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrPoolExists, name)
	}
	m.mu.Unlock()

	pool, err := m.connect(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create pool %s: %w", name, err)
	}

	m.mu.Lock()
	m.pools[name] = &poolEntry{pool: pool, cfg: cfg}
	m.mu.Unlock()

	m.logger.WithPool(name).Info("pool created", "host", cfg.Host, "dbname", cfg.DBName)
	return pool, nil
}

// Pool returns the named pool.
func (m *Manager) Pool(name string) (*pgxpool.Pool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pools[name]
	if !ok || entry.pool == nil {
		return nil, fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	return entry.pool, nil
}

// Acquire borrows one connection from the named pool. Connection-classified
// failures schedule a debounced pool recovery.
func (m *Manager) Acquire(ctx context.Context, name string) (*pgxpool.Conn, error) {
	pool, err := m.Pool(name)
	if err != nil {
		return nil, err
	}
	conn, err := pool.Acquire(ctx)
	if err != nil {
		m.HandlePoolError(name, err)
		return nil, err
	}
	return conn, nil
}

// AcquireWithRetry borrows a connection, retrying connection-classified
// failures with bounded exponential backoff. Non-connection errors are not
// retried; exhausting retries surfaces the last error.
func (m *Manager) AcquireWithRetry(ctx context.Context, name string, maxRetries int) (*pgxpool.Conn, error) {
	logger := m.logger.WithPool(name)

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		conn, err := m.Acquire(ctx, name)
		if err == nil {
			return conn, nil
		}
		lastErr = err

		if !retry.IsConnectionError(err) {
			return nil, err
		}
		if attempt == maxRetries {
			break
		}

		delay := m.retryCfg.Delay(attempt)
		logger.Warn("connection acquisition failed, retrying",
			"error", err, "attempt", attempt, "max_attempts", maxRetries, "retry_delay", delay)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("acquisition cancelled during retry: %w", ctx.Err())
		case <-time.After(delay):
		}
	}
	return nil, fmt.Errorf("failed to acquire connection from pool %s after %d attempts: %w", name, maxRetries, lastErr)
}

// CheckHealth probes the named pool and classifies its condition. Health
// checks never fail: probe errors are reported as an unhealthy status with
// the failure text. The result is cached until the next check.
func (m *Manager) CheckHealth(ctx context.Context, name string) Health {
	h := Health{Status: StatusUnhealthy, LastCheck: time.Now().UTC()}

	m.mu.Lock()
	entry, ok := m.pools[name]
	m.mu.Unlock()
	if !ok || entry.pool == nil {
		h.Errors = append(h.Errors, fmt.Sprintf("pool not found: %s", name))
		return h
	}

	start := time.Now()
	var one int
	err := entry.pool.QueryRow(ctx, "SELECT 1").Scan(&one)
	h.Latency = time.Since(start)

	stat := entry.pool.Stat()
	h.Connections = Connections{
		Active: stat.AcquiredConns(),
		Idle:   stat.IdleConns(),
		Total:  stat.TotalConns(),
	}

	if err != nil {
		h.Status = StatusUnhealthy
		h.Errors = append(h.Errors, fmt.Sprintf("health probe failed: %v", err))
		m.HandlePoolError(name, err)
	} else {
		exhausted := stat.MaxConns() > 0 && stat.AcquiredConns() >= stat.MaxConns()
		h.Status = classifyHealth(h.Latency, h.Connections, exhausted)
	}

	m.mu.Lock()
	entry.health = h
	m.mu.Unlock()
	return h
}

// LastHealth returns the cached health report for the named pool.
func (m *Manager) LastHealth(name string) (Health, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry, ok := m.pools[name]
	if !ok {
		return Health{}, false
	}
	return entry.health, true
}

// HandlePoolError classifies a pool-level error and, for connection
// failures, schedules a debounced recovery of the named pool.
func (m *Manager) HandlePoolError(name string, err error) {
	if !retry.IsConnectionError(err) {
		return
	}
	m.scheduleRecovery(name)
}

// scheduleRecovery sets the per-name debounce timer. A trigger while one is
// already pending for the same name is ignored.
func (m *Manager) scheduleRecovery(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, pending := m.pending[name]; pending {
		return
	}
	m.logger.WithPool(name).Warn("connection failure detected, scheduling pool recovery",
		"delay", m.recoveryDelay)
	m.pending[name] = time.AfterFunc(m.recoveryDelay, func() {
		m.recoverPool(name)
	})
}

// recoverPool closes the broken pool (best effort) and recreates it from
// the stored configuration, then clears the pending marker so future
// errors can schedule again.
func (m *Manager) recoverPool(name string) {
	logger := m.logger.WithPool(name)

	m.mu.Lock()
	entry, ok := m.pools[name]
	if !ok {
		delete(m.pending, name)
		m.mu.Unlock()
		return
	}
	old := entry.pool
	cfg := entry.cfg
	m.mu.Unlock()

	if old != nil {
		// Close errors are logged, not propagated.
		old.Close()
	}

	ctx, cancel := context.WithTimeout(context.Background(), constants.DefaultPoolConnectTimeout)
	defer cancel()
	pool, err := m.connect(ctx, cfg)

	m.mu.Lock()
	if err != nil {
		logger.Error("pool recovery failed", "error", err)
		entry.pool = nil
	} else {
		logger.Info("pool recovered")
		entry.pool = pool
	}
	delete(m.pending, name)
	m.mu.Unlock()
}

// ClosePool closes and forgets the named pool.
func (m *Manager) ClosePool(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.pools[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPoolNotFound, name)
	}
	if t, pending := m.pending[name]; pending {
		t.Stop()
		delete(m.pending, name)
	}
	if entry.pool != nil {
		entry.pool.Close()
	}
	delete(m.pools, name)
	m.logger.WithPool(name).Info("pool closed")
	return nil
}

// CloseAll closes every pool owned by the manager.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	names := make([]string, 0, len(m.pools))
	for name := range m.pools {
		names = append(names, name)
	}
	m.mu.Unlock()

	for _, name := range names {
		_ = m.ClosePool(name)
	}
}
