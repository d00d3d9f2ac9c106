// Package db wires the sqlx/pq connection pool and exposes the repository
// collection and health checker used by the rest of the system.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cryptoedge/arbmon/internal/persistence"
	"github.com/cryptoedge/arbmon/internal/persistence/postgres"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // PostgreSQL driver
)

// Config holds database connection configuration.
type Config struct {
	DSN             string        `yaml:"dsn" env:"DATABASE_URL"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `yaml:"conn_max_idle_time"`
	QueryTimeout    time.Duration `yaml:"query_timeout"`
}

// DefaultConfig returns reasonable pool defaults; QueryTimeout matches the
// 30s DB statement timeout named for the concurrency model.
func DefaultConfig() Config {
	return Config{
		MaxOpenConns:    10,
		MaxIdleConns:    5,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		QueryTimeout:    30 * time.Second,
	}
}

// Manager owns the pooled connection and the repository collection built on
// top of it.
type Manager struct {
	db     *sqlx.DB
	config Config
	repos  *persistence.Repository
}

// NewManager opens the pool, verifies connectivity, and constructs the
// repository collection. A DSN is required; this is the one place a missing
// configuration value is fatal (ConfigInvalid is raised by the caller, not
// here, since this package has no dependency on the error taxonomy package
// by design — callers translate a non-nil error at the boot boundary).
func NewManager(config Config) (*Manager, error) {
	if config.DSN == "" {
		return nil, fmt.Errorf("database DSN is required")
	}

	conn, err := sqlx.Open("postgres", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(config.MaxOpenConns)
	conn.SetMaxIdleConns(config.MaxIdleConns)
	conn.SetConnMaxLifetime(config.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(config.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	repos := &persistence.Repository{
		Exchanges:     postgres.NewExchangesRepo(conn, config.QueryTimeout),
		Pairs:         postgres.NewPairsRepo(conn, config.QueryTimeout),
		Quotes:        postgres.NewQuotesRepo(conn, config.QueryTimeout),
		Opportunities: postgres.NewOpportunitiesRepo(conn, config.QueryTimeout),
		Balances:      postgres.NewBalancesRepo(conn, config.QueryTimeout),
	}

	return &Manager{db: conn, config: config, repos: repos}, nil
}

// Repository returns the repository collection.
func (m *Manager) Repository() *persistence.Repository { return m.repos }

// DB returns the underlying pooled connection, for schema bootstrap.
func (m *Manager) DB() *sqlx.DB { return m.db }

// Close releases the pool.
func (m *Manager) Close() error {
	if m.db == nil {
		return nil
	}
	return m.db.Close()
}

// Ping verifies connectivity within the configured query timeout.
func (m *Manager) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, m.config.QueryTimeout)
	defer cancel()
	return m.db.PingContext(ctx)
}

// Stats exposes connection pool counters for the health/metrics surface.
func (m *Manager) Stats() map[string]int64 {
	s := m.db.Stats()
	return map[string]int64{
		"max_open":      int64(s.MaxOpenConnections),
		"open":          int64(s.OpenConnections),
		"in_use":        int64(s.InUse),
		"idle":          int64(s.Idle),
		"wait_count":    s.WaitCount,
		"wait_duration": s.WaitDuration.Milliseconds(),
	}
}
