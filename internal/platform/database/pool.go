package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	_ "modernc.org/sqlite"

	"vcregistry/internal/platform/config"
)

// Driver names registered by the imported database/sql drivers.
const (
	DriverPostgres = "pgx"
	DriverSQLite   = "sqlite"
)

// Pool wraps a *sql.DB with health checking capabilities.
type Pool struct {
	db     *sql.DB
	driver string
}

// OpenPostgres opens a pgx-backed pool and verifies it with a ping.
// Returns nil, nil if the URL is empty.
func OpenPostgres(ctx context.Context, cfg config.DatabaseConfig) (*Pool, error) {
	if cfg.URL == "" {
		return nil, nil
	}
	db, err := sql.Open(DriverPostgres, cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	return finishOpen(ctx, db, DriverPostgres)
}

// OpenSQLite opens a file-backed SQLite database. The pool is pinned to one
// connection because SQLite serializes writers anyway and a single
// connection avoids SQLITE_BUSY between them.
func OpenSQLite(ctx context.Context, path string) (*Pool, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite path not configured")
	}
	db, err := sql.Open(DriverSQLite, path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	return finishOpen(ctx, db, DriverSQLite)
}

func finishOpen(ctx context.Context, db *sql.DB, driver string) (*Pool, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck // best-effort cleanup on init failure
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Pool{db: db, driver: driver}, nil
}

// DB returns the underlying *sql.DB for query operations.
func (p *Pool) DB() *sql.DB {
	return p.db
}

// Driver returns the database/sql driver name.
func (p *Pool) Driver() string {
	return p.driver
}

// Health checks if the database is reachable.
func (p *Pool) Health(ctx context.Context) error {
	if p == nil || p.db == nil {
		return fmt.Errorf("database not configured")
	}
	return p.db.PingContext(ctx)
}

// Close closes the database connection pool.
func (p *Pool) Close() error {
	if p == nil || p.db == nil {
		return nil
	}
	return p.db.Close()
}

// StatsMetrics exports sql.DBStats gauges.
type StatsMetrics struct {
	openConns *prometheus.GaugeVec
	inUse     *prometheus.GaugeVec
	idle      *prometheus.GaugeVec
	waitCount *prometheus.GaugeVec
}

// NewStatsMetrics registers the pool gauges on reg.
func NewStatsMetrics(reg prometheus.Registerer) *StatsMetrics {
	f := promauto.With(reg)
	return &StatsMetrics{
		openConns: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vcregistry_db_open_connections",
			Help: "Number of established database connections",
		}, []string{"driver"}),
		inUse: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vcregistry_db_in_use_connections",
			Help: "Number of database connections currently in use",
		}, []string{"driver"}),
		idle: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vcregistry_db_idle_connections",
			Help: "Number of idle database connections",
		}, []string{"driver"}),
		waitCount: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vcregistry_db_wait_count",
			Help: "Total number of connections waited for",
		}, []string{"driver"}),
	}
}

// RecordStats publishes the pool statistics.
func (p *Pool) RecordStats(m *StatsMetrics) {
	if p == nil || p.db == nil || m == nil {
		return
	}
	s := p.db.Stats()
	m.openConns.WithLabelValues(p.driver).Set(float64(s.OpenConnections))
	m.inUse.WithLabelValues(p.driver).Set(float64(s.InUse))
	m.idle.WithLabelValues(p.driver).Set(float64(s.Idle))
	m.waitCount.WithLabelValues(p.driver).Set(float64(s.WaitCount))
}
