package kvstore

import (
	"context"
	"database/sql"
	"errors"

	"vcregistry/pkg/platform/sentinel"
)

// dialect holds the statements that differ between Postgres and SQLite.
type dialect struct {
	name        string
	get         string
	upsert      string
	insertIfNew string
}

var (
	postgresDialect = dialect{
		name: "postgres",
		get:  `SELECT value FROM kv_entries WHERE key = $1`,
		upsert: `INSERT INTO kv_entries (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = CURRENT_TIMESTAMP`,
		insertIfNew: `INSERT INTO kv_entries (key, value) VALUES ($1, $2) ON CONFLICT (key) DO NOTHING`,
	}
	sqliteDialect = dialect{
		name: "sqlite",
		get:  `SELECT value FROM kv_entries WHERE key = ?`,
		upsert: `INSERT INTO kv_entries (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		insertIfNew: `INSERT OR IGNORE INTO kv_entries (key, value) VALUES (?, ?)`,
	}
)

// SQL stores entries in the kv_entries table created by the migrations
// package.
type SQL struct {
	db *sql.DB
	d  dialect
}

// NewPostgres wraps a database/sql handle opened with the pgx driver.
func NewPostgres(db *sql.DB) *SQL {
	return &SQL{db: db, d: postgresDialect}
}

// NewSQLite wraps a database/sql handle opened with the modernc sqlite driver.
func NewSQLite(db *sql.DB) *SQL {
	return &SQL{db: db, d: sqliteDialect}
}

func (s *SQL) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.d.get, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", unavailable(s.d.name+" get", err)
	}
	return value, nil
}

func (s *SQL) Put(ctx context.Context, key, value string) error {
	if _, err := s.db.ExecContext(ctx, s.d.upsert, key, value); err != nil {
		return unavailable(s.d.name+" put", err)
	}
	return nil
}

// PutIfAbsent relies on the primary key: the insert affects one row only when
// no entry existed.
func (s *SQL) PutIfAbsent(ctx context.Context, key, value string) (bool, error) {
	res, err := s.db.ExecContext(ctx, s.d.insertIfNew, key, value)
	if err != nil {
		return false, unavailable(s.d.name+" put-if-absent", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, unavailable(s.d.name+" rows affected", err)
	}
	return n == 1, nil
}

func (s *SQL) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var _ ConditionalStore = (*SQL)(nil)
