package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/i474232898/rain-station/internal/weather"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - initial table
// 1 - index on timestamp for range reads
const currentSchemaVersion = 1

const insertRow = `
	INSERT INTO weather_events (timestamp, bucket_volume, primary_temp, humidity, secondary_temp)
	VALUES (?, ?, ?, ?, ?)
`

const selectColumns = `SELECT rowid, timestamp, bucket_volume, primary_temp, humidity, secondary_temp FROM weather_events`

// SQLiteStore is the shared, append-only store backed by a SQLite file.
type SQLiteStore struct {
	mu        sync.Mutex
	db        *sql.DB
	loc       *time.Location
	closeOnce sync.Once
	closeErr  error
}

// Open creates or opens the SQLite database at path, applies pragmas and
// creates the schema if absent. It is safe to call on an existing database.
func Open(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: store path is empty", weather.ErrConfig)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite has a single writer; one pooled connection keeps the pragmas
	// applied and avoids SQLITE_BUSY between our own writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return NewDB(db), nil
}

// OpenReadOnly opens an existing database for reading only. Nothing is
// created or migrated and no pragma that writes to the file is issued, so
// it is safe against a database a running station owns.
func OpenReadOnly(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%w: store path is empty", weather.ErrConfig)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve store path: %w", err)
	}
	dsn := &url.URL{
		Scheme:   "file",
		Path:     filepath.ToSlash(abs),
		RawQuery: "mode=ro&_pragma=busy_timeout(5000)",
	}

	db, err := sql.Open("sqlite", dsn.String())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	return NewDB(db), nil
}

// NewDB wraps an already configured database. The schema is assumed present.
func NewDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db, loc: time.Local}
}

// Close closes the database. Later calls return the first result.
func (s *SQLiteStore) Close() error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.closeErr = s.db.Close()
	})
	return s.closeErr
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}
	return runMigrations(db)
}

func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_weather_events_timestamp ON weather_events(timestamp)`); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

// Append writes one row as a single transaction under the write mutex.
// On any failure the transaction is rolled back and an error wrapping
// weather.ErrWrite is returned; the lock is never held past the call.
func (s *SQLiteStore) Append(ctx context.Context, row weather.Row) error {
	if err := row.Validate(); err != nil {
		return fmt.Errorf("%w: %v", weather.ErrWrite, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin tx: %v", weather.ErrWrite, err)
	}
	defer tx.Rollback() // no-op once committed

	_, err = tx.ExecContext(ctx, insertRow,
		row.Timestamp.In(s.loc).Format(weather.TimestampLayout),
		nullArg(row.BucketVolume),
		nullArg(row.PrimaryTemp),
		nullArg(row.Humidity),
		nullArg(row.SecondaryTemp),
	)
	if err != nil {
		return fmt.Errorf("%w: insert %s: %v", weather.ErrWrite, row.Kind(), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %v", weather.ErrWrite, err)
	}
	return nil
}

// AppendTip is a convenience wrapper around Append.
func (s *SQLiteStore) AppendTip(ctx context.Context, ev weather.TipEvent) error {
	return s.Append(ctx, ev.Row())
}

// AppendSample is a convenience wrapper around Append.
func (s *SQLiteStore) AppendSample(ctx context.Context, rec weather.SampleRecord) error {
	return s.Append(ctx, rec.Row())
}

// Range returns committed rows with from <= timestamp < to, in append order.
// Timestamps are local wall-clock text and repeat during the fall-back hour,
// so rowid and not the text orders the result.
func (s *SQLiteStore) Range(ctx context.Context, from, to time.Time) ([]weather.Row, error) {
	rows, err := s.db.QueryContext(ctx,
		selectColumns+` WHERE timestamp >= ? AND timestamp < ? ORDER BY rowid ASC`,
		from.In(s.loc).Format(weather.TimestampLayout),
		to.In(s.loc).Format(weather.TimestampLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query range: %w", err)
	}
	defer rows.Close()

	var out []weather.Row
	for rows.Next() {
		r, err := s.scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate range: %w", err)
	}
	return out, nil
}

// Latest returns the most recently appended row of the given kind.
func (s *SQLiteStore) Latest(ctx context.Context, kind weather.Kind) (weather.Row, error) {
	where := "bucket_volume IS NULL"
	if kind == weather.KindTip {
		where = "bucket_volume IS NOT NULL"
	}
	row := s.db.QueryRowContext(ctx,
		selectColumns+` WHERE `+where+` ORDER BY rowid DESC LIMIT 1`)

	r, err := s.scanRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return weather.Row{}, weather.ErrNotFound
	}
	return r, err
}

// Count returns the number of committed rows.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM weather_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count rows: %w", err)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func (s *SQLiteStore) scanRow(sc scanner) (weather.Row, error) {
	var (
		r                           weather.Row
		ts                          string
		bucket, primary, hum, secnd sql.NullFloat64
	)
	if err := sc.Scan(&r.ID, &ts, &bucket, &primary, &hum, &secnd); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return weather.Row{}, err
		}
		return weather.Row{}, fmt.Errorf("scan row: %w", err)
	}

	t, err := time.ParseInLocation(weather.TimestampLayout, ts, s.loc)
	if err != nil {
		return weather.Row{}, fmt.Errorf("parse timestamp %q: %w", ts, err)
	}
	r.Timestamp = t
	r.BucketVolume = nullable(bucket)
	r.PrimaryTemp = nullable(primary)
	r.Humidity = nullable(hum)
	r.SecondaryTemp = nullable(secnd)
	return r, nil
}

func nullArg(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}
