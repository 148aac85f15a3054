// Package sqlite implements the storage contract on a single-file SQLite
// database. WAL journaling lets readers proceed during a writer's
// transaction; writers serialize against each other and back off on
// contention (see retry.go).
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jpatrickfarrell/jat-sub013/internal/storage"
)

//go:embed schema.sql
var schema string

// Compile-time interface check.
var _ storage.Store = (*Store)(nil)

type Store struct {
	db  dbHandle
	now func() time.Time
}

// Options tune how the database is opened.
type Options struct {
	// BusyTimeout is how long a blocked writer waits for the lock before
	// SQLITE_BUSY surfaces. Zero means 5s.
	BusyTimeout time.Duration
	// LogSlowQueries wraps the handle with the slow-query logger.
	LogSlowQueries bool
}

// New opens (creating if necessary) the store file at path.
func New(path string, opts Options) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("db path required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = 5 * time.Second
	}

	dsn := fmt.Sprintf("file:%s?%s", url.PathEscape(path), pragmas(opts.BusyTimeout))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	var handle dbHandle = db
	if opts.LogSlowQueries {
		handle = &queryLogger{inner: db}
	}
	return &Store{db: handle, now: func() time.Time { return time.Now().UTC() }}, nil
}

// NewInMemory opens a private in-memory store, used by tests. A single
// connection keeps every statement on the same database.
func NewInMemory() (*Store, error) {
	db, err := sql.Open("sqlite", fmt.Sprintf(":memory:?%s", pragmas(time.Second)))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	db.SetMaxOpenConns(1)
	if err := applySchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Transactions take the write lock up front (_txlock=immediate) so the
// conflict scan inside Reserve can never be invalidated by a lock upgrade.
func pragmas(busy time.Duration) string {
	return fmt.Sprintf(
		"_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)",
		busy.Milliseconds(),
	)
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// timeLayout is RFC3339 with fixed-width nanoseconds. Unlike RFC3339Nano it
// never trims trailing zeros, so stored TEXT sorts chronologically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		t, _ = time.Parse(time.RFC3339Nano, s)
	}
	return t
}
