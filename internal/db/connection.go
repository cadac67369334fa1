package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-sqlite3"
)

// driverName is go-sqlite3 with a ulower(text) function registered on every
// connection. SQLite's LOWER and LIKE only fold ASCII.
const driverName = "sqlite3_ledger"

func init() {
	sql.Register(driverName, &sqlite3.SQLiteDriver{
		ConnectHook: func(c *sqlite3.SQLiteConn) error {
			return c.RegisterFunc("ulower", strings.ToLower, true)
		},
	})
}

// DefaultBusyTimeoutMS bounds how long a statement waits on a locked database.
const DefaultBusyTimeoutMS = 5000

// Options tune a Conn.
type Options struct {
	// BusyTimeoutMS is how long a statement waits for a lock before failing.
	BusyTimeoutMS int
}

// Conn manages a SQLite database handle shared by the ledger components.
type Conn struct {
	db     *sql.DB
	dbPath string
}

// Open opens the SQLite database at dbPath and applies the schema.
// Foreign keys are enforced, WAL journaling is enabled and write
// transactions take the reserved lock up front.
func Open(dbPath string, opts Options) (*Conn, error) {
	if dbPath == "" {
		return nil, errors.New("database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	timeout := opts.BusyTimeoutMS
	if timeout <= 0 {
		timeout = DefaultBusyTimeoutMS
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=%d&_txlock=immediate", dbPath, timeout)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	conn := &Conn{db: db, dbPath: dbPath}
	if err := InitializeSchema(context.Background(), conn); err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing schema: %w", err)
	}
	return conn, nil
}

// Close closes the database.
func (c *Conn) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// DB returns the underlying *sql.DB.
func (c *Conn) DB() *sql.DB {
	return c.db
}

// Path returns the database file path.
func (c *Conn) Path() string {
	return c.dbPath
}

// QueryContext executes a query that returns rows.
func (c *Conn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return c.db.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query expected to return at most one row.
func (c *Conn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return c.db.QueryRowContext(ctx, query, args...)
}

// ExecContext executes a statement that returns no rows.
func (c *Conn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return c.db.ExecContext(ctx, query, args...)
}

// Transaction runs fn inside a single database transaction.
// If fn returns an error or panics the transaction is rolled back,
// otherwise it is committed.
func (c *Conn) Transaction(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("transaction error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// IsUniqueViolation reports whether err is a UNIQUE constraint failure.
func IsUniqueViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}

// IsForeignKeyViolation reports whether err is a FOREIGN KEY constraint failure.
func IsForeignKeyViolation(err error) bool {
	var se sqlite3.Error
	if errors.As(err, &se) {
		return se.ExtendedCode == sqlite3.ErrConstraintForeignKey
	}
	return false
}
