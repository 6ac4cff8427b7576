package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	_ "github.com/duckdb/duckdb-go/v2"
	"go.uber.org/zap"
)

// NewDB opens the DuckDB database file under dataFolder, or an
// in-memory database when dataFolder is ":memory:". DuckDB admits one
// process per database file, so open and ping are retried with
// exponential backoff to ride out the file lock of a previous instance
// that is still shutting down.
func NewDB(dataFolder string) (*sql.DB, error) {
	path := dataFolder
	if path != ":memory:" {
		if err := os.MkdirAll(dataFolder, 0o755); err != nil {
			return nil, fmt.Errorf("create data folder %s: %w", dataFolder, err)
		}
		path = filepath.Join(dataFolder, "jobforge.db")
	}

	open := func() (*sql.DB, error) {
		db, err := sql.Open("duckdb", path)
		if err != nil {
			return nil, err
		}
		if err := db.Ping(); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := backoff.Retry(context.Background(), open,
		backoff.WithBackOff(backoff.NewExponentialBackOff()),
		backoff.WithMaxElapsedTime(30*time.Second),
		backoff.WithNotify(func(err error, next time.Duration) {
			zap.S().Named("store").Debugw("database open failed, retrying",
				"path", path, "error", err, "next_attempt_in", next)
		}))
	if err != nil {
		return nil, err
	}

	// DuckDB is embedded and single-writer. One pooled connection keeps
	// statement ordering deterministic and avoids write contention.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return db, nil
}

// QueryInterceptor is the slice of database/sql the substores use.
// *sql.DB satisfies it directly; NewStore wraps the pool in a logging
// interceptor so every statement is visible at debug level.
type QueryInterceptor interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type loggingDB struct {
	db *sql.DB
}

func (l *loggingDB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	zap.S().Named("store").Debugw("query", "sql", compactSQL(query), "args", args)
	return l.db.QueryContext(ctx, query, args...)
}

func (l *loggingDB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	zap.S().Named("store").Debugw("query row", "sql", compactSQL(query), "args", args)
	return l.db.QueryRowContext(ctx, query, args...)
}

func (l *loggingDB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	zap.S().Named("store").Debugw("exec", "sql", compactSQL(query), "args", args)
	return l.db.ExecContext(ctx, query, args...)
}

// compactSQL folds the indented const queries onto one line for logs.
func compactSQL(query string) string {
	return strings.Join(strings.Fields(query), " ")
}
