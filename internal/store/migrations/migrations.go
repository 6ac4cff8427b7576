package migrations

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"
)

type migration struct {
	version int
	name    string
	stmts   []string
}

var all = []migration{
	{
		version: 1,
		name:    "create runs",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS runs (
				id VARCHAR PRIMARY KEY,
				pipeline VARCHAR NOT NULL,
				state VARCHAR NOT NULL DEFAULT 'pending',
				error VARCHAR NOT NULL DEFAULT '',
				created_at TIMESTAMP NOT NULL DEFAULT now(),
				started_at TIMESTAMP,
				finished_at TIMESTAMP
			)`},
	},
	{
		version: 2,
		name:    "create task_runs",
		stmts: []string{`
			CREATE TABLE IF NOT EXISTS task_runs (
				run_id VARCHAR NOT NULL,
				name VARCHAR NOT NULL,
				seq INTEGER NOT NULL DEFAULT 0,
				state VARCHAR NOT NULL DEFAULT 'pending',
				output VARCHAR NOT NULL DEFAULT '',
				error VARCHAR NOT NULL DEFAULT '',
				worker INTEGER NOT NULL DEFAULT -1,
				started_at TIMESTAMP,
				finished_at TIMESTAMP,
				PRIMARY KEY (run_id, name)
			)`},
	},
}

const createSchemaMigrations = `
	CREATE TABLE IF NOT EXISTS schema_migrations (
		version INTEGER PRIMARY KEY,
		name VARCHAR NOT NULL,
		applied_at TIMESTAMP NOT NULL DEFAULT now()
	)`

// Run applies pending migrations in version order. Applied versions are
// recorded in schema_migrations, so running twice is a no-op.
func Run(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, createSchemaMigrations); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range all {
		if applied[m.version] {
			continue
		}
		for _, stmt := range m.stmts {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("migration %d (%s): %w", m.version, m.name, err)
			}
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name) VALUES (?, ?)`,
			m.version, m.name); err != nil {
			return fmt.Errorf("record migration %d: %w", m.version, err)
		}
		zap.S().Named("store").Infow("applied migration", "version", m.version, "name", m.name)
	}
	return nil
}

// appliedVersions reads schema_migrations fully before returning, so
// the single pooled connection is free again when the caller executes
// the pending migrations.
func appliedVersions(ctx context.Context, db *sql.DB) (map[int]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("read schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}
