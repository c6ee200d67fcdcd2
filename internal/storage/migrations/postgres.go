package migrations

import (
	"context"
	"fmt"

	"token-ledger/internal/storage"
	"token-ledger/internal/storage/postgres"
)

const schemaMigrationsDDL = `CREATE TABLE IF NOT EXISTS schema_migrations (
    version    INTEGER PRIMARY KEY,
    name       TEXT NOT NULL,
    applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// postgresLockID keys the advisory lock held while a migration applies, so two
// ledgerd instances sharing a database do not race on the same version.
const postgresLockID int64 = 0x6c6564676572 // "ledger"

// postgresTables must exist once migrations have run.
var postgresTables = []string{"ledger_kv", "schema_migrations"}

// RunPostgresMigrations applies every embedded migration not yet recorded in
// schema_migrations. Each file and its version row commit in one transaction.
func RunPostgresMigrations(ctx context.Context, pool *postgres.Pool) error {
	migrations, err := Load(PostgresFS, "postgres")
	if err != nil {
		return err
	}

	if _, err := pool.Exec(ctx, schemaMigrationsDDL); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	applied, err := AppliedPostgresVersions(ctx, pool)
	if err != nil {
		return err
	}

	for _, m := range migrations {
		if applied[m.Version] {
			continue
		}
		if err := applyPostgres(ctx, pool, m); err != nil {
			return err
		}
	}

	return verifyPostgresSchema(ctx, pool)
}

// AppliedPostgresVersions returns the versions recorded in schema_migrations.
func AppliedPostgresVersions(ctx context.Context, pool *postgres.Pool) (map[int]bool, error) {
	rows, err := pool.Query(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, fmt.Errorf("query schema_migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, fmt.Errorf("scan schema_migrations: %w", err)
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

func applyPostgres(ctx context.Context, pool *postgres.Pool, m Migration) error {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin migration %03d: %w", m.Version, err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, postgresLockID); err != nil {
		return fmt.Errorf("lock migration %03d: %w", m.Version, err)
	}

	// another instance may have applied it while we waited for the lock
	var done bool
	err = tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM schema_migrations WHERE version = $1)`, m.Version).Scan(&done)
	if err != nil {
		return fmt.Errorf("check migration %03d: %w", m.Version, err)
	}
	if done {
		return nil
	}

	if _, err := tx.Exec(ctx, m.SQL); err != nil {
		return fmt.Errorf("apply migration %03d_%s: %w", m.Version, m.Name, err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO schema_migrations (version, name) VALUES ($1, $2)`, m.Version, m.Name); err != nil {
		return fmt.Errorf("record migration %03d: %w", m.Version, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit migration %03d: %w", m.Version, err)
	}
	return nil
}

func verifyPostgresSchema(ctx context.Context, pool *postgres.Pool) error {
	for _, table := range postgresTables {
		var exists bool
		if err := pool.QueryRow(ctx, `SELECT to_regclass($1::text) IS NOT NULL`, table).Scan(&exists); err != nil {
			return fmt.Errorf("check table %s: %w", table, err)
		}
		if !exists {
			return fmt.Errorf("%w: table %s", storage.ErrSchemaMissing, table)
		}
	}
	return nil
}
