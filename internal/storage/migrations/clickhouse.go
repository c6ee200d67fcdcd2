package migrations

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"token-ledger/internal/storage"
	chstore "token-ledger/internal/storage/clickhouse"
)

// archiveColumns are the ledger_txs columns whose types TxArchive depends on.
var archiveColumns = map[string]string{
	"id":           "UInt64",
	"amount":       "UInt128",
	"block_height": "UInt64",
}

// RunClickhouseMigrations creates the archive database if needed, applies the
// embedded migrations and checks the resulting ledger_txs schema.
// The returned connection targets the archive database.
func RunClickhouseMigrations(ctx context.Context, dsn string) (*chstore.Conn, error) {
	dbName, err := databaseFromDSN(dsn)
	if err != nil {
		return nil, err
	}

	migrations, err := Load(ClickhouseFS, "clickhouse")
	if err != nil {
		return nil, err
	}
	for _, m := range migrations {
		if err := validateNoSemicolonInStrings(m.SQL); err != nil {
			return nil, fmt.Errorf("validate migration %03d_%s: %w", m.Version, m.Name, err)
		}
	}

	if err := createDatabase(ctx, dsn, dbName); err != nil {
		return nil, err
	}

	conn, err := chstore.NewConnWithDatabase(ctx, dsn, dbName)
	if err != nil {
		return nil, fmt.Errorf("connect clickhouse db: %w", err)
	}

	if err := applyClickhouse(ctx, conn, migrations); err != nil {
		conn.Close()
		return nil, err
	}
	if err := verifyArchiveSchema(ctx, conn); err != nil {
		conn.Close()
		return nil, err
	}
	return conn, nil
}

func createDatabase(ctx context.Context, dsn, dbName string) error {
	adminConn, err := chstore.NewConnWithDatabase(ctx, dsn, "")
	if err != nil {
		return fmt.Errorf("connect clickhouse admin: %w", err)
	}
	defer adminConn.Close()

	if err := adminConn.Exec(ctx, fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", dbName)); err != nil {
		return fmt.Errorf("create database %s: %w", dbName, err)
	}
	return nil
}

// applyClickhouse runs each statement separately; the native driver rejects
// multi-statement Exec.
func applyClickhouse(ctx context.Context, conn *chstore.Conn, migrations []Migration) error {
	for _, m := range migrations {
		for _, stmt := range splitStatements(m.SQL) {
			if err := conn.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %03d_%s: %w", m.Version, m.Name, err)
			}
		}
	}
	return nil
}

func verifyArchiveSchema(ctx context.Context, conn *chstore.Conn) error {
	rows, err := conn.Query(ctx,
		`SELECT name, type FROM system.columns WHERE database = currentDatabase() AND table = 'ledger_txs'`)
	if err != nil {
		return fmt.Errorf("read ledger_txs columns: %w", err)
	}
	defer rows.Close()

	found := make(map[string]string)
	for rows.Next() {
		var name, typ string
		if err := rows.Scan(&name, &typ); err != nil {
			return fmt.Errorf("scan ledger_txs column: %w", err)
		}
		found[name] = typ
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("read ledger_txs columns: %w", err)
	}
	return checkColumns("ledger_txs", archiveColumns, found)
}

func checkColumns(table string, want, found map[string]string) error {
	if len(found) == 0 {
		return fmt.Errorf("%w: table %s", storage.ErrSchemaMissing, table)
	}
	names := make([]string, 0, len(want))
	for name := range want {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		got, ok := found[name]
		if !ok {
			return fmt.Errorf("%w: column %s.%s", storage.ErrSchemaMissing, table, name)
		}
		if got != want[name] {
			return fmt.Errorf("%w: column %s.%s is %s, want %s", storage.ErrSchemaMissing, table, name, got, want[name])
		}
	}
	return nil
}

// splitStatements splits migration SQL on semicolons after dropping blank and
// "--" comment lines. Semicolons inside string literals or block comments are
// not supported; validateNoSemicolonInStrings rejects the former.
func splitStatements(input string) []string {
	var filtered []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		filtered = append(filtered, line)
	}
	joined := strings.Join(filtered, "\n")

	var stmts []string
	for _, part := range strings.Split(joined, ";") {
		stmt := strings.TrimSpace(part)
		if stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings fails if a single-quoted literal holds a semicolon.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		ch := sql[i]
		if ch == '\'' {
			if i+1 < len(sql) && sql[i+1] == '\'' {
				i++ // escaped ''
				continue
			}
			inString = !inString
		} else if ch == ';' && inString {
			return fmt.Errorf("semicolon inside string literal at offset %d", i)
		}
	}
	return nil
}

func databaseFromDSN(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}
