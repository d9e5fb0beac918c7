// Package schema introspects the connected database's public tables and
// renders them into the CREATE TABLE text dump that gets primed into a
// chat session and bound to each new Session's digest.
package schema

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
)

// Source produces a schema digest on demand. cmd/sqlcopilot calls Digest
// once, at startup.
type Source interface {
	Digest(ctx context.Context) (string, error)
}

// PostgresSource is a Source backed by a live Postgres connection, querying
// information_schema the same way a REPL's own \d would.
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource opens dsn through the pgx stdlib driver. The caller
// owns the returned *PostgresSource and should Close it on shutdown.
func NewPostgresSource(dsn string) (*PostgresSource, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database connection: %w", err)
	}
	return &PostgresSource{db: db}, nil
}

// NewPostgresSourceFromDB wraps an already-open *sql.DB, letting tests
// inject a mock driver instead of a real Postgres connection.
func NewPostgresSourceFromDB(db *sql.DB) *PostgresSource {
	return &PostgresSource{db: db}
}

// Close releases the underlying connection pool.
func (s *PostgresSource) Close() error {
	return s.db.Close()
}

const tablesQuery = `
SELECT table_name
FROM information_schema.tables
WHERE table_schema = 'public' AND table_type = 'BASE TABLE'
ORDER BY table_name`

const columnsQuery = `
SELECT column_name, data_type, udt_name, is_nullable, column_default
FROM information_schema.columns
WHERE table_name = $1
ORDER BY ordinal_position`

// Digest queries information_schema for every base table in the public
// schema and its columns, and renders a "CREATE TABLE ..." statement per
// table, one after another, each ending in a newline. The result is
// JSON-string-escaped so it
// can be embedded directly into a request body by callers.
func (s *PostgresSource) Digest(ctx context.Context) (string, error) {
	rows, err := s.db.QueryContext(ctx, tablesQuery)
	if err != nil {
		return "", fmt.Errorf("querying tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var table string
		if err := rows.Scan(&table); err != nil {
			return "", fmt.Errorf("scanning table name: %w", err)
		}
		tables = append(tables, table)
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("reading tables: %w", err)
	}

	var buf strings.Builder
	for _, table := range tables {
		if err := s.renderTable(ctx, &buf, table); err != nil {
			return "", err
		}
	}

	return escapeJSONString(buf.String()), nil
}

func (s *PostgresSource) renderTable(ctx context.Context, buf *strings.Builder, table string) error {
	rows, err := s.db.QueryContext(ctx, columnsQuery, table)
	if err != nil {
		return fmt.Errorf("querying columns for %s: %w", table, err)
	}
	defer rows.Close()

	type column struct {
		name, dataType, udtName string
	}
	var cols []column
	for rows.Next() {
		var c column
		var isNullable string
		var columnDefault sql.NullString
		if err := rows.Scan(&c.name, &c.dataType, &c.udtName, &isNullable, &columnDefault); err != nil {
			return fmt.Errorf("scanning column for %s: %w", table, err)
		}
		cols = append(cols, c)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading columns for %s: %w", table, err)
	}

	fmt.Fprintf(buf, "CREATE TABLE %s (\n", table)
	for i, c := range cols {
		typ := c.dataType
		if typ == "USER-DEFINED" {
			typ = c.udtName
		}
		fmt.Fprintf(buf, "\t%s %s", c.name, typ)
		if i != len(cols)-1 {
			buf.WriteString(",\n")
		}
	}
	buf.WriteString("\n);\n")
	return nil
}

// escapeJSONString mirrors the same escaper used by internal/controller:
// json.Marshal on a Go string, quotes trimmed off.
func escapeJSONString(s string) string {
	b, _ := json.Marshal(s)
	return string(b[1 : len(b)-1])
}
