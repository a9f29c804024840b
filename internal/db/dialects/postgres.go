package dialects

import (
	"context"
	"fmt"

	"srdb/internal/db"
	"srdb/internal/introspect"
)

// pgDialect implements Dialect using information_schema + pg_catalog queries
// against the current schema.
type pgDialect struct{}

func (pgDialect) Tables(ctx context.Context, q db.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_schema = current_schema()
          AND table_type = 'BASE TABLE'
        ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return scanNames(rows)
}

func (pgDialect) Columns(ctx context.Context, q db.Queryer, table string) ([]introspect.Column, error) {
	cr, err := q.QueryContext(ctx, `
        SELECT column_name, data_type, is_nullable = 'YES'
        FROM information_schema.columns
        WHERE table_schema = current_schema() AND table_name = $1
        ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	cols, err := scanColumns(cr)
	if err != nil {
		return nil, err
	}
	err = markPrimaryKey(ctx, q, cols, `
        SELECT a.attname, array_position(i.indkey::int2[], a.attnum)
        FROM pg_index i
        JOIN pg_class c ON i.indrelid = c.oid
        JOIN pg_namespace ns ON c.relnamespace = ns.oid
        JOIN pg_attribute a ON a.attrelid = c.oid AND a.attnum = ANY(i.indkey)
        WHERE ns.nspname = current_schema() AND c.relname = $1 AND i.indisprimary`, table)
	return cols, err
}

func (pgDialect) Quote(ident string) string { return quoteWith(ident, `"`, `"`) }

func (pgDialect) Placeholder(n int) string { return fmt.Sprintf("$%d", n) }

func (pgDialect) Limit(n int) (string, string) { return "", fmt.Sprintf("LIMIT %d", n) }

func init() {
	db.Register("postgres", pgDialect{})
	db.Register("postgresql", pgDialect{})
}
