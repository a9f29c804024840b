package dialects

import (
	"context"
	"fmt"

	"srdb/internal/db"
	"srdb/internal/introspect"
)

// mssqlDialect implements Dialect for Microsoft SQL Server, scoped to the
// login's default schema.
type mssqlDialect struct{}

func (mssqlDialect) Tables(ctx context.Context, q db.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT TABLE_NAME
        FROM INFORMATION_SCHEMA.TABLES
        WHERE TABLE_SCHEMA = SCHEMA_NAME()
          AND TABLE_TYPE = 'BASE TABLE'
        ORDER BY TABLE_NAME`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return scanNames(rows)
}

func (mssqlDialect) Columns(ctx context.Context, q db.Queryer, table string) ([]introspect.Column, error) {
	cr, err := q.QueryContext(ctx, `
        SELECT COLUMN_NAME, DATA_TYPE, CASE WHEN IS_NULLABLE='YES' THEN 1 ELSE 0 END
        FROM INFORMATION_SCHEMA.COLUMNS
        WHERE TABLE_SCHEMA = SCHEMA_NAME() AND TABLE_NAME = @p1
        ORDER BY ORDINAL_POSITION`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	cols, err := scanColumns(cr)
	if err != nil {
		return nil, err
	}
	err = markPrimaryKey(ctx, q, cols, `
        SELECT k.COLUMN_NAME, k.ORDINAL_POSITION
        FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS t
        JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE k
          ON t.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND t.TABLE_SCHEMA = k.TABLE_SCHEMA
        WHERE t.CONSTRAINT_TYPE = 'PRIMARY KEY'
          AND k.TABLE_SCHEMA = SCHEMA_NAME() AND k.TABLE_NAME = @p1`, table)
	return cols, err
}

func (mssqlDialect) Quote(ident string) string { return quoteWith(ident, "[", "]") }

func (mssqlDialect) Placeholder(n int) string { return fmt.Sprintf("@p%d", n) }

func (mssqlDialect) Limit(n int) (string, string) { return fmt.Sprintf("TOP (%d)", n), "" }

func init() {
	db.Register("sqlserver", mssqlDialect{})
	db.Register("mssql", mssqlDialect{})
}
