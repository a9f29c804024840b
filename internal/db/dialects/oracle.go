//go:build oracle
// +build oracle

package dialects

import (
	"context"
	"fmt"

	_ "github.com/godror/godror"

	"srdb/internal/db"
	"srdb/internal/introspect"
)

// oracleDialect implements Dialect for Oracle, scoped to the connected user.
type oracleDialect struct{}

func (oracleDialect) Tables(ctx context.Context, q db.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
	    SELECT table_name
	    FROM user_tables
	    ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return scanNames(rows)
}

func (oracleDialect) Columns(ctx context.Context, q db.Queryer, table string) ([]introspect.Column, error) {
	cr, err := q.QueryContext(ctx, `
            SELECT column_name, data_type, CASE WHEN nullable = 'Y' THEN 1 ELSE 0 END
            FROM user_tab_columns
            WHERE table_name = :1
            ORDER BY column_id`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	cols, err := scanColumns(cr)
	if err != nil {
		return nil, err
	}
	err = markPrimaryKey(ctx, q, cols, `
            SELECT ucc.column_name, ucc.position
            FROM user_cons_columns ucc
            JOIN user_constraints uc ON ucc.constraint_name = uc.constraint_name
            WHERE uc.constraint_type = 'P' AND ucc.table_name = :1`, table)
	return cols, err
}

func (oracleDialect) Quote(ident string) string { return quoteWith(ident, `"`, `"`) }

func (oracleDialect) Placeholder(n int) string { return fmt.Sprintf(":%d", n) }

func (oracleDialect) Limit(n int) (string, string) {
	return "", fmt.Sprintf("FETCH FIRST %d ROWS ONLY", n)
}

func init() {
	db.Register("godror", oracleDialect{})
	db.Register("oracle", oracleDialect{})
}
