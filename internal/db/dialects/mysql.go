package dialects

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"srdb/internal/db"
	"srdb/internal/introspect"
)

// mysqlDialect implements Dialect and Maintainer for MySQL and MariaDB
// (information_schema of the current database).
type mysqlDialect struct{}

func (mysqlDialect) Tables(ctx context.Context, q db.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT table_name
        FROM information_schema.tables
        WHERE table_schema = DATABASE()
          AND table_type = 'BASE TABLE'
        ORDER BY table_name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return scanNames(rows)
}

func (mysqlDialect) Columns(ctx context.Context, q db.Queryer, table string) ([]introspect.Column, error) {
	cr, err := q.QueryContext(ctx, `
        SELECT column_name, column_type, is_nullable = 'YES'
        FROM information_schema.columns
        WHERE table_schema = DATABASE() AND table_name = ?
        ORDER BY ordinal_position`, table)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	cols, err := scanColumns(cr)
	if err != nil {
		return nil, err
	}
	err = markPrimaryKey(ctx, q, cols, `
        SELECT k.column_name, k.ordinal_position
        FROM information_schema.key_column_usage k
        JOIN information_schema.table_constraints tc
          ON k.constraint_name = tc.constraint_name
         AND k.table_schema = tc.table_schema
         AND k.table_name = tc.table_name
        WHERE tc.constraint_type = 'PRIMARY KEY'
          AND k.table_schema = DATABASE() AND k.table_name = ?`, table)
	return cols, err
}

func (mysqlDialect) Quote(ident string) string { return quoteWith(ident, "`", "`") }

func (mysqlDialect) Placeholder(int) string { return "?" }

func (mysqlDialect) Limit(n int) (string, string) { return "", fmt.Sprintf("LIMIT %d", n) }

func (mysqlDialect) Engines(ctx context.Context, q db.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
        SELECT engine
        FROM information_schema.engines
        WHERE support IN ('YES', 'DEFAULT')
        ORDER BY engine`)
	if err != nil {
		return nil, fmt.Errorf("query engines: %w", err)
	}
	return scanNames(rows)
}

func (mysqlDialect) TableStatus(ctx context.Context, q db.Queryer, table string) (string, string, error) {
	var engine, collation sql.NullString
	err := q.QueryRowContext(ctx, `
        SELECT engine, table_collation
        FROM information_schema.tables
        WHERE table_schema = DATABASE() AND table_name = ?`, table).Scan(&engine, &collation)
	if err != nil {
		return "", "", fmt.Errorf("table status for %s: %w", table, err)
	}
	return engine.String, collation.String, nil
}

func (d mysqlDialect) AlterEngine(ctx context.Context, q db.Queryer, table, engine string) error {
	if err := validName("engine", engine); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s ENGINE = %s", d.Quote(table), engine))
	return err
}

func (d mysqlDialect) AlterCollation(ctx context.Context, q db.Queryer, table, collation string) error {
	if err := validName("collation", collation); err != nil {
		return err
	}
	_, err := q.ExecContext(ctx, fmt.Sprintf("ALTER TABLE %s CONVERT TO CHARACTER SET %s COLLATE %s",
		d.Quote(table), CharsetOf(collation), collation))
	return err
}

// CharsetOf derives the character set from a collation name
// (utf8mb4_unicode_ci -> utf8mb4).
func CharsetOf(collation string) string {
	if i := strings.IndexByte(collation, '_'); i > 0 {
		return collation[:i]
	}
	return collation
}

func init() {
	db.Register("mysql", mysqlDialect{})
	db.Register("mariadb", mysqlDialect{})
}
