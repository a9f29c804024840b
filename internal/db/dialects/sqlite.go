package dialects

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"srdb/internal/db"
	"srdb/internal/introspect"
)

// sqliteDialect implements Dialect for SQLite.
type sqliteDialect struct{}

func (sqliteDialect) Tables(ctx context.Context, q db.Queryer) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
	    SELECT name
		FROM sqlite_master
		WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
		ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	return scanNames(rows)
}

func (sqliteDialect) Columns(ctx context.Context, q db.Queryer, table string) ([]introspect.Column, error) {
	tiQuery := fmt.Sprintf("PRAGMA table_info('%s')", strings.ReplaceAll(table, "'", "''"))
	pr, err := q.QueryContext(ctx, tiQuery)
	if err != nil {
		return nil, fmt.Errorf("query columns for %s: %w", table, err)
	}
	defer pr.Close()

	var cols []introspect.Column
	for pr.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := pr.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return nil, fmt.Errorf("scan column for %s: %w", table, err)
		}
		cols = append(cols, introspect.Column{
			Name:     name,
			Type:     ctype,
			Nullable: notnull == 0,
			PK:       pk != 0,
			PKOrder:  pk,
		})
	}
	return cols, pr.Err()
}

func (sqliteDialect) Quote(ident string) string { return quoteWith(ident, `"`, `"`) }

func (sqliteDialect) Placeholder(int) string { return "?" }

func (sqliteDialect) Limit(n int) (string, string) { return "", fmt.Sprintf("LIMIT %d", n) }

func init() {
	db.Register("sqlite3", sqliteDialect{})
	db.Register("sqlite", sqliteDialect{})
}
