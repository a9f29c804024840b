// Package dialects registers a db.Dialect for every supported server.
// Import it for its side effects.
package dialects

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"srdb/internal/db"
	"srdb/internal/introspect"
)

var identRe = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// validName guards engine and collation names, which cannot be bound as
// arguments in ALTER statements.
func validName(kind, name string) error {
	if !identRe.MatchString(name) {
		return fmt.Errorf("invalid %s name %q", kind, name)
	}
	return nil
}

// quoteWith wraps ident in open/close, doubling any embedded close rune.
func quoteWith(ident, open, close string) string {
	return open + strings.ReplaceAll(ident, close, close+close) + close
}

// scanNames reads a single string column.
func scanNames(rows *sql.Rows) ([]string, error) {
	defer rows.Close()
	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// markPrimaryKey runs a query returning (column name, position) pairs and
// flags the matching columns.
func markPrimaryKey(ctx context.Context, q db.Queryer, cols []introspect.Column, query string, args ...interface{}) error {
	pkr, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query primary key: %w", err)
	}
	defer pkr.Close()
	for pkr.Next() {
		var pkcol string
		var pos int
		if err := pkr.Scan(&pkcol, &pos); err != nil {
			return fmt.Errorf("scan primary key: %w", err)
		}
		for j := range cols {
			if cols[j].Name == pkcol {
				cols[j].PK = true
				cols[j].PKOrder = pos
			}
		}
	}
	return pkr.Err()
}

// scanColumns reads (name, type, nullable) rows.
func scanColumns(rows *sql.Rows) ([]introspect.Column, error) {
	defer rows.Close()
	var cols []introspect.Column
	for rows.Next() {
		var col introspect.Column
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}
		cols = append(cols, col)
	}
	return cols, rows.Err()
}
