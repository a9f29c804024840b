// Package scan walks a table in primary key order using keyset pagination:
// each page asks for rows strictly after the last key seen, never for an
// offset, so rows inserted or deleted elsewhere during the walk cannot shift
// a row into a page twice or out of every page.
package scan

import (
	"context"
	"fmt"
	"strings"

	"srdb/internal/db"
	"srdb/internal/introspect"
	"srdb/internal/logger"
	"srdb/internal/report"
)

// Row is one fetched row. Key holds the primary key values as read, Values
// the requested columns in the order given to Open.
type Row struct {
	Key    []interface{}
	Values []interface{}
}

// Cursor fetches successive pages of a table.
type Cursor struct {
	conn     *db.Conn
	table    string
	key      []string
	columns  []string
	pageSize int

	last []interface{}
	done bool
	page int
}

// Open prepares a cursor over columns of t. The table must have a primary key.
func Open(conn *db.Conn, t introspect.Table, columns []introspect.Column, pageSize int) (*Cursor, error) {
	pk := t.PrimaryKey()
	if len(pk) == 0 {
		return nil, report.Errorf(report.CategorySchema, t.Name,
			"table has no primary key, changes to it have to be made manually")
	}
	if pageSize <= 0 {
		return nil, report.Errorf(report.CategoryConfig, t.Name, "page size must be positive, got %d", pageSize)
	}
	c := &Cursor{conn: conn, table: t.Name, pageSize: pageSize}
	for _, k := range pk {
		c.key = append(c.key, k.Name)
	}
	for _, col := range columns {
		c.columns = append(c.columns, col.Name)
	}
	return c, nil
}

// Columns returns the value column names in Row.Values order.
func (c *Cursor) Columns() []string { return c.columns }

// Key returns the primary key column names in Row.Key order.
func (c *Cursor) Key() []string { return c.key }

// Done reports whether the last page has been read.
func (c *Cursor) Done() bool { return c.done }

// Last returns the last key seen, nil before the first page.
func (c *Cursor) Last() []interface{} { return c.last }

// Next fetches the next page. It returns no rows once Done.
// The result set is closed before Next returns.
func (c *Cursor) Next(ctx context.Context) ([]Row, error) {
	if c.done {
		return nil, nil
	}
	query, args := BuildPageQuery(c.conn.Dialect, c.table, c.key, c.columns, c.last, c.pageSize)
	rows, err := c.conn.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, report.Wrap(report.CategoryQuery, c.table, fmt.Errorf("select page %d: %w", c.page+1, err))
	}
	defer rows.Close()

	width := len(c.key) + len(c.columns)
	var page []Row
	for rows.Next() {
		vals := make([]interface{}, width)
		ptrs := make([]interface{}, width)
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, report.Wrap(report.CategoryQuery, c.table, fmt.Errorf("scan page %d: %w", c.page+1, err))
		}
		page = append(page, Row{Key: vals[:len(c.key)], Values: vals[len(c.key):]})
	}
	if err := rows.Err(); err != nil {
		return nil, report.Wrap(report.CategoryQuery, c.table, fmt.Errorf("read page %d: %w", c.page+1, err))
	}

	c.page++
	if len(page) < c.pageSize {
		c.done = true
	}
	if len(page) > 0 {
		c.last = page[len(page)-1].Key
	}
	logger.Debug("%s: page %d, %d rows", c.table, c.page, len(page))
	return page, nil
}

// BuildPageQuery returns the statement and arguments for the page after
// last (nil for the first page), ordered by key ascending.
//
// A composite key (k1, k2) is compared as
// (k1 > ?) OR (k1 = ? AND k2 > ?), which every dialect understands.
func BuildPageQuery(d db.Dialect, table string, key, columns []string, last []interface{}, limit int) (string, []interface{}) {
	prefix, suffix := d.Limit(limit)

	var sel []string
	for _, k := range key {
		sel = append(sel, d.Quote(k))
	}
	for _, col := range columns {
		sel = append(sel, d.Quote(col))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte(' ')
	}
	b.WriteString(strings.Join(sel, ", "))
	b.WriteString(" FROM ")
	b.WriteString(d.Quote(table))

	var args []interface{}
	if last != nil {
		var or []string
		n := 1
		for i := range key {
			var and []string
			for j := 0; j < i; j++ {
				and = append(and, fmt.Sprintf("%s = %s", d.Quote(key[j]), d.Placeholder(n)))
				args = append(args, last[j])
				n++
			}
			and = append(and, fmt.Sprintf("%s > %s", d.Quote(key[i]), d.Placeholder(n)))
			args = append(args, last[i])
			n++
			or = append(or, "("+strings.Join(and, " AND ")+")")
		}
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(or, " OR "))
	}

	var order []string
	for _, k := range key {
		order = append(order, d.Quote(k))
	}
	b.WriteString(" ORDER BY ")
	b.WriteString(strings.Join(order, ", "))
	if suffix != "" {
		b.WriteByte(' ')
		b.WriteString(suffix)
	}
	return b.String(), args
}
