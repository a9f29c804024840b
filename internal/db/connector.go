package db

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"srdb/internal/introspect"
	"srdb/internal/logger"
	"srdb/internal/report"
	"srdb/pkg/config"
)

// Queryer is the subset of *sql.DB the dialects need.
type Queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

// Dialect hides the SQL differences between database servers.
type Dialect interface {

	// Tables lists the base tables of the connected schema in lexical order.
	Tables(ctx context.Context, q Queryer) ([]string, error)

	// Columns lists the columns of table in declared order, marking the
	// primary key and its column order.
	Columns(ctx context.Context, q Queryer, table string) ([]introspect.Column, error)

	// Quote quotes an identifier.
	Quote(ident string) string

	// Placeholder returns the bind marker for the n-th (1-based) argument.
	Placeholder(n int) string

	// Limit returns the text placed after SELECT and at the end of the
	// statement to cap a query at n rows.
	Limit(n int) (prefix, suffix string)
}

// Maintainer is implemented by dialects that can change a table's storage
// engine and collation.
type Maintainer interface {

	// Engines lists the storage engines the server accepts.
	Engines(ctx context.Context, q Queryer) ([]string, error)

	// TableStatus returns the current engine and collation of table.
	TableStatus(ctx context.Context, q Queryer, table string) (engine, collation string, err error)

	AlterEngine(ctx context.Context, q Queryer, table, engine string) error
	AlterCollation(ctx context.Context, q Queryer, table, collation string) error
}

var dialects = map[string]Dialect{}

// Register makes a Dialect available under name.
func Register(name string, d Dialect) {
	dialects[strings.ToLower(name)] = d
}

// listRegistered returns the registered dialect keys (for diagnostics).
func listRegistered() []string {
	keys := make([]string, 0, len(dialects))
	for k := range dialects {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// RegisteredDialects is a helper that allows main to print registered dialects
func RegisteredDialects() []string {
	return listRegistered()
}

// Lookup returns the dialect registered for driver.
func Lookup(driver string) (Dialect, error) {
	d, ok := dialects[config.NormalizeDriver(driver)]
	if !ok {
		return nil, fmt.Errorf("dialect not registered: %q (available: %v)", driver, listRegistered())
	}
	return d, nil
}

// Conn is the run's single database connection and its dialect.
type Conn struct {
	DB      *sql.DB
	Dialect Dialect
	Driver  string
}

// Open connects to the database and checks it answers within timeout.
// Every failure is a connection error.
func Open(ctx context.Context, driver, dsn string, timeout time.Duration) (*Conn, error) {
	driver = config.NormalizeDriver(driver)
	dialect, err := Lookup(driver)
	if err != nil {
		return nil, report.Wrap(report.CategoryConnection, "", err)
	}
	dbConn, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, report.Wrap(report.CategoryConnection, "", err)
	}
	// one connection: pages are read fully before updates are issued
	dbConn.SetMaxOpenConns(1)
	dbConn.SetConnMaxLifetime(0)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := dbConn.PingContext(pingCtx); err != nil {
		dbConn.Close()
		return nil, report.Wrap(report.CategoryConnection, "", fmt.Errorf("ping %s: %w", driver, err))
	}
	logger.Debug("connected using %s dialect", driver)
	return &Conn{DB: dbConn, Dialect: dialect, Driver: driver}, nil
}

// Close closes the underlying pool.
func (c *Conn) Close() error {
	return c.DB.Close()
}

// Tables lists the base tables of the connected schema.
func (c *Conn) Tables(ctx context.Context) ([]string, error) {
	names, err := c.Dialect.Tables(ctx, c.DB)
	if err != nil {
		return nil, report.Wrap(report.CategorySchema, "", fmt.Errorf("list tables: %w", err))
	}
	return names, nil
}

// Describe loads the columns of table and, where the dialect supports it,
// its engine and collation. A table without columns does not exist.
func (c *Conn) Describe(ctx context.Context, table string) (introspect.Table, error) {
	t := introspect.Table{Name: table}
	cols, err := c.Dialect.Columns(ctx, c.DB, table)
	if err != nil {
		return t, report.Wrap(report.CategorySchema, table, fmt.Errorf("query columns: %w", err))
	}
	if len(cols) == 0 {
		return t, report.Errorf(report.CategorySchema, table, "table does not exist")
	}
	t.Columns = cols
	if m, ok := c.Maintainer(); ok {
		engine, collation, err := m.TableStatus(ctx, c.DB, table)
		if err != nil {
			logger.Warn("table status for %s: %v", table, err)
		} else {
			t.Engine, t.Collation = engine, collation
		}
	}
	return t, nil
}

// Maintainer returns the dialect's maintenance support, if any.
func (c *Conn) Maintainer() (Maintainer, bool) {
	m, ok := c.Dialect.(Maintainer)
	return m, ok
}
