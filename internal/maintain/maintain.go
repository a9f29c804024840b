// Package maintain converts tables to another storage engine or collation,
// one ALTER per table.
package maintain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"srdb/internal/db"
	"srdb/internal/introspect"
	"srdb/internal/logger"
	"srdb/internal/report"
)

var validName = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

type target int

const (
	engine target = iota
	collation
)

func (t target) String() string {
	if t == collation {
		return "collation"
	}
	return "engine"
}

func (t target) kind() report.Kind {
	if t == collation {
		return report.KindCollationConverted
	}
	return report.KindEngineConverted
}

// Maintenance alters tables on one connection.
type Maintenance struct {
	Conn   *db.Conn
	Sink   report.Sink
	Errors *report.ErrorLog

	// Now defaults to time.Now.
	Now func() time.Time
}

func (m *Maintenance) now() time.Time {
	if m.Now != nil {
		return m.Now()
	}
	return time.Now()
}

// AlterEngine converts every selected table to engine. The engine must be
// one the server supports; that is checked before any table is touched.
func (m *Maintenance) AlterEngine(ctx context.Context, filter introspect.Filter, name string) (*report.RunReport, error) {
	return m.convert(ctx, filter, engine, name)
}

// AlterCollation converts every selected table, and the character set the
// collation belongs to, to collation.
func (m *Maintenance) AlterCollation(ctx context.Context, filter introspect.Filter, name string) (*report.RunReport, error) {
	return m.convert(ctx, filter, collation, name)
}

func (m *Maintenance) convert(ctx context.Context, filter introspect.Filter, t target, name string) (*report.RunReport, error) {
	if !validName.MatchString(name) {
		return nil, report.Errorf(report.CategoryConfig, "", "invalid %s name %q", t, name)
	}
	mt, ok := m.Conn.Maintainer()
	if !ok {
		return nil, report.Errorf(report.CategoryConfig, "", "%s databases do not support changing the %s", m.Conn.Driver, t)
	}
	if t == engine {
		if err := m.checkEngine(ctx, mt, name); err != nil {
			return nil, err
		}
	}
	if m.Errors == nil {
		m.Errors = report.NewErrorLog()
	}
	em := report.NewEmitter(m.Sink, m.Errors)
	run := report.NewRunReport(m.now(), false)

	finish := func() {
		run.End = m.now()
		em.CheckElapsed("run", run.Start, run.End)
		em.Emit(report.Event{Kind: report.KindRunEnd, RunReport: run})
	}

	existing, err := m.Conn.Tables(ctx)
	if err != nil {
		em.Fail(err)
		finish()
		return run, nil
	}
	tables, missing := filter.SelectTables(existing)
	for _, table := range missing {
		em.Fail(report.Errorf(report.CategorySchema, table, "table does not exist"))
		m.record(em, run, t, table, name, false)
	}

	for _, table := range tables {
		if err := ctx.Err(); err != nil {
			ierr := report.Wrap(report.CategoryInterrupted, "", fmt.Errorf("run cancelled: %w", err))
			em.Fail(ierr)
			finish()
			return run, ierr
		}
		m.record(em, run, t, table, name, m.alterOne(ctx, em, mt, t, table, name))
	}
	finish()
	return run, nil
}

func (m *Maintenance) checkEngine(ctx context.Context, mt db.Maintainer, name string) error {
	engines, err := mt.Engines(ctx, m.Conn.DB)
	if err != nil {
		return report.Wrap(report.CategoryQuery, "", fmt.Errorf("list engines: %w", err))
	}
	for _, e := range engines {
		if strings.EqualFold(e, name) {
			return nil
		}
	}
	return report.Errorf(report.CategoryConfig, "", "engine %s is not supported by the server (available: %s)",
		name, strings.Join(engines, ", "))
}

// alterOne converts a single table and reports whether it ends up in the
// wanted state. Tables already there are left alone.
func (m *Maintenance) alterOne(ctx context.Context, em *report.Emitter, mt db.Maintainer, t target, table, name string) bool {
	curEngine, curCollation, err := mt.TableStatus(ctx, m.Conn.DB, table)
	if err != nil {
		em.Fail(report.Wrap(report.CategoryQuery, table, err))
		return false
	}
	current := curEngine
	if t == collation {
		current = curCollation
	}
	if strings.EqualFold(current, name) {
		logger.Debug("%s: %s is already %s", table, t, name)
		return true
	}

	if t == collation {
		err = mt.AlterCollation(ctx, m.Conn.DB, table, name)
	} else {
		err = mt.AlterEngine(ctx, m.Conn.DB, table, name)
	}
	if err != nil {
		em.Fail(report.Wrap(report.CategoryQuery, table, fmt.Errorf("alter %s: %w", t, err)))
		return false
	}
	return true
}

func (m *Maintenance) record(em *report.Emitter, run *report.RunReport, t target, table, name string, ok bool) {
	run.SetConverted(table, ok)
	ev := report.Event{Kind: t.kind(), Table: table, RunReport: run, TableReport: &report.TableReport{Table: table, Converted: ok}}
	if t == collation {
		ev.Collation = name
	} else {
		ev.Engine = name
	}
	em.Emit(ev)
}
