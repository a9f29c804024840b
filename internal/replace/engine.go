package replace

import (
	"context"
	"fmt"
	"strings"
	"time"

	"srdb/internal/db"
	"srdb/internal/introspect"
	"srdb/internal/logger"
	"srdb/internal/report"
	"srdb/internal/scan"
)

// Engine runs a search/replace over the tables of one connection.
type Engine struct {
	Conn   *db.Conn
	Sink   report.Sink
	Errors *report.ErrorLog

	// Now defaults to time.Now.
	Now func() time.Time

	// OnChange, if set, sees every changed value, dry run or not.
	OnChange func(report.RowChange)
}

func (e *Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Run applies spec to every selected table in lexical order, reading
// pageSize rows at a time. With dryRun set it counts changes without
// writing them.
//
// Per-table failures are recorded in Errors and the run moves on to the
// next table. Run returns an error only when spec is invalid, in which case
// nothing is touched, or when ctx is cancelled; the partial report is still
// returned in the latter case.
func (e *Engine) Run(ctx context.Context, spec Spec, filter introspect.Filter, pageSize int, dryRun bool) (*report.RunReport, error) {
	r, err := Compile(spec)
	if err != nil {
		return nil, err
	}
	if pageSize <= 0 {
		return nil, report.Errorf(report.CategoryConfig, "", "page size must be positive, got %d", pageSize)
	}
	if e.Errors == nil {
		e.Errors = report.NewErrorLog()
	}
	em := report.NewEmitter(e.Sink, e.Errors)
	run := report.NewRunReport(e.now(), dryRun)

	finish := func() {
		run.End = e.now()
		em.CheckElapsed("run", run.Start, run.End)
		em.Emit(report.Event{Kind: report.KindRunEnd, RunReport: run, Search: spec.Searches(), Replace: spec.Replaces()})
	}

	if err := ctx.Err(); err != nil {
		return run, e.interrupted(em, finish, err)
	}
	existing, err := e.Conn.Tables(ctx)
	if err != nil {
		em.Fail(err)
		finish()
		return run, nil
	}
	tables, missing := filter.SelectTables(existing)
	for _, name := range missing {
		em.Fail(report.Errorf(report.CategorySchema, name, "table does not exist"))
	}
	logger.Debug("%d tables selected", len(tables))

	for _, name := range tables {
		if err := ctx.Err(); err != nil {
			return run, e.interrupted(em, finish, err)
		}
		tr, err := e.table(ctx, em, r, filter, name, pageSize, dryRun)
		run.Add(tr)
		if err != nil {
			return run, e.interrupted(em, finish, err)
		}
	}
	finish()
	return run, nil
}

func (e *Engine) interrupted(em *report.Emitter, finish func(), err error) error {
	ierr := report.Wrap(report.CategoryInterrupted, "", fmt.Errorf("run cancelled: %w", err))
	em.Fail(ierr)
	finish()
	return ierr
}

// table processes one table. It returns an error only on cancellation;
// everything else, a failed UPDATE included, is recorded and ends the table
// early.
func (e *Engine) table(ctx context.Context, em *report.Emitter, r *Replacer, filter introspect.Filter, name string, pageSize int, dryRun bool) (report.TableReport, error) {
	tr := report.TableReport{Table: name, Start: e.now()}
	em.Emit(report.Event{Kind: report.KindTableStart, Table: name, Search: r.spec.Searches(), Replace: r.spec.Replaces()})

	end := func() report.TableReport {
		tr.End = e.now()
		em.CheckElapsed(name, tr.Start, tr.End)
		done := tr
		em.Emit(report.Event{Kind: report.KindTableEnd, Table: name, TableReport: &done})
		return tr
	}

	t, err := e.Conn.Describe(ctx, name)
	if err != nil {
		em.Fail(err)
		return end(), nil
	}
	var cols []introspect.Column
	for _, c := range filter.SelectColumns(t) {
		if c.Searchable() {
			cols = append(cols, c)
		}
	}
	cur, err := scan.Open(e.Conn, t, cols, pageSize)
	if err != nil {
		em.Fail(err)
		return end(), nil
	}

	for !cur.Done() {
		if err := ctx.Err(); err != nil {
			return end(), err
		}
		rows, err := cur.Next(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return end(), ctx.Err()
			}
			em.Fail(err)
			return end(), nil
		}
		for _, row := range rows {
			tr.Rows++
			changed := e.row(r, name, cur.Columns(), row)
			if len(changed) == 0 {
				continue
			}
			tr.Changes += int64(len(changed))
			if dryRun {
				continue
			}
			// a page in progress is finished even if ctx is cancelled meanwhile
			if err := e.update(context.WithoutCancel(ctx), name, cur.Key(), row.Key, changed); err != nil {
				em.Fail(err)
				return end(), nil
			}
			tr.Updates++
		}
	}
	return end(), nil
}

type assignment struct {
	column string
	value  interface{}
}

// row transforms the text values of row and returns the columns to set.
func (e *Engine) row(r *Replacer, table string, columns []string, row scan.Row) []assignment {
	var out []assignment
	seen := map[string]bool{}
	for i, v := range row.Values {
		col := columns[i]
		if seen[col] {
			continue
		}
		seen[col] = true
		var in []byte
		switch val := v.(type) {
		case string:
			in = []byte(val)
		case []byte:
			in = val
		default:
			continue
		}
		res := r.Transform(in)
		if !res.Changed {
			continue
		}
		var nv interface{} = res.Value
		if _, ok := v.(string); ok {
			nv = string(res.Value)
		}
		out = append(out, assignment{column: col, value: nv})
		if e.OnChange != nil {
			e.OnChange(report.RowChange{
				Table:      table,
				Key:        row.Key,
				Column:     col,
				Old:        in,
				New:        res.Value,
				Matched:    true,
				Serialized: res.Serialized,
				Repaired:   res.Repaired,
			})
		}
	}
	return out
}

// update writes one row, located by the key it was read with.
func (e *Engine) update(ctx context.Context, table string, key []string, keyVals []interface{}, set []assignment) error {
	d := e.Conn.Dialect
	var sets, where []string
	var args []interface{}
	n := 1
	for _, a := range set {
		sets = append(sets, fmt.Sprintf("%s = %s", d.Quote(a.column), d.Placeholder(n)))
		args = append(args, a.value)
		n++
	}
	for i, k := range key {
		where = append(where, fmt.Sprintf("%s = %s", d.Quote(k), d.Placeholder(n)))
		args = append(args, keyVals[i])
		n++
	}
	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s",
		d.Quote(table), strings.Join(sets, ", "), strings.Join(where, " AND "))
	if _, err := e.Conn.DB.ExecContext(ctx, query, args...); err != nil {
		return report.Wrap(report.CategoryQuery, table, fmt.Errorf("update row %v: %w", keyVals, err))
	}
	return nil
}
