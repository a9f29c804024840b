// Package runner turns an AppConfig into one search/replace or maintenance
// run: it validates, connects, dispatches on the mode and collects the
// outcome.
package runner

import (
	"context"
	"time"

	"srdb/internal/db"
	_ "srdb/internal/db/dialects"
	"srdb/internal/introspect"
	"srdb/internal/logger"
	"srdb/internal/maintain"
	"srdb/internal/replace"
	"srdb/internal/report"
	"srdb/pkg/config"
)

// DefaultTimeout bounds the initial connection check.
const DefaultTimeout = 10 * time.Second

// Options are the parts of a run that are not configuration.
type Options struct {
	Sink     report.Sink
	OnChange func(report.RowChange)
	Timeout  time.Duration
	Now      func() time.Time
}

// Result is the outcome of a run.
type Result struct {
	Mode   config.Mode
	DryRun bool
	Report *report.RunReport
	Errors *report.ErrorLog
}

// Success reports whether the run counts as successful: a dry run always
// does, otherwise no result-affecting error may have been recorded.
func (r Result) Success() bool {
	return r.DryRun || len(r.Errors.ResultErrors()) == 0
}

// Run executes cfg. Errors that stop the run before or while connecting are
// returned as well as recorded; everything else is only recorded in
// Result.Errors.
func Run(ctx context.Context, cfg config.AppConfig, opts Options) (Result, error) {
	res := Result{Mode: cfg.Run.Mode(), DryRun: cfg.Run.DryRun, Errors: report.NewErrorLog()}
	em := report.NewEmitter(opts.Sink, res.Errors)
	fatal := func(c report.Category, err error) (Result, error) {
		rerr := report.Wrap(c, "", err)
		em.Fail(rerr)
		return res, rerr
	}

	if err := cfg.Run.Validate(); err != nil {
		return fatal(report.CategoryConfig, err)
	}
	driver, dsn, err := config.BuildDriverAndDSN(cfg.Database)
	if err != nil {
		return fatal(report.CategoryConfig, err)
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	conn, err := db.Open(ctx, driver, dsn, timeout)
	if err != nil {
		return fatal(report.CategoryConnection, err)
	}
	defer conn.Close()

	filter := introspect.Filter{
		Tables:         cfg.Run.Tables,
		ExcludeTables:  cfg.Run.ExcludeTables,
		Columns:        cfg.Run.IncludeColumns,
		ExcludeColumns: cfg.Run.ExcludeColumns,
	}
	logger.Debug("running %s on %s", res.Mode, driver)

	switch res.Mode {
	case config.ModeAlterEngine, config.ModeAlterCollation:
		m := &maintain.Maintenance{Conn: conn, Sink: opts.Sink, Errors: res.Errors, Now: opts.Now}
		if res.Mode == config.ModeAlterEngine {
			res.Report, err = m.AlterEngine(ctx, filter, cfg.Run.AlterEngine)
		} else {
			res.Report, err = m.AlterCollation(ctx, filter, cfg.Run.AlterCollation)
		}
	default:
		var pairs []config.Pair
		if pairs, err = cfg.Run.Pairs(); err != nil {
			return fatal(report.CategoryConfig, err)
		}
		spec := replace.Spec{Regex: cfg.Run.Regex}
		for _, p := range pairs {
			spec.Pairs = append(spec.Pairs, replace.Pair{Search: p.Search, Replace: p.Replace})
		}
		e := &replace.Engine{Conn: conn, Sink: opts.Sink, Errors: res.Errors, Now: opts.Now, OnChange: opts.OnChange}
		res.Report, err = e.Run(ctx, spec, filter, cfg.Run.EffectivePageSize(), cfg.Run.DryRun)
	}
	if err != nil && res.Report == nil {
		// rejected before any table was touched
		return fatal(report.CategoryConfig, err)
	}
	// interrupted, already recorded
	return res, err
}
