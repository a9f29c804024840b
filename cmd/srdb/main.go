package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"srdb/internal/logger"
	"srdb/internal/render"
	"srdb/internal/report"
	"srdb/internal/runner"
	"srdb/pkg/config"
)

type options struct {
	cfgPath  string
	driver   string
	dsn      string
	host     string
	port     int
	name     string
	user     string
	pass     string
	charset  string
	search   string
	replace  string
	tables   string
	exclude  string
	include  string
	excols   string
	regex    bool
	pageSize int
	dryRun   bool
	engine   string
	coll     string
	verbose  bool
	debug    bool
	format   string
	timeout  int
}

// verboseValue is a boolean flag that takes its value as a separate
// argument, so both -v false and -v=false turn verbose output off.
type verboseValue bool

func (v *verboseValue) String() string {
	if v == nil {
		return "true"
	}
	return strconv.FormatBool(bool(*v))
}

func (v *verboseValue) Set(s string) error {
	b, err := strconv.ParseBool(s)
	if err != nil {
		return fmt.Errorf("want true or false, got %q", s)
	}
	*v = verboseValue(b)
	return nil
}

func parseFlags(fs *flag.FlagSet, args []string) (options, map[string]bool, error) {
	// both names share one variable, e.g. -s and -search
	stringFlag := func(p *string, long, short, value, usage string) {
		fs.StringVar(p, long, value, usage)
		if short != "" {
			fs.StringVar(p, short, value, "shorthand for -"+long)
		}
	}
	boolFlag := func(p *bool, long, short string, value bool, usage string) {
		fs.BoolVar(p, long, value, usage)
		if short != "" {
			fs.BoolVar(p, short, value, "shorthand for -"+long)
		}
	}

	o := options{verbose: true}
	fs.StringVar(&o.cfgPath, "config", "", "path to a YAML or TOML config file")
	fs.StringVar(&o.driver, "driver", "", "database type (mysql,postgres,sqlite,sqlserver,godror), default mysql")
	fs.StringVar(&o.dsn, "dsn", "", "dsn override")
	stringFlag(&o.host, "host", "h", "", "database host")
	fs.IntVar(&o.port, "port", 0, "database port")
	stringFlag(&o.name, "name", "n", "", "database name (file path for sqlite)")
	stringFlag(&o.user, "user", "u", "", "database user")
	stringFlag(&o.pass, "pass", "p", "", "database password")
	stringFlag(&o.charset, "char", "c", "", "connection character set")
	stringFlag(&o.search, "search", "s", "", "value to search for, or a JSON array of values")
	stringFlag(&o.replace, "replace", "r", "", "replacement, or a JSON array paired with -search")
	stringFlag(&o.tables, "tables", "t", "", "comma separated tables to process (default all)")
	stringFlag(&o.exclude, "exclude-tables", "w", "", "comma separated tables to skip")
	stringFlag(&o.include, "include-cols", "i", "", "comma separated columns to process (default all)")
	stringFlag(&o.excols, "exclude-cols", "x", "", "comma separated columns to skip")
	boolFlag(&o.regex, "regex", "g", false, "treat search values as regular expressions")
	fs.IntVar(&o.pageSize, "pagesize", config.DefaultPageSize, "rows fetched per page")
	fs.IntVar(&o.pageSize, "l", config.DefaultPageSize, "shorthand for -pagesize")
	boolFlag(&o.dryRun, "dry-run", "z", false, "count changes without writing them")
	stringFlag(&o.engine, "alter-engine", "e", "", "convert tables to this storage engine (mysql)")
	stringFlag(&o.coll, "alter-collation", "a", "", "convert tables to this collation (mysql)")
	fs.Var((*verboseValue)(&o.verbose), "verbose", "print a line per table (true or false)")
	fs.Var((*verboseValue)(&o.verbose), "v", "shorthand for -verbose")
	fs.BoolVar(&o.debug, "debug", false, "log every changed value")
	fs.StringVar(&o.format, "format", "", "report format: text, json or log")
	fs.IntVar(&o.timeout, "timeout", 10, "db connect timeout seconds")
	if err := fs.Parse(args); err != nil {
		return o, nil, err
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	return o, set, nil
}

// apply overlays the flags that were given on top of the config file.
func apply(cfg *config.AppConfig, o options, set map[string]bool) {
	given := func(names ...string) bool {
		for _, n := range names {
			if set[n] {
				return true
			}
		}
		return false
	}

	db := &cfg.Database
	if o.dsn != "" {
		db.DSN = o.dsn
		db.Host, db.Port, db.Username, db.Password, db.DatabaseName = "", 0, "", "", ""
	}
	db.Type = cmpOr(o.driver, db.Type)
	db.Host = cmpOr(o.host, db.Host)
	db.Port = cmpOr(o.port, db.Port)
	db.DatabaseName = cmpOr(o.name, db.DatabaseName)
	db.Username = cmpOr(o.user, db.Username)
	db.Password = cmpOr(o.pass, db.Password)
	db.Charset = cmpOr(o.charset, db.Charset)

	run := &cfg.Run
	if given("search", "s") {
		run.Search = config.ParseStringList(o.search)
	}
	if given("replace", "r") {
		run.Replace = config.ParseStringList(o.replace)
	}
	if given("tables", "t") {
		run.Tables = config.SplitList(o.tables)
	}
	if given("exclude-tables", "w") {
		run.ExcludeTables = config.SplitList(o.exclude)
	}
	if given("include-cols", "i") {
		run.IncludeColumns = config.SplitList(o.include)
	}
	if given("exclude-cols", "x") {
		run.ExcludeColumns = config.SplitList(o.excols)
	}
	if given("regex", "g") {
		run.Regex = o.regex
	}
	if given("pagesize", "l") {
		run.PageSize = o.pageSize
	}
	if given("dry-run", "z") {
		run.DryRun = o.dryRun
	}
	run.AlterEngine = cmpOr(o.engine, run.AlterEngine)
	run.AlterCollation = cmpOr(o.coll, run.AlterCollation)

	if o.debug {
		cfg.Log.Level = "debug"
	}
	cfg.Log.Format = cmpOr(o.format, cfg.Log.Format, "text")
}

func sink(cfg config.AppConfig, verbose bool) report.Sink {
	switch cfg.Log.Format {
	case "json":
		return render.NewJSON(os.Stdout)
	case "log":
		return render.NewText(os.Stderr)
	}
	if !verbose {
		return report.Discard
	}
	return render.NewConsole(os.Stdout, cfg.Run.DryRun)
}

func main() {
	o, set, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	var appCfg config.AppConfig
	if o.cfgPath != "" {
		logger.Debug("config file %s", o.cfgPath)
		c, err := config.LoadFile(o.cfgPath)
		if err != nil {
			logger.Fatal("error reading config file: %v", err)
		}
		appCfg = c
	}
	apply(&appCfg, o, set)

	if appCfg.Log.Level != "" {
		level, ok := logger.ParseLevel(appCfg.Log.Level)
		if !ok {
			logger.Fatal("unknown log level %q", appCfg.Log.Level)
		}
		logger.SetLevel(level)
	}

	opts := runner.Options{
		Sink:    sink(appCfg, o.verbose),
		Timeout: time.Duration(o.timeout) * time.Second,
	}
	if logger.Enabled(logger.LevelDebug) {
		opts.OnChange = func(c report.RowChange) {
			logger.Debug("%s %v %s: %q -> %q", c.Table, c.Key, c.Column, c.Old, c.New)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := runner.Run(ctx, appCfg, opts)
	if err != nil {
		logger.Debug("run stopped: %v", err)
	}

	if o.verbose && appCfg.Log.Format == "text" {
		fmt.Println()
	}
	if err == nil && res.Success() {
		fmt.Println("And we're done!")
		return
	}
	fmt.Println("Check the output for errors. You may need to ensure verbose output is on by using -v or -verbose.")
	stop()
	os.Exit(1)
}
