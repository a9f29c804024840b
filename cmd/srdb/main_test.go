package main

import (
	"flag"
	"io"
	"reflect"
	"testing"

	"srdb/pkg/config"
)

func TestParseFlags(t *testing.T) {
	var tests = []struct {
		name    string
		args    []string
		verbose bool
	}{
		{"default verbose", []string{"-s", "a"}, true},
		{"short flag with separate false", []string{"-v", "false", "-s", "a"}, false},
		{"long flag with equals", []string{"-verbose=0", "-s", "a"}, false},
		{"explicit true", []string{"-v", "true"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("srdb", flag.ContinueOnError)
			o, _, err := parseFlags(fs, tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if o.verbose != tt.verbose {
				t.Errorf("\ngot verbose=%v, wanted %v", o.verbose, tt.verbose)
			}
			if rest := fs.Args(); len(rest) != 0 {
				t.Errorf("\ngot stray arguments %q", rest)
			}
		})
	}
}

func TestParseFlagsRejectsBadVerbose(t *testing.T) {
	fs := flag.NewFlagSet("srdb", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if _, _, err := parseFlags(fs, []string{"-v", "maybe"}); err == nil {
		t.Errorf("\n-v maybe was accepted")
	}
}

func TestApplyOverlaysGivenFlags(t *testing.T) {
	fs := flag.NewFlagSet("srdb", flag.ContinueOnError)
	o, set, err := parseFlags(fs, []string{"-s", `["a","b"]`, "-r", "c", "-z", "-x", "guid"})
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.AppConfig{Run: config.RunConfig{Tables: []string{"wp_posts"}, PageSize: 10}}
	apply(&cfg, o, set)

	if want := (config.StringList{"a", "b"}); !reflect.DeepEqual(cfg.Run.Search, want) {
		t.Errorf("\ngot search %q, wanted %q", cfg.Run.Search, want)
	}
	if !cfg.Run.DryRun || cfg.Run.PageSize != 10 || !reflect.DeepEqual(cfg.Run.Tables, []string{"wp_posts"}) {
		t.Errorf("\nflags not given should keep the file's values, got %+v", cfg.Run)
	}
	if !reflect.DeepEqual(cfg.Run.ExcludeColumns, []string{"guid"}) || cfg.Log.Format != "text" {
		t.Errorf("\ngot %+v / %+v", cfg.Run, cfg.Log)
	}
}
