package db

import (
	"context"
	"errors"
	"testing"
	"time"

	"srdb/internal/introspect"
	"srdb/internal/report"
)

var testdialect string = "testdialect"

type testDialect struct{}

func (testDialect) Tables(ctx context.Context, q Queryer) ([]string, error) {
	return nil, errors.New("not implemented")
}

func (testDialect) Columns(ctx context.Context, q Queryer, table string) ([]introspect.Column, error) {
	return nil, nil
}

func (testDialect) Quote(ident string) string { return ident }

func (testDialect) Placeholder(int) string { return "?" }

func (testDialect) Limit(n int) (string, string) { return "", "" }

func TestRegister(t *testing.T) {
	// tests both Register and RegisteredDialects because they take the same setup

	Register(testdialect, testDialect{})

	if _, ok := dialects[testdialect]; !ok {
		t.Errorf("\ndialect %v not registered correctly in %v", testdialect, dialects)
	}

	rd := RegisteredDialects()

	if !(len(rd) == 1 && rd[0] == testdialect) {
		t.Errorf("\nRegisteredDialects returned unexpected result %v", rd)
	}
}

func TestOpen(t *testing.T) {

	var tests = []struct {
		name          string
		dialect       string
		dsn           string
		registerFirst bool
		errIsNil      bool
	}{
		{"unregistered dialect", "nosuchdialect", "", false, false},
		{"sqlite with testDialect", "sqlite", ":memory:", true, true},
	}

	for _, tt := range tests {
		// Use t.Run to run each case as a subtest with a descriptive name
		t.Run(tt.name, func(t *testing.T) {
			if tt.registerFirst {
				Register(tt.dialect, testDialect{})
			}

			conn, err := Open(context.Background(), tt.dialect, tt.dsn, 10*time.Second)

			if (err == nil) != tt.errIsNil {
				if tt.errIsNil {
					t.Errorf("\ngot unexpected error: \"%v\"", err)
				} else {
					t.Errorf("\nexpected an error, did not receive one")
				}
			}
			if err != nil && report.CategoryOf(err) != report.CategoryConnection {
				t.Errorf("\ngot category %q, wanted connection", report.CategoryOf(err))
			}
			if conn != nil {
				conn.Close()
			}
		})
	}
}

func TestDescribeMissingTable(t *testing.T) {
	Register("sqlite", testDialect{})
	conn, err := Open(context.Background(), "sqlite", ":memory:", 10*time.Second)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer conn.Close()

	_, err = conn.Describe(context.Background(), "nope")
	if report.CategoryOf(err) != report.CategorySchema {
		t.Errorf("\ngot %v, wanted a schema error", err)
	}
	if _, ok := conn.Maintainer(); ok {
		t.Errorf("\ntest dialect should not support maintenance")
	}
}
