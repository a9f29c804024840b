package report

import (
	"errors"
	"fmt"
	"sync"
)

// Category groups errors the way the run treats them.
type Category string

const (
	// CategoryConfig errors are fatal before any table is touched.
	CategoryConfig Category = "config"
	// CategoryConnection errors abort the whole run.
	CategoryConnection Category = "connection"
	// CategorySchema errors abort one table.
	CategorySchema Category = "schema"
	// CategoryQuery errors abort one table, or fail one conversion.
	CategoryQuery Category = "query"
	// CategoryInterrupted marks a run cancelled between pages or tables.
	CategoryInterrupted Category = "interrupted"
	// CategoryTiming records clock anomalies. It does not affect results.
	CategoryTiming Category = "timing"
)

// AffectsResults reports whether errors of this category mean the run did
// not do everything it was asked to.
func (c Category) AffectsResults() bool {
	return c != CategoryTiming
}

// Error is an error tagged with its category and, when known, the table.
type Error struct {
	Category Category
	Table    string
	Err      error
}

func (e *Error) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Table, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Category, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Errorf builds an *Error from a format string.
func Errorf(c Category, table string, format string, args ...interface{}) *Error {
	return &Error{Category: c, Table: table, Err: fmt.Errorf(format, args...)}
}

// Wrap tags err with a category unless it already carries one.
func Wrap(c Category, table string, err error) *Error {
	var re *Error
	if errors.As(err, &re) {
		return re
	}
	return &Error{Category: c, Table: table, Err: err}
}

// CategoryOf returns the category of err, or "" if it has none.
func CategoryOf(err error) Category {
	var re *Error
	if errors.As(err, &re) {
		return re.Category
	}
	return ""
}

// Entry is one ErrorLog record.
type Entry struct {
	Category Category `json:"category"`
	Message  string   `json:"message"`
	Table    string   `json:"table,omitempty"`
}

// ErrorLog is an append-only list of errors collected during a run.
type ErrorLog struct {
	mu      sync.Mutex
	entries []Entry
}

// NewErrorLog returns an empty log.
func NewErrorLog() *ErrorLog {
	return &ErrorLog{}
}

// Append records an entry.
func (l *ErrorLog) Append(e Entry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, e)
}

// Record appends err, using its category if it has one.
func (l *ErrorLog) Record(err error) Entry {
	re := Wrap(CategoryQuery, "", err)
	e := Entry{Category: re.Category, Message: re.Err.Error(), Table: re.Table}
	l.Append(e)
	return e
}

// Entries returns a copy of all entries in insertion order.
func (l *ErrorLog) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// ResultErrors returns the entries that affect the run's outcome.
func (l *ErrorLog) ResultErrors() []Entry {
	var out []Entry
	for _, e := range l.Entries() {
		if e.Category.AffectsResults() {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of entries.
func (l *ErrorLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
