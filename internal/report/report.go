// Package report holds the run and table reports, the error log and the
// event stream handed to whatever renders a run.
package report

import (
	"time"
)

// TableReport summarises one table.
type TableReport struct {
	Table   string    `json:"table"`
	Rows    int64     `json:"rows"`
	Changes int64     `json:"change"`
	Updates int64     `json:"updates"`
	Start   time.Time `json:"start"`
	End     time.Time `json:"end"`

	// Converted is set by maintenance runs only.
	Converted bool `json:"converted,omitempty"`
}

// Elapsed returns End-Start. A negative result is returned as is.
func (r TableReport) Elapsed() time.Duration {
	return r.End.Sub(r.Start)
}

// RunReport summarises a whole run.
type RunReport struct {
	Tables  []TableReport `json:"-"`
	Rows    int64         `json:"rows"`
	Changes int64         `json:"change"`
	Updates int64         `json:"updates"`
	Start   time.Time     `json:"start"`
	End     time.Time     `json:"end"`
	DryRun  bool          `json:"dry_run"`

	// Converted maps table name to whether its ALTER succeeded.
	Converted map[string]bool `json:"converted,omitempty"`
}

// NewRunReport starts a report at start.
func NewRunReport(start time.Time, dryRun bool) *RunReport {
	return &RunReport{Start: start, DryRun: dryRun, Converted: map[string]bool{}}
}

// TableCount is the number of tables processed.
func (r *RunReport) TableCount() int {
	return len(r.Tables)
}

// Add appends a finished table report and folds its counts in.
func (r *RunReport) Add(t TableReport) {
	r.Tables = append(r.Tables, t)
	r.Rows += t.Rows
	r.Changes += t.Changes
	r.Updates += t.Updates
}

// SetConverted records the outcome of a maintenance operation.
func (r *RunReport) SetConverted(table string, ok bool) {
	if r.Converted == nil {
		r.Converted = map[string]bool{}
	}
	r.Converted[table] = ok
	r.Tables = append(r.Tables, TableReport{Table: table, Converted: ok})
}

// Elapsed returns End-Start. A negative result is returned as is.
func (r *RunReport) Elapsed() time.Duration {
	return r.End.Sub(r.Start)
}

// RowChange describes one rewritten column value.
type RowChange struct {
	Table      string
	Key        []interface{}
	Column     string
	Old        []byte
	New        []byte
	Matched    bool
	Serialized bool // value went through the codec
	Repaired   bool // codec had to re-derive stale string lengths
}
