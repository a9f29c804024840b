package report

import (
	"errors"
	"testing"
	"time"
)

func TestRunReportAdd(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	r := NewRunReport(start, false)
	r.Add(TableReport{Table: "a", Rows: 10, Changes: 2, Updates: 2})
	r.Add(TableReport{Table: "b", Rows: 5, Changes: 1, Updates: 0})
	r.End = start.Add(3 * time.Second)

	if r.TableCount() != 2 || r.Rows != 15 || r.Changes != 3 || r.Updates != 2 {
		t.Errorf("\ngot tables=%d rows=%d change=%d updates=%d", r.TableCount(), r.Rows, r.Changes, r.Updates)
	}
	if r.Elapsed() != 3*time.Second {
		t.Errorf("\ngot elapsed %v", r.Elapsed())
	}
}

func TestNegativeElapsedIsKept(t *testing.T) {
	start := time.Date(2024, 1, 1, 0, 0, 10, 0, time.UTC)
	tr := TableReport{Start: start, End: start.Add(-2 * time.Second)}
	if tr.Elapsed() != -2*time.Second {
		t.Errorf("\ngot %v, wanted -2s", tr.Elapsed())
	}

	rec := &Recorder{}
	em := NewEmitter(rec, nil)
	em.CheckElapsed("table t", tr.Start, tr.End)
	entries := em.Errors.Entries()
	if len(entries) != 1 || entries[0].Category != CategoryTiming {
		t.Fatalf("\nexpected one timing entry, got %+v", entries)
	}
	if len(em.Errors.ResultErrors()) != 0 {
		t.Errorf("\ntiming anomalies must not affect results")
	}
	if kinds := rec.Kinds(); len(kinds) != 1 || kinds[0] != KindError {
		t.Errorf("\ngot events %v", kinds)
	}
}

func TestErrorCategories(t *testing.T) {
	var tests = []struct {
		name     string
		err      error
		category Category
	}{
		{"tagged", Errorf(CategorySchema, "t1", "no primary key"), CategorySchema},
		{"wrapped tagged", Wrap(CategoryQuery, "", Errorf(CategoryConfig, "", "bad")), CategoryConfig},
		{"plain", errors.New("boom"), ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CategoryOf(tt.err); got != tt.category {
				t.Errorf("\ngot %q, wanted %q", got, tt.category)
			}
		})
	}
}

func TestEmitterFail(t *testing.T) {
	rec := &Recorder{}
	em := NewEmitter(rec, NewErrorLog())
	em.Fail(Errorf(CategorySchema, "users", "table has no primary key"))
	em.Fail(errors.New("untagged"))

	entries := em.Errors.Entries()
	if len(entries) != 2 {
		t.Fatalf("\ngot %d entries", len(entries))
	}
	if entries[0].Table != "users" || entries[0].Category != CategorySchema {
		t.Errorf("\ngot %+v", entries[0])
	}
	if entries[1].Category != CategoryQuery {
		t.Errorf("\nuntagged errors default to query, got %q", entries[1].Category)
	}
	events := rec.Events()
	if events[0].Message != "users: table has no primary key" {
		t.Errorf("\ngot message %q", events[0].Message)
	}
}

func TestPairs(t *testing.T) {
	var tests = []struct {
		in   []string
		want string
	}{
		{nil, ""},
		{[]string{"a"}, "a"},
		{[]string{"a", "b", "c"}, "a or b or c"},
	}
	for _, tt := range tests {
		if got := Pairs(tt.in); got != tt.want {
			t.Errorf("\ngot %q, wanted %q", got, tt.want)
		}
	}
}
