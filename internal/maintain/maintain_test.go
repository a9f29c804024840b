package maintain

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"srdb/internal/db"
	_ "srdb/internal/db/dialects"
	"srdb/internal/introspect"
	"srdb/internal/report"
)

// fakeDialect adds maintenance to the sqlite dialect and records every
// ALTER instead of running it.
type fakeDialect struct {
	db.Dialect
	engines []string
	status  map[string][2]string
	fail    map[string]bool
	altered []string
}

func (f *fakeDialect) Engines(context.Context, db.Queryer) ([]string, error) {
	return f.engines, nil
}

func (f *fakeDialect) TableStatus(_ context.Context, _ db.Queryer, table string) (string, string, error) {
	s := f.status[table]
	return s[0], s[1], nil
}

func (f *fakeDialect) AlterEngine(_ context.Context, _ db.Queryer, table, engine string) error {
	if f.fail[table] {
		return errors.New("lock wait timeout exceeded")
	}
	f.altered = append(f.altered, table+":"+engine)
	return nil
}

func (f *fakeDialect) AlterCollation(_ context.Context, _ db.Queryer, table, collation string) error {
	if f.fail[table] {
		return errors.New("lock wait timeout exceeded")
	}
	f.altered = append(f.altered, table+":"+collation)
	return nil
}

func openTestConn(t *testing.T, fake *fakeDialect) *db.Conn {
	t.Helper()
	conn, err := db.Open(context.Background(), "sqlite", ":memory:", 5*time.Second)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	for _, s := range []string{
		`CREATE TABLE t2 (id INTEGER PRIMARY KEY)`,
		`CREATE TABLE t3 (id INTEGER PRIMARY KEY)`,
	} {
		if _, err := conn.DB.Exec(s); err != nil {
			t.Fatal(err)
		}
	}
	if fake != nil {
		fake.Dialect = conn.Dialect
		conn.Dialect = fake
	}
	return conn
}

func newFake() *fakeDialect {
	return &fakeDialect{
		engines: []string{"InnoDB", "MyISAM"},
		status: map[string][2]string{
			"t2": {"MyISAM", "latin1_swedish_ci"},
			"t3": {"InnoDB", "utf8mb4_unicode_ci"},
		},
		fail: map[string]bool{},
	}
}

func TestAlterEngine(t *testing.T) {
	fake := newFake()
	rec := &report.Recorder{}
	m := &Maintenance{Conn: openTestConn(t, fake), Sink: rec}

	run, err := m.AlterEngine(context.Background(), introspect.Filter{Tables: []string{"t1", "t2"}}, "InnoDB")
	if err != nil {
		t.Fatal(err)
	}
	if want := map[string]bool{"t1": false, "t2": true}; !reflect.DeepEqual(run.Converted, want) {
		t.Errorf("\ngot %v, wanted %v", run.Converted, want)
	}
	if want := []string{"t2:InnoDB"}; !reflect.DeepEqual(fake.altered, want) {
		t.Errorf("\ngot alters %v, wanted %v", fake.altered, want)
	}
	errs := m.Errors.Entries()
	if len(errs) != 1 || errs[0].Table != "t1" || errs[0].Category != report.CategorySchema {
		t.Errorf("\ngot errors %+v", errs)
	}
	want := []report.Kind{report.KindError, report.KindEngineConverted, report.KindEngineConverted, report.KindRunEnd}
	if !reflect.DeepEqual(rec.Kinds(), want) {
		t.Errorf("\ngot events %v, wanted %v", rec.Kinds(), want)
	}
	if ev := rec.Events()[2]; ev.Table != "t2" || ev.Engine != "InnoDB" || ev.RunReport != run || !ev.RunReport.Converted["t2"] {
		t.Errorf("\ngot event %+v", ev)
	}
}

func TestAlreadyConvertedIsSkipped(t *testing.T) {
	fake := newFake()
	m := &Maintenance{Conn: openTestConn(t, fake)}
	run, err := m.AlterEngine(context.Background(), introspect.Filter{}, "innodb")
	if err != nil {
		t.Fatal(err)
	}
	if !run.Converted["t3"] || !run.Converted["t2"] {
		t.Errorf("\ngot %v", run.Converted)
	}
	if want := []string{"t2:innodb"}; !reflect.DeepEqual(fake.altered, want) {
		t.Errorf("\ngot alters %v, wanted %v", fake.altered, want)
	}
}

func TestAlterFailure(t *testing.T) {
	fake := newFake()
	fake.fail["t2"] = true
	m := &Maintenance{Conn: openTestConn(t, fake)}
	run, err := m.AlterCollation(context.Background(), introspect.Filter{}, "utf8mb4_unicode_ci")
	if err != nil {
		t.Fatal(err)
	}
	if want := map[string]bool{"t2": false, "t3": true}; !reflect.DeepEqual(run.Converted, want) {
		t.Errorf("\ngot %v, wanted %v", run.Converted, want)
	}
	errs := m.Errors.Entries()
	if len(errs) != 1 || errs[0].Category != report.CategoryQuery || errs[0].Table != "t2" {
		t.Errorf("\ngot errors %+v", errs)
	}
}

func TestRejectedBeforeAnyTable(t *testing.T) {
	var tests = []struct {
		name string
		run  func(m *Maintenance) error
	}{
		{"unsupported engine", func(m *Maintenance) error {
			_, err := m.AlterEngine(context.Background(), introspect.Filter{}, "Aria")
			return err
		}},
		{"invalid engine name", func(m *Maintenance) error {
			_, err := m.AlterEngine(context.Background(), introspect.Filter{}, "InnoDB; DROP TABLE t2")
			return err
		}},
		{"invalid collation name", func(m *Maintenance) error {
			_, err := m.AlterCollation(context.Background(), introspect.Filter{}, "utf8 bin")
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := newFake()
			rec := &report.Recorder{}
			err := tt.run(&Maintenance{Conn: openTestConn(t, fake), Sink: rec})
			if report.CategoryOf(err) != report.CategoryConfig {
				t.Errorf("\ngot %v, wanted a config error", err)
			}
			if len(fake.altered) != 0 || len(rec.Events()) != 0 {
				t.Errorf("\ntables were touched: %v %v", fake.altered, rec.Kinds())
			}
		})
	}
}

func TestDialectWithoutMaintenance(t *testing.T) {
	m := &Maintenance{Conn: openTestConn(t, nil)}
	_, err := m.AlterEngine(context.Background(), introspect.Filter{}, "InnoDB")
	if report.CategoryOf(err) != report.CategoryConfig {
		t.Errorf("\ngot %v, wanted a config error", err)
	}
}
