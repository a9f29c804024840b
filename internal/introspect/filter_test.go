package introspect

import (
	"reflect"
	"testing"
)

func TestSelectTables(t *testing.T) {
	existing := []string{"wp_users", "wp_options", "wp_posts", "log"}

	var tests = []struct {
		name     string
		filter   Filter
		selected []string
		missing  []string
	}{
		{"no filter sorts", Filter{}, []string{"log", "wp_options", "wp_posts", "wp_users"}, nil},
		{"allow-list", Filter{Tables: []string{"wp_posts", "wp_options"}}, []string{"wp_options", "wp_posts"}, nil},
		{"deny-list", Filter{ExcludeTables: []string{"log"}}, []string{"wp_options", "wp_posts", "wp_users"}, nil},
		{"deny wins", Filter{Tables: []string{"wp_posts", "log"}, ExcludeTables: []string{"log"}}, []string{"wp_posts"}, nil},
		{"missing allowed table", Filter{Tables: []string{"t1", "wp_posts"}}, []string{"wp_posts"}, []string{"t1"}},
		{"duplicates", Filter{Tables: []string{"log", "log"}}, []string{"log"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selected, missing := tt.filter.SelectTables(existing)
			if !reflect.DeepEqual(selected, tt.selected) {
				t.Errorf("\ngot selected %v, wanted %v", selected, tt.selected)
			}
			if !reflect.DeepEqual(missing, tt.missing) {
				t.Errorf("\ngot missing %v, wanted %v", missing, tt.missing)
			}
		})
	}
}

func TestSelectColumns(t *testing.T) {
	table := Table{Name: "users", Columns: []Column{
		{Name: "id", PK: true, PKOrder: 1},
		{Name: "email"},
		{Name: "bio"},
	}}

	var tests = []struct {
		name   string
		filter Filter
		want   []string
	}{
		{"all", Filter{}, []string{"id", "email", "bio"}},
		{"include and exclude", Filter{Columns: []string{"email"}, ExcludeColumns: []string{"id"}}, []string{"email"}},
		{"overlap exclude wins", Filter{Columns: []string{"email", "bio"}, ExcludeColumns: []string{"email"}}, []string{"bio"}},
		{"exclude only", Filter{ExcludeColumns: []string{"bio"}}, []string{"id", "email"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, c := range tt.filter.SelectColumns(table) {
				got = append(got, c.Name)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("\ngot %v, wanted %v", got, tt.want)
			}
		})
	}
}

func TestPrimaryKeyOrder(t *testing.T) {
	table := Table{Columns: []Column{
		{Name: "b", PK: true, PKOrder: 2},
		{Name: "x"},
		{Name: "a", PK: true, PKOrder: 1},
	}}
	var got []string
	for _, c := range table.PrimaryKey() {
		got = append(got, c.Name)
	}
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("\ngot %v, wanted [a b]", got)
	}
}

func TestSearchable(t *testing.T) {
	var tests = []struct {
		typ  string
		want bool
	}{
		{"varchar(255)", true},
		{"longtext", true},
		{"", true},
		{"point", true},
		{"bigint(20) unsigned", false},
		{"INTEGER", false},
		{"timestamp without time zone", false},
		{"double precision", false},
		{"datetime", false},
	}

	for _, tt := range tests {
		t.Run(tt.typ, func(t *testing.T) {
			if got := (Column{Type: tt.typ}).Searchable(); got != tt.want {
				t.Errorf("\ngot %v, wanted %v", got, tt.want)
			}
		})
	}
}
