package introspect

import "sort"

// Filter selects tables and columns. An allow-list, when non-empty, is
// authoritative; the deny-list is then removed from whatever remains, so a
// name on both lists is excluded.
type Filter struct {
	Tables         []string
	ExcludeTables  []string
	Columns        []string
	ExcludeColumns []string
}

// SelectTables filters existing table names and returns them sorted.
// Allow-listed names that do not exist are returned in missing, also sorted.
func (f Filter) SelectTables(existing []string) (selected, missing []string) {
	exists := set(existing)
	deny := set(f.ExcludeTables)
	if len(f.Tables) > 0 {
		for _, name := range dedupe(f.Tables) {
			if deny[name] {
				continue
			}
			if exists[name] {
				selected = append(selected, name)
			} else {
				missing = append(missing, name)
			}
		}
	} else {
		for _, name := range dedupe(existing) {
			if !deny[name] {
				selected = append(selected, name)
			}
		}
	}
	sort.Strings(selected)
	sort.Strings(missing)
	return selected, missing
}

// SelectColumns returns the columns of t that pass the column lists, in
// declared order.
func (f Filter) SelectColumns(t Table) []Column {
	allow := set(f.Columns)
	deny := set(f.ExcludeColumns)
	var out []Column
	for _, c := range t.Columns {
		if len(allow) > 0 && !allow[c.Name] {
			continue
		}
		if deny[c.Name] {
			continue
		}
		out = append(out, c)
	}
	return out
}

func set(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}

func dedupe(names []string) []string {
	seen := map[string]bool{}
	var out []string
	for _, n := range names {
		if n == "" || seen[n] {
			continue
		}
		seen[n] = true
		out = append(out, n)
	}
	return out
}
