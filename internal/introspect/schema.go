package introspect

import "strings"

// Column represents a table column.
type Column struct {
	Name     string `json:"name"`
	Type     string `json:"type"`
	Nullable bool   `json:"nullable"`
	PK       bool   `json:"pk"`
	PKOrder  int    `json:"pk_order,omitempty"` // 1-based position in the primary key
}

// Table represents a database table and its columns.
type Table struct {
	Schema    string   `json:"schema,omitempty"`
	Name      string   `json:"name"`
	Columns   []Column `json:"columns"`
	Engine    string   `json:"engine,omitempty"`
	Collation string   `json:"collation,omitempty"`
}

// PrimaryKey returns the key columns in key order.
func (t Table) PrimaryKey() []Column {
	var pk []Column
	for _, c := range t.Columns {
		if c.PK {
			pk = append(pk, c)
		}
	}
	// insertion sort, keys are short
	for i := 1; i < len(pk); i++ {
		for j := i; j > 0 && pk[j].PKOrder < pk[j-1].PKOrder; j-- {
			pk[j], pk[j-1] = pk[j-1], pk[j]
		}
	}
	return pk
}

// Column looks up a column by name.
func (t Table) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// types whose values can never contain a search string
var nonText = map[string]bool{
	"tinyint": true, "smallint": true, "mediumint": true, "int": true, "integer": true, "bigint": true,
	"int2": true, "int4": true, "int8": true, "serial": true, "smallserial": true, "bigserial": true,
	"decimal": true, "numeric": true, "number": true, "float": true, "float4": true, "float8": true,
	"double": true, "real": true, "money": true, "smallmoney": true, "binary_float": true, "binary_double": true,
	"bit": true, "bool": true, "boolean": true,
	"date": true, "datetime": true, "datetime2": true, "smalldatetime": true, "datetimeoffset": true,
	"time": true, "timetz": true, "timestamp": true, "timestamptz": true, "year": true, "interval": true,
}

// Searchable reports whether the column's declared type can hold text.
// Unknown or missing types are searchable.
func (c Column) Searchable() bool {
	typ := strings.ToLower(strings.TrimSpace(c.Type))
	if i := strings.IndexAny(typ, " ("); i >= 0 {
		typ = typ[:i]
	}
	return !nonText[typ]
}
