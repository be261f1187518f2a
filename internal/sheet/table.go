// Package sheet turns uploaded workbooks into an in-memory, column-oriented
// Table and renders tables back out as ordered row records.
package sheet

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Column is a named, row-aligned sequence of cell values.
//
// Cell values are one of: nil (empty), string, float64, bool, time.Time.
type Column struct {
	Name   string
	Values []any
}

// Table is an ordered set of equally long columns. Row i of every column
// belongs to the same spreadsheet row; the index is stable through coercion.
type Table struct {
	columns []*Column
	index   map[string]int
	rows    int
}

// NewTable builds a table from a header row and data rows.
//
// Blank headers become "Unnamed: <i>", repeated headers get ".1", ".2"
// suffixes, short rows are padded with nil and fully empty rows are dropped,
// so a row index is the position among non-blank data rows, not the sheet row.
func NewTable(header []string, rows [][]any) *Table {
	width := len(header)
	for _, row := range rows {
		if len(row) > width {
			width = len(row)
		}
	}

	names := headerNames(header, width)
	t := &Table{
		columns: make([]*Column, width),
		index:   make(map[string]int, width),
	}
	for i, name := range names {
		t.columns[i] = &Column{Name: name, Values: make([]any, 0, len(rows))}
		t.index[name] = i
	}

	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		for i, col := range t.columns {
			var v any
			if i < len(row) {
				v = row[i]
			}
			col.Values = append(col.Values, v)
		}
		t.rows++
	}

	return t
}

// Len returns the number of data rows.
func (t *Table) Len() int { return t.rows }

// Has reports whether a column with the given name exists.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// ColumnNames returns column names in sheet order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.columns))
	for i, c := range t.columns {
		names[i] = c.Name
	}
	return names
}

// Column returns the values of the named column. The slice is owned by the
// table; callers that mutate it must go through SetColumn.
func (t *Table) Column(name string) ([]any, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i].Values, true
}

// SetColumn replaces the values of an existing column.
// The new values must keep row alignment.
func (t *Table) SetColumn(name string, values []any) error {
	i, ok := t.index[name]
	if !ok {
		return fmt.Errorf("column not found: %s", name)
	}
	if len(values) != t.rows {
		return fmt.Errorf("column %s: got %d values, want %d", name, len(values), t.rows)
	}
	t.columns[i].Values = values
	return nil
}

// Clone returns a deep copy that shares no cell storage with t.
func (t *Table) Clone() *Table {
	c := &Table{
		columns: make([]*Column, len(t.columns)),
		index:   make(map[string]int, len(t.index)),
		rows:    t.rows,
	}
	for i, col := range t.columns {
		vals := make([]any, len(col.Values))
		copy(vals, col.Values)
		c.columns[i] = &Column{Name: col.Name, Values: vals}
		c.index[col.Name] = i
	}
	return c
}

// Records converts the table into row records, preserving column order.
func (t *Table) Records() []Record {
	names := t.ColumnNames()
	out := make([]Record, t.rows)
	for r := 0; r < t.rows; r++ {
		vals := make([]any, len(t.columns))
		for c, col := range t.columns {
			vals[c] = col.Values[r]
		}
		out[r] = Record{names: names, values: vals}
	}
	return out
}

// Record is one table row keyed by column name. It marshals to a JSON
// object whose keys keep the sheet's column order.
type Record struct {
	names  []string
	values []any
}

// NewRecord pairs names with values. Extra names or values are ignored.
func NewRecord(names []string, values []any) Record {
	n := min(len(names), len(values))
	return Record{names: names[:n], values: values[:n]}
}

// Get returns the value for a column.
func (r Record) Get(name string) (any, bool) {
	for i, n := range r.names {
		if n == name {
			return r.values[i], true
		}
	}
	return nil, false
}

// Len returns the number of fields.
func (r Record) Len() int { return len(r.names) }

// Map returns the record as an unordered map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r.names))
	for i, n := range r.names {
		m[n] = r.values[i]
	}
	return m
}

func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, n := range r.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(n)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", n, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// headerNames pads the header to width and makes every name unique.
func headerNames(header []string, width int) []string {
	names := make([]string, width)
	used := make(map[string]bool, width)
	suffix := make(map[string]int)
	for i := 0; i < width; i++ {
		base := ""
		if i < len(header) {
			base = header[i]
		}
		if base == "" {
			base = "Unnamed: " + strconv.Itoa(i)
		}

		name := base
		for used[name] {
			suffix[base]++
			name = base + "." + strconv.Itoa(suffix[base])
		}
		used[name] = true
		names[i] = name
	}
	return names
}

func isEmptyRow(row []any) bool {
	for _, v := range row {
		if v == nil {
			continue
		}
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		return false
	}
	return true
}
