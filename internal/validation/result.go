package validation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"

	"github.com/JonMunkholm/taxref/internal/sheet"
)

// ErrorMap maps a 0-based row index to the columns that failed in that row.
// Columns within a row keep the order they were added in, which is rule-set
// declaration order when built by the Engine. The zero value is ready to use.
type ErrorMap struct {
	cols map[int][]string
}

// Add records a failed column for a row.
func (m *ErrorMap) Add(row int, column string) {
	if m.cols == nil {
		m.cols = make(map[int][]string)
	}
	m.cols[row] = append(m.cols[row], column)
}

// Len returns the number of rows with at least one failure.
func (m ErrorMap) Len() int { return len(m.cols) }

// Rows returns the failed row indices in ascending order.
func (m ErrorMap) Rows() []int {
	rows := make([]int, 0, len(m.cols))
	for r := range m.cols {
		rows = append(rows, r)
	}
	slices.Sort(rows)
	return rows
}

// Columns returns the failed columns of a row.
func (m ErrorMap) Columns(row int) []string {
	return slices.Clone(m.cols[row])
}

// MarshalJSON writes {"<row>": [columns...]} with rows in ascending order.
func (m ErrorMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, r := range m.Rows() {
		if i > 0 {
			buf.WriteByte(',')
		}
		cols, err := json.Marshal(m.cols[r])
		if err != nil {
			return nil, err
		}
		buf.WriteByte('"')
		buf.WriteString(strconv.Itoa(r))
		buf.WriteString(`":`)
		buf.Write(cols)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *ErrorMap) UnmarshalJSON(data []byte) error {
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	m.cols = nil
	for k, cols := range raw {
		row, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("error map: row key %q: %w", k, err)
		}
		for _, c := range cols {
			m.Add(row, c)
		}
	}
	return nil
}

// Result is the outcome of validating one table. Exactly one of Errors and
// Data is non-empty, except for a table with no rows, where both are empty.
type Result struct {
	Errors ErrorMap       `json:"errors"`
	Data   []sheet.Record `json:"data"`
}

// Valid reports whether no cell failed validation.
func (r *Result) Valid() bool { return r.Errors.Len() == 0 }

// InvalidRows returns how many rows have at least one failure.
func (r *Result) InvalidRows() int { return r.Errors.Len() }

func (r Result) MarshalJSON() ([]byte, error) {
	data := r.Data
	if data == nil {
		data = []sheet.Record{}
	}
	return json.Marshal(struct {
		Errors ErrorMap       `json:"errors"`
		Data   []sheet.Record `json:"data"`
	}{r.Errors, data})
}
