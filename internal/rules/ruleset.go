package rules

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ColumnRule pairs a spreadsheet column header with its expected type.
type ColumnRule struct {
	Name string       `json:"column"`
	Type SemanticType `json:"type"`
}

// RuleSet is an immutable, ordered list of column rules identified by ID.
// Declaration order drives validation order and therefore error ordering.
type RuleSet struct {
	id      string
	columns []ColumnRule
}

// NewRuleSet builds a rule set. Column names must be unique and non-empty,
// and every column type must be one of the closed set.
func NewRuleSet(id string, columns ...ColumnRule) (*RuleSet, error) {
	if id == "" {
		return nil, errors.New("rule set id is empty")
	}

	seen := make(map[string]bool, len(columns))
	cols := make([]ColumnRule, 0, len(columns))
	for _, c := range columns {
		if c.Name == "" {
			return nil, fmt.Errorf("rule set %q: empty column name", id)
		}
		if seen[c.Name] {
			return nil, fmt.Errorf("rule set %q: duplicate column %q", id, c.Name)
		}
		if c.Type.Kind == 0 {
			return nil, fmt.Errorf("rule set %q: column %q has no type", id, c.Name)
		}
		if !c.Type.Valid() {
			return nil, fmt.Errorf("rule set %q: column %q has unknown type (kind %d, value %d)", id, c.Name, c.Type.Kind, c.Type.Value)
		}
		seen[c.Name] = true
		cols = append(cols, c)
	}

	return &RuleSet{id: id, columns: cols}, nil
}

// ID returns the rule set identifier.
func (r *RuleSet) ID() string { return r.id }

// Len returns the number of declared columns.
func (r *RuleSet) Len() int { return len(r.columns) }

// Columns returns a copy of the column rules in declaration order.
func (r *RuleSet) Columns() []ColumnRule {
	out := make([]ColumnRule, len(r.columns))
	copy(out, r.columns)
	return out
}

// ColumnNames returns the required column names in declaration order.
func (r *RuleSet) ColumnNames() []string {
	names := make([]string, len(r.columns))
	for i, c := range r.columns {
		names[i] = c.Name
	}
	return names
}

func (r *RuleSet) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID      string       `json:"id"`
		Columns []ColumnRule `json:"dtype"`
	}{r.id, r.columns})
}

func mustRuleSet(id string, columns ...ColumnRule) *RuleSet {
	rs, err := NewRuleSet(id, columns...)
	if err != nil {
		panic(err)
	}
	return rs
}
