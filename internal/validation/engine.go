// Package validation checks decoded spreadsheets against rule sets, coercing
// columns to their declared types and reporting every failed cell by row.
package validation

import (
	"context"
	"time"

	"github.com/JonMunkholm/taxref/internal/logging"
	"github.com/JonMunkholm/taxref/internal/rules"
	"github.com/JonMunkholm/taxref/internal/sheet"
)

// Engine validates tables against the rule sets of a registry.
// It holds no per-request state and is safe for concurrent use as long as
// each call gets its own Table.
type Engine struct {
	registry *rules.Registry
}

// NewEngine creates an engine over a read-only registry.
func NewEngine(registry *rules.Registry) *Engine {
	return &Engine{registry: registry}
}

// Registry returns the registry the engine resolves rule ids against.
func (e *Engine) Registry() *rules.Registry { return e.registry }

// Validate checks t against the rule set ruleID.
//
// Coercible columns of t are rewritten in place, whether or not they had
// failures. The only errors returned are *UnknownRuleError,
// *MissingColumnsError and context cancellation; failed cells are reported
// in the Result.
func (e *Engine) Validate(ctx context.Context, t *sheet.Table, ruleID string) (*Result, error) {
	start := time.Now()

	rs, ok := e.registry.Lookup(ruleID)
	if !ok {
		return nil, &UnknownRuleError{RuleID: ruleID}
	}

	columns := rs.Columns()

	var missing []string
	for _, c := range columns {
		if !t.Has(c.Name) {
			missing = append(missing, c.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingColumnsError{Columns: missing}
	}

	var errs ErrorMap
	for _, c := range columns {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		values, _ := t.Column(c.Name)
		v := ValidatorFor(c.Type)
		for _, row := range v.Check(values) {
			errs.Add(row, c.Name)
		}
		if co, ok := v.(Coercer); ok {
			if err := t.SetColumn(c.Name, co.Coerce(values)); err != nil {
				return nil, err
			}
		}
	}

	res := &Result{Errors: errs}
	if errs.Len() == 0 {
		res.Data = t.Records()
	}

	logging.FromContext(ctx).Info("validation completed",
		"rule_id", ruleID,
		"rows", t.Len(),
		"invalid_rows", errs.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return res, nil
}
