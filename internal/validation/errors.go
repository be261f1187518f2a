package validation

import (
	"errors"
	"strconv"
	"strings"
)

// UnknownRuleError reports a rule id that is not in the registry.
type UnknownRuleError struct {
	RuleID string
}

func (e *UnknownRuleError) Error() string {
	return "invalid rule id: " + e.RuleID
}

// MissingColumnsError lists every rule-set column absent from the uploaded
// table, in rule-set declaration order.
type MissingColumnsError struct {
	Columns []string
}

func (e *MissingColumnsError) Error() string {
	quoted := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		quoted[i] = strconv.Quote(c)
	}
	return "missing required columns: [" + strings.Join(quoted, ", ") + "]"
}

// IsClientError reports whether err is caused by the caller's input rather
// than a fault in the service.
func IsClientError(err error) bool {
	var unknown *UnknownRuleError
	var missing *MissingColumnsError
	return errors.As(err, &unknown) || errors.As(err, &missing)
}
