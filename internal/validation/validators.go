package validation

import (
	"fmt"
	"time"

	"github.com/JonMunkholm/taxref/internal/rules"
)

// TypeValidator checks one column against a semantic type.
//
// Check returns the row indices whose values cannot be read as the type,
// in ascending order.
type TypeValidator interface {
	Check(values []any) []int
}

// Coercer is implemented by validators whose type has a canonical form.
// Coerce returns a new slice with every convertible value converted and every
// other value replaced by nil; it never fails.
type Coercer interface {
	Coerce(values []any) []any
}

// ValidatorFor returns the validator for a semantic type. It panics on a
// type outside the closed set; NewRuleSet rejects those via SemanticType.Valid.
func ValidatorFor(t rules.SemanticType) TypeValidator {
	switch t.Kind {
	case rules.KindInteger, rules.KindFloat:
		return numericValidator{}
	case rules.KindTemporal:
		return temporalValidator{}
	case rules.KindString:
		return stringValidator{}
	case rules.KindStructural:
		return structuralValidator{want: t.Value}
	default:
		panic(fmt.Sprintf("validation: no validator for semantic type %v", t))
	}
}

// numericValidator covers Integer and Float alike.
type numericValidator struct{}

func (numericValidator) Check(values []any) []int {
	var invalid []int
	for i, v := range values {
		if _, ok := ParseNumber(v); !ok {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

func (numericValidator) Coerce(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if n, ok := ParseNumber(v); ok {
			out[i] = n
		}
	}
	return out
}

type temporalValidator struct{}

func (temporalValidator) Check(values []any) []int {
	var invalid []int
	for i, v := range values {
		if _, ok := ParseTime(v); !ok {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

func (temporalValidator) Coerce(values []any) []any {
	out := make([]any, len(values))
	for i, v := range values {
		if t, ok := ParseTime(v); ok {
			out[i] = t
		}
	}
	return out
}

// stringValidator accepts only cells that are already text. A number in a
// text column is an error, not a stringified pass.
type stringValidator struct{}

func (stringValidator) Check(values []any) []int {
	var invalid []int
	for i, v := range values {
		if _, ok := v.(string); !ok {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

type structuralValidator struct {
	want rules.ValueType
}

func (s structuralValidator) Check(values []any) []int {
	var invalid []int
	for i, v := range values {
		if !isValueType(v, s.want) {
			invalid = append(invalid, i)
		}
	}
	return invalid
}

func isValueType(v any, want rules.ValueType) bool {
	switch want {
	case rules.ValueBool:
		_, ok := v.(bool)
		return ok
	case rules.ValueNumber:
		_, ok := v.(float64)
		return ok
	case rules.ValueTime:
		_, ok := v.(time.Time)
		return ok
	default:
		return false
	}
}
