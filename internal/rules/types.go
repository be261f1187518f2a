// Package rules defines the declarative column-type rule sets used to validate
// uploaded spreadsheets, and the read-only registry that serves them.
package rules

import (
	"fmt"
	"strings"
)

// Kind is the closed set of semantic column types a rule set can declare.
type Kind int

const (
	KindInteger Kind = iota + 1
	KindFloat
	KindString
	KindTemporal
	KindStructural
)

// ValueType names a runtime cell type produced by the sheet decoders.
// It is the T in Structural(T). Text cells are covered by KindString.
type ValueType int

const (
	ValueBool ValueType = iota + 1
	ValueNumber
	ValueTime
)

func (v ValueType) String() string {
	switch v {
	case ValueBool:
		return "bool"
	case ValueNumber:
		return "number"
	case ValueTime:
		return "time"
	default:
		return "unknown"
	}
}

// SemanticType is the expected type of one column. Value is only meaningful
// when Kind is KindStructural.
type SemanticType struct {
	Kind  Kind
	Value ValueType
}

// Integer, Float, String and Temporal are the coercible semantic types.
func Integer() SemanticType  { return SemanticType{Kind: KindInteger} }
func Float() SemanticType    { return SemanticType{Kind: KindFloat} }
func String() SemanticType   { return SemanticType{Kind: KindString} }
func Temporal() SemanticType { return SemanticType{Kind: KindTemporal} }

// Structural returns the exact-runtime-type check for v.
func Structural(v ValueType) SemanticType {
	return SemanticType{Kind: KindStructural, Value: v}
}

// Valid reports whether t is inside the closed set of semantic types.
func (t SemanticType) Valid() bool {
	switch t.Kind {
	case KindInteger, KindFloat, KindString, KindTemporal:
		return true
	case KindStructural:
		return t.Value >= ValueBool && t.Value <= ValueTime
	default:
		return false
	}
}

// IsNumeric reports whether the type routes through numeric parsing.
// Integer and Float are not distinguished at the value level.
func (t SemanticType) IsNumeric() bool {
	return t.Kind == KindInteger || t.Kind == KindFloat
}

// String returns the rule-file spelling of the type. ParseType(t.String())
// returns t for every valid type.
func (t SemanticType) String() string {
	switch t.Kind {
	case KindInteger:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "str"
	case KindTemporal:
		return "datetime"
	case KindStructural:
		return t.Value.String()
	default:
		return "unknown"
	}
}

// MarshalText lets rule sets render types by name in JSON.
func (t SemanticType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// ParseType converts a rule-file type name into a SemanticType.
func ParseType(name string) (SemanticType, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "integer":
		return Integer(), nil
	case "float", "numeric", "decimal":
		return Float(), nil
	case "str", "string", "text":
		return String(), nil
	case "datetime", "timestamp", "date":
		return Temporal(), nil
	case "bool", "boolean":
		return Structural(ValueBool), nil
	case "number":
		return Structural(ValueNumber), nil
	case "time":
		return Structural(ValueTime), nil
	default:
		return SemanticType{}, fmt.Errorf("unknown column type %q", name)
	}
}
