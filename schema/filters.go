package schema

import (
	"fmt"
	"sort"
	"strings"
)

// FilterOperator is the suffix of a key of a generated `<Type>Where` input.
type FilterOperator string

const (
	OpEqual         FilterOperator = ""
	OpNot           FilterOperator = "_NOT"
	OpIn            FilterOperator = "_IN"
	OpNotIn         FilterOperator = "_NOT_IN"
	OpContains      FilterOperator = "_CONTAINS"
	OpNotContains   FilterOperator = "_NOT_CONTAINS"
	OpStartsWith    FilterOperator = "_STARTS_WITH"
	OpNotStartsWith FilterOperator = "_NOT_STARTS_WITH"
	OpEndsWith      FilterOperator = "_ENDS_WITH"
	OpNotEndsWith   FilterOperator = "_NOT_ENDS_WITH"
	OpLT            FilterOperator = "_LT"
	OpLTE           FilterOperator = "_LTE"
	OpGT            FilterOperator = "_GT"
	OpGTE           FilterOperator = "_GTE"
	OpDistanceLT    FilterOperator = "_DISTANCE_LT"
	OpDistanceLTE   FilterOperator = "_DISTANCE_LTE"
	OpDistanceGT    FilterOperator = "_DISTANCE_GT"
	OpDistanceGTE   FilterOperator = "_DISTANCE_GTE"
	OpSome          FilterOperator = "_SOME"
	OpNone          FilterOperator = "_NONE"
	OpAll           FilterOperator = "_ALL"
)

// Logical keys of a where input.
const (
	FilterAnd = "AND"
	FilterOr  = "OR"
)

// suffixes holds every non-empty operator, longest first, so that _NOT_IN wins over _IN.
var suffixes = func() []FilterOperator {
	ops := []FilterOperator{
		OpNot, OpIn, OpNotIn, OpContains, OpNotContains, OpStartsWith, OpNotStartsWith,
		OpEndsWith, OpNotEndsWith, OpLT, OpLTE, OpGT, OpGTE,
		OpDistanceLT, OpDistanceLTE, OpDistanceGT, OpDistanceGTE,
		OpSome, OpNone, OpAll,
	}
	sort.SliceStable(ops, func(i, j int) bool { return len(ops[i]) > len(ops[j]) })
	return ops
}()

// FilterOperators returns the operators a where input offers for the field.
// Computed fields cannot be filtered on.
func FilterOperators(f *Field) []FilterOperator {
	switch f.Kind {
	case RelationshipField:
		if f.Relationship.Cardinality == Many {
			return []FilterOperator{OpSome, OpNone, OpAll}
		}
		return []FilterOperator{OpEqual, OpNot}
	case ComputedField:
		return nil
	}

	switch {
	case f.Scalar == Point:
		return []FilterOperator{OpEqual, OpNot, OpDistanceLT, OpDistanceLTE, OpDistanceGT, OpDistanceGTE}
	case f.Scalar == Boolean:
		return []FilterOperator{OpEqual, OpNot}
	case f.Scalar.Textual():
		return []FilterOperator{
			OpEqual, OpNot, OpIn, OpNotIn,
			OpContains, OpNotContains, OpStartsWith, OpNotStartsWith, OpEndsWith, OpNotEndsWith,
		}
	case f.Scalar.Ordered():
		return []FilterOperator{OpEqual, OpNot, OpIn, OpNotIn, OpLT, OpLTE, OpGT, OpGTE}
	}
	return []FilterOperator{OpEqual, OpNot}
}

func offers(f *Field, op FilterOperator) bool {
	for _, o := range FilterOperators(f) {
		if o == op {
			return true
		}
	}
	return false
}

// ParseFilterKey resolves a where-input key such as `name_STARTS_WITH` into the field
// and operator it stands for. Logical keys (AND, OR) are not accepted here.
func (t *Type) ParseFilterKey(key string) (*Field, FilterOperator, error) {
	if f := t.Field(key); f != nil && offers(f, OpEqual) {
		return f, OpEqual, nil
	}
	for _, op := range suffixes {
		name, ok := strings.CutSuffix(key, string(op))
		if !ok || name == "" {
			continue
		}
		if f := t.Field(name); f != nil && offers(f, op) {
			return f, op, nil
		}
	}
	return nil, "", fmt.Errorf("unknown filter %q on %s", key, t.Name)
}
