package cypher

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
)

var comparisons = map[schema.FilterOperator]string{
	schema.OpLT:          "<",
	schema.OpLTE:         "<=",
	schema.OpGT:          ">",
	schema.OpGTE:         ">=",
	schema.OpDistanceLT:  "<",
	schema.OpDistanceLTE: "<=",
	schema.OpDistanceGT:  ">",
	schema.OpDistanceGTE: ">=",
}

var stringOperators = map[schema.FilterOperator]string{
	schema.OpContains:      "CONTAINS",
	schema.OpNotContains:   "CONTAINS",
	schema.OpStartsWith:    "STARTS WITH",
	schema.OpNotStartsWith: "STARTS WITH",
	schema.OpEndsWith:      "ENDS WITH",
	schema.OpNotEndsWith:   "ENDS WITH",
}

// where renders a `<Type>Where` value as a predicate on node. Keys are visited in
// sorted order so equal inputs give equal statements. Empty input yields "".
func (tr *translator) where(node string, t *schema.Type, raw interface{}) (string, error) {
	if raw == nil {
		return "", nil
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return "", fmt.Errorf("%w: where must be an object", ErrInvalidArgument)
	}

	var preds []string
	for _, key := range sortedKeys(m) {
		value := m[key]

		if key == schema.FilterAnd || key == schema.FilterOr {
			if value == nil {
				continue
			}
			var parts []string
			for _, item := range asList(value) {
				p, err := tr.where(node, t, item)
				if err != nil {
					return "", err
				}
				if p != "" {
					parts = append(parts, p)
				}
			}
			if len(parts) > 0 {
				preds = append(preds, "("+strings.Join(parts, " "+key+" ")+")")
			}
			continue
		}

		fd, op, err := t.ParseFilterKey(key)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrInvalidArgument, err)
		}
		var p string
		if fd.Kind == schema.RelationshipField {
			p, err = tr.relationshipPredicate(node, fd, op, value)
		} else {
			p, err = tr.scalarPredicate(node, fd, op, value)
		}
		if err != nil {
			return "", err
		}
		if p != "" {
			preds = append(preds, p)
		}
	}
	return strings.Join(preds, " AND "), nil
}

func (tr *translator) scalarPredicate(node string, fd *schema.Field, op schema.FilterOperator, value interface{}) (string, error) {
	prop := node + "." + fd.Name

	if value == nil {
		switch op {
		case schema.OpEqual:
			return prop + " IS NULL", nil
		case schema.OpNot:
			return prop + " IS NOT NULL", nil
		}
		return "", nil
	}

	switch op {
	case schema.OpDistanceLT, schema.OpDistanceLTE, schema.OpDistanceGT, schema.OpDistanceGTE:
		m, ok := value.(map[string]interface{})
		if !ok {
			return "", fmt.Errorf("%w: %s%s expects {point, distance}", ErrInvalidArgument, fd.Name, op)
		}
		point, err := pointValue(m["point"])
		if err != nil {
			return "", fmt.Errorf("%w: %s%s: %v", ErrInvalidArgument, fd.Name, op, err)
		}
		distance, err := toFloat64(m["distance"])
		if err != nil {
			return "", fmt.Errorf("%w: %s%s: distance: %v", ErrInvalidArgument, fd.Name, op, err)
		}
		return fmt.Sprintf("point.distance(%s, point(%s)) %s %s", prop, tr.param(point), comparisons[op], tr.param(distance)), nil

	case schema.OpIn, schema.OpNotIn:
		items := asList(value)
		coerced := make([]interface{}, 0, len(items))
		for _, item := range items {
			v, err := coerce(fd.Scalar, item)
			if err != nil {
				return "", fmt.Errorf("%w: %s%s: %v", ErrInvalidArgument, fd.Name, op, err)
			}
			coerced = append(coerced, v)
		}
		list := tr.param(coerced)
		if fn := constructor(fd.Scalar); fn != "" {
			list = fmt.Sprintf("[x IN %s | %s(x)]", list, fn)
		}
		p := fmt.Sprintf("%s IN %s", prop, list)
		if op == schema.OpNotIn {
			p = "NOT (" + p + ")"
		}
		return p, nil
	}

	v, err := coerce(fd.Scalar, value)
	if err != nil {
		return "", fmt.Errorf("%w: %s%s: %v", ErrInvalidArgument, fd.Name, op, err)
	}
	param := tr.param(v)
	if keyword, ok := stringOperators[op]; ok {
		p := fmt.Sprintf("%s %s %s", prop, keyword, param)
		if strings.HasPrefix(string(op), "_NOT_") {
			p = "NOT (" + p + ")"
		}
		return p, nil
	}

	expr := param
	if fn := constructor(fd.Scalar); fn != "" {
		expr = fn + "(" + param + ")"
	}
	switch op {
	case schema.OpEqual:
		return fmt.Sprintf("%s = %s", prop, expr), nil
	case schema.OpNot:
		return fmt.Sprintf("NOT (%s = %s)", prop, expr), nil
	}
	if cmp, ok := comparisons[op]; ok {
		return fmt.Sprintf("%s %s %s", prop, cmp, expr), nil
	}
	return "", fmt.Errorf("%w: operator %s does not apply to %s", ErrInvalidArgument, op, fd.Name)
}

func (tr *translator) relationshipPredicate(node string, fd *schema.Field, op schema.FilterOperator, value interface{}) (string, error) {
	rel := fd.Relationship
	target := tr.schema.Type(rel.Target)
	child := tr.variable("this")
	match := pattern(node, rel, child, target.Label())

	inner, err := tr.where(child, target, value)
	if err != nil {
		return "", err
	}
	exists := func(pred string) string {
		if pred == "" {
			return "EXISTS { MATCH " + match + " }"
		}
		return "EXISTS { MATCH " + match + " WHERE " + pred + " }"
	}

	switch op {
	case schema.OpEqual:
		if value == nil {
			return "NOT " + exists(""), nil
		}
		return exists(inner), nil
	case schema.OpNot:
		if value == nil {
			return exists(""), nil
		}
		return "NOT " + exists(inner), nil
	case schema.OpSome:
		if value == nil {
			return "", nil
		}
		return exists(inner), nil
	case schema.OpNone:
		if value == nil {
			return "", nil
		}
		return "NOT " + exists(inner), nil
	case schema.OpAll:
		if inner == "" {
			return "", nil
		}
		return "NOT " + exists("NOT ("+inner+")"), nil
	}
	return "", fmt.Errorf("%w: operator %s does not apply to %s", ErrInvalidArgument, op, fd.Name)
}

// constructor is the Cypher function turning a parameter into a value comparable
// with a stored property of the given type.
func constructor(s schema.ScalarType) string {
	switch s {
	case schema.Date:
		return "date"
	case schema.DateTime:
		return "datetime"
	case schema.Point:
		return "point"
	}
	return ""
}

// coerce converts a GraphQL input value into the parameter value the driver expects
// for a property of type s.
func coerce(s schema.ScalarType, v interface{}) (interface{}, error) {
	switch s {
	case schema.Int:
		return toInt64(v)
	case schema.Float:
		return toFloat64(v)
	case schema.Boolean:
		b, ok := v.(bool)
		if !ok {
			return nil, fmt.Errorf("expected a boolean, got %T", v)
		}
		return b, nil
	case schema.Point:
		return pointValue(v)
	case schema.ID:
		switch n := v.(type) {
		case json.Number:
			return n.String(), nil
		case int64:
			return fmt.Sprint(n), nil
		}
	}
	str, ok := v.(string)
	if !ok {
		return nil, fmt.Errorf("expected a string, got %T", v)
	}
	return str, nil
}

// pointValue builds the map accepted by the Cypher point() function.
func pointValue(v interface{}) (map[string]interface{}, error) {
	m, ok := v.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("expected a point, got %T", v)
	}
	out := make(map[string]interface{}, 3)
	for _, key := range []string{"longitude", "latitude", "height"} {
		raw, ok := m[key]
		if !ok || raw == nil {
			if key == "height" {
				continue
			}
			return nil, fmt.Errorf("point: missing %s", key)
		}
		f, err := toFloat64(raw)
		if err != nil {
			return nil, fmt.Errorf("point: %s: %w", key, err)
		}
		out[key] = f
	}
	return out, nil
}

func toInt64(v interface{}) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) {
			return 0, fmt.Errorf("expected an integer, got %v", n)
		}
		return int64(n), nil
	case json.Number:
		return n.Int64()
	}
	return 0, fmt.Errorf("expected an integer, got %T", v)
}

func toFloat64(v interface{}) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case int:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	}
	return 0, fmt.Errorf("expected a number, got %T", v)
}

func asList(v interface{}) []interface{} {
	if list, ok := v.([]interface{}); ok {
		return list
	}
	return []interface{}{v}
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
