package resolve

import (
	"github.com/vektah/gqlparser/v2/ast"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/cypher"
)

// collectFields flattens a selection set on the object type typeName into fields
// keyed by response key: fragments are inlined, @skip and @include applied, and
// fields sharing a response key merged. Order follows first appearance.
func collectFields(set ast.SelectionSet, typeName string, vars map[string]interface{}) []*cypher.Field {
	var (
		order  []string
		groups = make(map[string][]*ast.Field)
	)
	var walk func(ast.SelectionSet)
	walk = func(set ast.SelectionSet) {
		for _, sel := range set {
			switch s := sel.(type) {
			case *ast.Field:
				if !included(s.Directives, vars) {
					continue
				}
				key := s.Alias
				if key == "" {
					key = s.Name
				}
				if _, seen := groups[key]; !seen {
					order = append(order, key)
				}
				groups[key] = append(groups[key], s)
			case *ast.InlineFragment:
				if !included(s.Directives, vars) || !applies(s.TypeCondition, typeName) {
					continue
				}
				walk(s.SelectionSet)
			case *ast.FragmentSpread:
				if !included(s.Directives, vars) || s.Definition == nil || !applies(s.Definition.TypeCondition, typeName) {
					continue
				}
				walk(s.Definition.SelectionSet)
			}
		}
	}
	walk(set)

	fields := make([]*cypher.Field, 0, len(order))
	for _, key := range order {
		group := groups[key]
		first := group[0]

		var sub ast.SelectionSet
		for _, f := range group {
			sub = append(sub, f.SelectionSet...)
		}

		field := &cypher.Field{
			Alias:      key,
			Name:       first.Name,
			Arguments:  first.ArgumentMap(vars),
			Definition: first.Definition,
			Position:   first.Position,
		}
		if len(sub) > 0 && first.Definition != nil {
			field.SelectionSet = collectFields(sub, first.Definition.Type.Name(), vars)
		}
		fields = append(fields, field)
	}
	return fields
}

// applies reports whether a fragment with the given type condition applies to typeName.
// The API has no interfaces or unions, so only exact matches apply.
func applies(condition, typeName string) bool {
	return condition == "" || condition == typeName
}

func included(directives ast.DirectiveList, vars map[string]interface{}) bool {
	if d := directives.ForName("skip"); d != nil {
		if skip, _ := d.ArgumentMap(vars)["if"].(bool); skip {
			return false
		}
	}
	if d := directives.ForName("include"); d != nil {
		if include, _ := d.ArgumentMap(vars)["if"].(bool); !include {
			return false
		}
	}
	return true
}

// depth is the number of nested selection levels below the given fields,
// introspection fields excluded.
func depth(fields []*cypher.Field) int {
	max := 0
	for _, f := range fields {
		if len(f.Name) > 1 && f.Name[:2] == "__" {
			continue
		}
		if d := 1 + depth(f.SelectionSet); d > max {
			max = d
		}
	}
	return max
}
