package resolve

import (
	"github.com/99designs/gqlgen/graphql/introspection"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/cypher"
)

// The functions below answer introspection selections from gqlgen's wrappers of the
// API schema. Fields a wrapper has no data for resolve to null, or false for
// non-null booleans.

func (r *Resolver) introspectSchema(sel []*cypher.Field) *Object {
	s := introspection.WrapSchema(r.api)
	obj := newObject()
	for _, f := range sel {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			obj.Set(key, "__Schema")
		case "description":
			if r.api.Description == "" {
				obj.Set(key, nil)
			} else {
				obj.Set(key, r.api.Description)
			}
		case "types":
			types := s.Types()
			list := make([]interface{}, len(types))
			for i := range types {
				list[i] = introspectType(&types[i], f.SelectionSet)
			}
			obj.Set(key, list)
		case "queryType":
			obj.Set(key, introspectType(s.QueryType(), f.SelectionSet))
		case "mutationType":
			obj.Set(key, introspectType(s.MutationType(), f.SelectionSet))
		case "subscriptionType":
			obj.Set(key, introspectType(s.SubscriptionType(), f.SelectionSet))
		case "directives":
			directives := s.Directives()
			list := make([]interface{}, len(directives))
			for i := range directives {
				list[i] = introspectDirective(&directives[i], f.SelectionSet)
			}
			obj.Set(key, list)
		default:
			obj.Set(key, nil)
		}
	}
	return obj
}

func (r *Resolver) introspectNamedType(name string, sel []*cypher.Field) interface{} {
	def := r.api.Types[name]
	if def == nil {
		return nil
	}
	return introspectType(introspection.WrapTypeFromDef(r.api, def), sel)
}

func includeDeprecated(f *cypher.Field) bool {
	v, _ := f.Arguments["includeDeprecated"].(bool)
	return v
}

func introspectType(t *introspection.Type, sel []*cypher.Field) interface{} {
	if t == nil {
		return nil
	}
	obj := newObject()
	for _, f := range sel {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			obj.Set(key, "__Type")
		case "kind":
			obj.Set(key, t.Kind())
		case "name":
			obj.Set(key, t.Name())
		case "description":
			obj.Set(key, t.Description())
		case "fields":
			fields := t.Fields(includeDeprecated(f))
			if fields == nil {
				obj.Set(key, nil)
				continue
			}
			list := make([]interface{}, len(fields))
			for i := range fields {
				list[i] = introspectField(&fields[i], f.SelectionSet)
			}
			obj.Set(key, list)
		case "inputFields":
			inputs := t.InputFields()
			if inputs == nil {
				obj.Set(key, nil)
				continue
			}
			obj.Set(key, introspectInputValues(inputs, f.SelectionSet))
		case "interfaces":
			obj.Set(key, introspectTypes(t.Interfaces(), f.SelectionSet))
		case "possibleTypes":
			obj.Set(key, introspectTypes(t.PossibleTypes(), f.SelectionSet))
		case "enumValues":
			values := t.EnumValues(includeDeprecated(f))
			if values == nil {
				obj.Set(key, nil)
				continue
			}
			list := make([]interface{}, len(values))
			for i := range values {
				list[i] = introspectEnumValue(&values[i], f.SelectionSet)
			}
			obj.Set(key, list)
		case "ofType":
			obj.Set(key, introspectType(t.OfType(), f.SelectionSet))
		case "isOneOf":
			obj.Set(key, false)
		default:
			obj.Set(key, nil)
		}
	}
	return obj
}

func introspectTypes(types []introspection.Type, sel []*cypher.Field) interface{} {
	if types == nil {
		return nil
	}
	list := make([]interface{}, len(types))
	for i := range types {
		list[i] = introspectType(&types[i], sel)
	}
	return list
}

func introspectField(field *introspection.Field, sel []*cypher.Field) *Object {
	obj := newObject()
	for _, f := range sel {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			obj.Set(key, "__Field")
		case "name":
			obj.Set(key, field.Name)
		case "description":
			obj.Set(key, field.Description())
		case "args":
			obj.Set(key, introspectInputValues(field.Args, f.SelectionSet))
		case "type":
			obj.Set(key, introspectType(field.Type, f.SelectionSet))
		case "isDeprecated":
			obj.Set(key, field.IsDeprecated())
		case "deprecationReason":
			obj.Set(key, field.DeprecationReason())
		default:
			obj.Set(key, nil)
		}
	}
	return obj
}

func introspectInputValues(values []introspection.InputValue, sel []*cypher.Field) []interface{} {
	list := make([]interface{}, len(values))
	for i := range values {
		v := &values[i]
		obj := newObject()
		for _, f := range sel {
			key := f.ResponseKey()
			switch f.Name {
			case "__typename":
				obj.Set(key, "__InputValue")
			case "name":
				obj.Set(key, v.Name)
			case "description":
				obj.Set(key, v.Description())
			case "type":
				obj.Set(key, introspectType(v.Type, f.SelectionSet))
			case "defaultValue":
				obj.Set(key, v.DefaultValue)
			case "isDeprecated":
				obj.Set(key, false)
			default:
				obj.Set(key, nil)
			}
		}
		list[i] = obj
	}
	return list
}

func introspectEnumValue(v *introspection.EnumValue, sel []*cypher.Field) *Object {
	obj := newObject()
	for _, f := range sel {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			obj.Set(key, "__EnumValue")
		case "name":
			obj.Set(key, v.Name)
		case "description":
			obj.Set(key, v.Description())
		case "isDeprecated":
			obj.Set(key, v.IsDeprecated())
		case "deprecationReason":
			obj.Set(key, v.DeprecationReason())
		default:
			obj.Set(key, nil)
		}
	}
	return obj
}

func introspectDirective(d *introspection.Directive, sel []*cypher.Field) *Object {
	obj := newObject()
	for _, f := range sel {
		key := f.ResponseKey()
		switch f.Name {
		case "__typename":
			obj.Set(key, "__Directive")
		case "name":
			obj.Set(key, d.Name)
		case "description":
			obj.Set(key, d.Description())
		case "locations":
			obj.Set(key, d.Locations)
		case "args":
			obj.Set(key, introspectInputValues(d.Args, f.SelectionSet))
		case "isRepeatable":
			obj.Set(key, d.IsRepeatable)
		default:
			obj.Set(key, nil)
		}
	}
	return obj
}
