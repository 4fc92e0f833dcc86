package schema

import (
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/parser"
)

// ErrInvalidSchema is returned when the type definitions cannot be turned into a Schema.
var ErrInvalidSchema = errors.New("invalid schema")

const (
	directiveRelationship = "relationship"
	directiveCypher       = "cypher"
	directiveExclude      = "exclude"
)

// Load parses the type definitions, interprets their directives and checks that
// every relationship agrees with the back-reference on its related type.
//
// Recognised directives:
//   - @exclude(operations: [CREATE, READ, UPDATE, DELETE]) on a type; without
//     arguments every operation is excluded.
//   - @relationship(type: "LABEL", direction: IN|OUT) on an object-typed field.
//   - @cypher(statement: "...", columnName: "...") on any field. When columnName is
//     omitted it is taken from the statement's final RETURN clause.
func Load(typeDefs string) (*Schema, error) {
	doc, err := parser.ParseSchema(&ast.Source{Name: "typedefs.graphql", Input: typeDefs})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	defs, err := mergeExtensions(doc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	types := make([]*Type, 0, len(defs))
	for _, def := range defs {
		t, err := interpretType(def, defs)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
		}
		types = append(types, t)
	}
	sort.SliceStable(types, func(i, j int) bool {
		return types[i].position.Line < types[j].position.Line
	})

	s := newSchema(types)
	if err := checkInverses(s); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSchema, err)
	}
	return s, nil
}

// MustLoad is like Load but panics on error. It is meant for package-level schemas
// built from embedded type definitions.
func MustLoad(typeDefs string) *Schema {
	s, err := Load(typeDefs)
	if err != nil {
		panic(err)
	}
	return s
}

func mergeExtensions(doc *ast.SchemaDocument) (map[string]*ast.Definition, error) {
	defs := make(map[string]*ast.Definition, len(doc.Definitions))
	for _, def := range doc.Definitions {
		if def.Kind != ast.Object {
			return nil, fmt.Errorf("%s: only object types are supported, got %s", def.Name, def.Kind)
		}
		if _, dup := defs[def.Name]; dup {
			return nil, fmt.Errorf("type %s is declared twice", def.Name)
		}
		if _, reserved := scalarTypes[def.Name]; reserved {
			return nil, fmt.Errorf("type name %s is reserved", def.Name)
		}
		defs[def.Name] = def
	}
	for _, ext := range doc.Extensions {
		def, ok := defs[ext.Name]
		if !ok {
			return nil, fmt.Errorf("cannot extend unknown type %s", ext.Name)
		}
		def.Fields = append(def.Fields, ext.Fields...)
		def.Directives = append(def.Directives, ext.Directives...)
	}
	return defs, nil
}

func interpretType(def *ast.Definition, defs map[string]*ast.Definition) (*Type, error) {
	t := &Type{
		Name:         def.Name,
		Description:  def.Description,
		fieldsByName: make(map[string]*Field, len(def.Fields)),
		excluded:     make(map[Operation]bool),
		position:     def.Position,
	}
	if t.position == nil {
		t.position = &ast.Position{}
	}

	for _, d := range def.Directives {
		if d.Name != directiveExclude {
			return nil, fmt.Errorf("%s: unknown type directive @%s", def.Name, d.Name)
		}
		ops, err := excludedOperations(d)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", def.Name, err)
		}
		for _, op := range ops {
			t.excluded[op] = true
		}
	}

	for _, fd := range def.Fields {
		if _, dup := t.fieldsByName[fd.Name]; dup {
			return nil, fmt.Errorf("%s.%s is declared twice", def.Name, fd.Name)
		}
		if strings.HasPrefix(fd.Name, "__") {
			return nil, fmt.Errorf("%s.%s: names starting with __ are reserved", def.Name, fd.Name)
		}
		if len(fd.Arguments) > 0 {
			return nil, fmt.Errorf("%s.%s: field arguments are generated and cannot be declared", def.Name, fd.Name)
		}
		f, err := interpretField(fd, defs)
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", def.Name, fd.Name, err)
		}
		t.Fields = append(t.Fields, f)
		t.fieldsByName[f.Name] = f
	}
	if len(t.Fields) == 0 {
		return nil, fmt.Errorf("%s declares no fields", def.Name)
	}
	return t, nil
}

func excludedOperations(d *ast.Directive) ([]Operation, error) {
	arg := d.Arguments.ForName("operations")
	if arg == nil {
		return Operations, nil
	}
	var values []*ast.Value
	if arg.Value.Kind == ast.ListValue {
		for _, c := range arg.Value.Children {
			values = append(values, c.Value)
		}
	} else {
		values = []*ast.Value{arg.Value}
	}

	ops := make([]Operation, 0, len(values))
	for _, v := range values {
		op := Operation(v.Raw)
		switch op {
		case OpCreate, OpRead, OpUpdate, OpDelete:
			ops = append(ops, op)
		default:
			return nil, fmt.Errorf("@exclude: unknown operation %q", v.Raw)
		}
	}
	return ops, nil
}

func interpretField(fd *ast.FieldDefinition, defs map[string]*ast.Definition) (*Field, error) {
	f := &Field{
		Name:        fd.Name,
		Description: fd.Description,
		Type:        fd.Type,
		Position:    fd.Position,
	}

	named := fd.Type.Name()
	scalar, isScalar := LookupScalar(named)
	if !isScalar {
		if _, ok := defs[named]; !ok {
			return nil, fmt.Errorf("unknown type %s", named)
		}
	}
	isList := fd.Type.Elem != nil
	if isList && fd.Type.Elem.Elem != nil {
		return nil, fmt.Errorf("nested lists are not supported")
	}
	cardinality := One
	if isList {
		cardinality = Many
	}

	rel := fd.Directives.ForName(directiveRelationship)
	cyp := fd.Directives.ForName(directiveCypher)
	for _, d := range fd.Directives {
		if d.Name != directiveRelationship && d.Name != directiveCypher {
			return nil, fmt.Errorf("unknown field directive @%s", d.Name)
		}
	}

	switch {
	case rel != nil && cyp != nil:
		return nil, fmt.Errorf("@relationship and @cypher cannot be combined")

	case cyp != nil:
		statement, err := stringArgument(cyp, "statement")
		if err != nil {
			return nil, err
		}
		column, _ := stringArgument(cyp, "columnName")
		if column == "" {
			if column, err = returnColumn(statement); err != nil {
				return nil, err
			}
		}
		f.Kind = ComputedField
		f.Computed = &Computed{Statement: statement, Column: column, Cardinality: cardinality}
		if isScalar {
			f.Scalar = scalar
		} else {
			f.Computed.Target = named
		}

	case rel != nil:
		if isScalar {
			return nil, fmt.Errorf("@relationship requires an object type, got %s", named)
		}
		label, err := stringArgument(rel, "type")
		if err != nil {
			return nil, err
		}
		direction, err := relationshipDirection(rel)
		if err != nil {
			return nil, err
		}
		f.Kind = RelationshipField
		f.Relationship = &Relationship{
			Label:       label,
			Direction:   direction,
			Target:      named,
			Cardinality: cardinality,
		}

	default:
		if !isScalar {
			return nil, fmt.Errorf("object field of type %s needs @relationship or @cypher", named)
		}
		if isList {
			return nil, fmt.Errorf("list-valued properties are not supported")
		}
		f.Kind = ScalarField
		f.Scalar = scalar
	}
	return f, nil
}

func stringArgument(d *ast.Directive, name string) (string, error) {
	arg := d.Arguments.ForName(name)
	if arg == nil || arg.Value == nil {
		return "", fmt.Errorf("@%s: missing argument %s", d.Name, name)
	}
	switch arg.Value.Kind {
	case ast.StringValue, ast.BlockValue:
	default:
		return "", fmt.Errorf("@%s: argument %s must be a string", d.Name, name)
	}
	v := strings.TrimSpace(arg.Value.Raw)
	if v == "" {
		return "", fmt.Errorf("@%s: argument %s is empty", d.Name, name)
	}
	return v, nil
}

func relationshipDirection(d *ast.Directive) (Direction, error) {
	arg := d.Arguments.ForName("direction")
	if arg == nil || arg.Value == nil {
		return Out, fmt.Errorf("@%s: missing argument direction", d.Name)
	}
	switch arg.Value.Raw {
	case "OUT":
		return Out, nil
	case "IN":
		return In, nil
	default:
		return Out, fmt.Errorf("@%s: direction must be IN or OUT, got %q", d.Name, arg.Value.Raw)
	}
}

var (
	returnKeyword = regexp.MustCompile(`(?i)\bRETURN\b`)
	returnTail    = regexp.MustCompile(`(?is)^\s*(?:DISTINCT\s+)?(.+?)(?:\s+ORDER\s+BY\b.*|\s+SKIP\b.*|\s+LIMIT\b.*)?\s*;?\s*$`)
	returnAlias   = regexp.MustCompile("(?is)^.+\\s+AS\\s+`?(\\w+)`?$")
	identifier    = regexp.MustCompile(`^\w+$`)
)

// returnColumn finds the column produced by the last RETURN clause of a statement.
func returnColumn(statement string) (string, error) {
	locs := returnKeyword.FindAllStringIndex(statement, -1)
	if len(locs) == 0 {
		return "", fmt.Errorf("@cypher: statement has no RETURN clause")
	}
	tail := statement[locs[len(locs)-1][1]:]
	m := returnTail.FindStringSubmatch(tail)
	if m == nil {
		return "", fmt.Errorf("@cypher: cannot read the RETURN clause")
	}
	item := strings.TrimSpace(m[1])
	if strings.Contains(item, ",") {
		return "", fmt.Errorf("@cypher: statement must return a single column, set columnName otherwise")
	}
	if a := returnAlias.FindStringSubmatch(item); a != nil {
		return a[1], nil
	}
	if identifier.MatchString(item) {
		return item, nil
	}
	return "", fmt.Errorf("@cypher: cannot infer the column of %q, set columnName", item)
}
