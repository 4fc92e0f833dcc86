// Package schema holds the in-memory model of the graph schema: entity types, their
// stored scalar fields, their typed directed relationships and their computed fields.
//
// A Schema is built once by Load from a type-definition document and is immutable
// afterwards, so it can be shared by every request without locking.
package schema

import (
	"sort"

	"github.com/vektah/gqlparser/v2/ast"
)

// FieldKind tells how the value of a field is obtained.
type FieldKind int

const (
	// ScalarField is a property stored on the node.
	ScalarField FieldKind = iota
	// RelationshipField follows a typed, directed relationship to other nodes.
	RelationshipField
	// ComputedField runs an embedded Cypher statement with the node bound as `this`.
	ComputedField
)

func (k FieldKind) String() string {
	switch k {
	case ScalarField:
		return "scalar"
	case RelationshipField:
		return "relationship"
	case ComputedField:
		return "computed"
	default:
		return "unknown"
	}
}

// Direction is the direction of a relationship as seen from the declaring type.
type Direction int

const (
	Out Direction = iota
	In
)

func (d Direction) String() string {
	if d == In {
		return "IN"
	}
	return "OUT"
}

// Inverse returns the direction the back-reference on the related type must declare.
func (d Direction) Inverse() Direction {
	if d == In {
		return Out
	}
	return In
}

// Cardinality is the number of related records a field yields.
type Cardinality int

const (
	// One yields at most one record, or null.
	One Cardinality = iota
	// Many yields an ordered, possibly empty, list.
	Many
)

func (c Cardinality) String() string {
	if c == Many {
		return "many"
	}
	return "one"
}

// ScalarType is the type of a stored property.
type ScalarType string

const (
	String   ScalarType = "String"
	Int      ScalarType = "Int"
	Float    ScalarType = "Float"
	Boolean  ScalarType = "Boolean"
	ID       ScalarType = "ID"
	Date     ScalarType = "Date"
	DateTime ScalarType = "DateTime"
	Point    ScalarType = "Point"
)

var scalarTypes = map[string]ScalarType{
	"String":   String,
	"Int":      Int,
	"Float":    Float,
	"Boolean":  Boolean,
	"ID":       ID,
	"Date":     Date,
	"DateTime": DateTime,
	"Point":    Point,
}

// LookupScalar returns the scalar type with the given GraphQL name.
func LookupScalar(name string) (ScalarType, bool) {
	s, ok := scalarTypes[name]
	return s, ok
}

// Textual reports whether string matching operators apply.
func (s ScalarType) Textual() bool { return s == String || s == ID }

// Ordered reports whether range comparisons apply.
func (s ScalarType) Ordered() bool {
	return s == Int || s == Float || s == Date || s == DateTime
}

// Sortable reports whether the type can appear in a sort clause.
func (s ScalarType) Sortable() bool { return s != Point }

// Relationship describes a relationship field.
type Relationship struct {
	// Label is the relationship type in the database, e.g. HAS_TOPIC.
	Label       string
	Direction   Direction
	Target      string
	Cardinality Cardinality
}

// Computed describes a field whose value comes from an embedded Cypher statement.
type Computed struct {
	Statement string
	// Column is the name of the statement's single return column.
	Column string
	// Target is the object type name, or empty when the statement yields scalars.
	Target      string
	Cardinality Cardinality
}

// Field is one field of an entity type. Exactly one of Scalar, Relationship and
// Computed describes it, according to Kind.
type Field struct {
	Name        string
	Description string
	Kind        FieldKind
	// Type is the field type as declared in the type definitions.
	Type *ast.Type

	// Scalar is the value type of scalar fields and of computed fields returning scalars.
	Scalar ScalarType

	Relationship *Relationship
	Computed     *Computed

	Position *ast.Position
}

// Required reports whether the declared type is non-null.
func (f *Field) Required() bool { return f.Type != nil && f.Type.NonNull }

// Target returns the related object type name, or empty for scalar values.
func (f *Field) Target() string {
	switch f.Kind {
	case RelationshipField:
		return f.Relationship.Target
	case ComputedField:
		return f.Computed.Target
	}
	return ""
}

// Cardinality returns the cardinality of relationship and computed fields.
// Scalar fields are always One.
func (f *Field) Cardinality() Cardinality {
	switch f.Kind {
	case RelationshipField:
		return f.Relationship.Cardinality
	case ComputedField:
		return f.Computed.Cardinality
	}
	return One
}

// Operation is an API operation that can be excluded for a type.
type Operation string

const (
	OpCreate Operation = "CREATE"
	OpRead   Operation = "READ"
	OpUpdate Operation = "UPDATE"
	OpDelete Operation = "DELETE"
)

// Operations lists every operation in declaration order.
var Operations = []Operation{OpCreate, OpRead, OpUpdate, OpDelete}

// Type is an entity type, stored under the node label of the same name.
type Type struct {
	Name        string
	Description string
	Fields      []*Field

	fieldsByName map[string]*Field
	excluded     map[Operation]bool
	position     *ast.Position
}

// Field returns the field with the given name, or nil.
func (t *Type) Field(name string) *Field {
	return t.fieldsByName[name]
}

// Excluded reports whether op is excluded for the type.
func (t *Type) Excluded(op Operation) bool {
	return t.excluded[op]
}

// Label is the node label of the type.
func (t *Type) Label() string { return t.Name }

// ScalarFields returns the stored scalar fields in declaration order.
func (t *Type) ScalarFields() []*Field {
	var out []*Field
	for _, f := range t.Fields {
		if f.Kind == ScalarField {
			out = append(out, f)
		}
	}
	return out
}

// RootField names a generated entry point of the query API.
type RootField struct {
	Type *Type
	// Count is set for the `<plural>Count` aggregation.
	Count bool
}

// Schema is the immutable set of entity types.
type Schema struct {
	types  []*Type
	byName map[string]*Type
	roots  map[string]RootField
}

// Type returns the type with the given name, or nil.
func (s *Schema) Type(name string) *Type {
	return s.byName[name]
}

// Types returns every type in declaration order.
func (s *Schema) Types() []*Type {
	out := make([]*Type, len(s.types))
	copy(out, s.types)
	return out
}

// Root returns the entry point bound to the given Query field name.
func (s *Schema) Root(name string) (RootField, bool) {
	r, ok := s.roots[name]
	return r, ok
}

// RootNames returns the Query field names in a stable order.
func (s *Schema) RootNames() []string {
	names := make([]string, 0, len(s.roots))
	for n := range s.roots {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func newSchema(types []*Type) *Schema {
	s := &Schema{
		types:  types,
		byName: make(map[string]*Type, len(types)),
		roots:  make(map[string]RootField),
	}
	for _, t := range types {
		s.byName[t.Name] = t
		if t.Excluded(OpRead) {
			continue
		}
		plural := PluralName(t.Name)
		s.roots[plural] = RootField{Type: t}
		s.roots[plural+"Count"] = RootField{Type: t, Count: true}
	}
	return s
}
