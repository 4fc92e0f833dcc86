package schema

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/go-openapi/inflect"
	"github.com/vektah/gqlparser/v2"
	"github.com/vektah/gqlparser/v2/ast"
)

// WhereInputName is the name of the generated filter input of a type.
func WhereInputName(typeName string) string { return typeName + "Where" }

// SortInputName is the name of the generated sort input of a type.
func SortInputName(typeName string) string { return typeName + "Sort" }

// OptionsInputName is the name of the generated sort and paging input of a type.
func OptionsInputName(typeName string) string { return typeName + "Options" }

// PluralName returns the Query field name listing the given type, e.g. Person → people.
// The inflect irregulars are lower case, so the first rune is lowered before
// pluralizing.
func PluralName(typeName string) string {
	r, size := utf8.DecodeRuneInString(typeName)
	return inflect.Pluralize(string(unicode.ToLower(r)) + typeName[size:])
}

// sortable reports whether the type gets a Sort input.
func sortable(t *Type) bool {
	for _, f := range t.ScalarFields() {
		if f.Scalar.Sortable() {
			return true
		}
	}
	return false
}

const apiPreamble = `
scalar Date
scalar DateTime

enum SortDirection {
  ASC
  DESC
}

type Point {
  longitude: Float!
  latitude: Float!
  height: Float
  crs: String!
  srid: Int!
}

input PointInput {
  longitude: Float!
  latitude: Float!
  height: Float
}

input PointDistance {
  point: PointInput!
  "Distance in metres for geographic points, in units otherwise."
  distance: Float!
}
`

// APITypeDefs renders the SDL of the public query API: every entity type with
// arguments on its relationship fields, the generated Where/Sort/Options inputs and
// a Query type with a list and a count entry point per readable type.
// No Mutation type is generated.
func (s *Schema) APITypeDefs() string {
	var b strings.Builder
	b.WriteString(apiPreamble)

	for _, t := range s.types {
		writeObject(&b, t)
		writeWhere(&b, t)
		if sortable(t) {
			writeSort(&b, t)
		}
		writeOptions(&b, t)
	}

	b.WriteString("\ntype Query {\n")
	for _, t := range s.types {
		if t.Excluded(OpRead) {
			continue
		}
		plural := PluralName(t.Name)
		fmt.Fprintf(&b, "  %s(where: %s, options: %s): [%s!]\n", plural, WhereInputName(t.Name), OptionsInputName(t.Name), t.Name)
		fmt.Fprintf(&b, "  %sCount(where: %s): Int\n", plural, WhereInputName(t.Name))
	}
	b.WriteString("}\n")
	return b.String()
}

// APISchema loads APITypeDefs into a validated gqlparser schema.
func (s *Schema) APISchema() (*ast.Schema, error) {
	if len(s.roots) == 0 {
		return nil, fmt.Errorf("%w: every type excludes READ, nothing can be queried", ErrInvalidSchema)
	}
	api, err := gqlparser.LoadSchema(&ast.Source{Name: "api.graphql", Input: s.APITypeDefs()})
	if err != nil {
		return nil, fmt.Errorf("%w: generated API: %v", ErrInvalidSchema, err)
	}
	return api, nil
}

func writeDescription(b *strings.Builder, indent, desc string) {
	if desc == "" {
		return
	}
	fmt.Fprintf(b, "%s\"\"\"\n%s%s\n%s\"\"\"\n", indent, indent, strings.ReplaceAll(desc, `"""`, `\"""`), indent)
}

func writeObject(b *strings.Builder, t *Type) {
	b.WriteString("\n")
	writeDescription(b, "", t.Description)
	fmt.Fprintf(b, "type %s {\n", t.Name)
	for _, f := range t.Fields {
		writeDescription(b, "  ", f.Description)
		args := ""
		if f.Kind == RelationshipField {
			target := f.Relationship.Target
			if f.Relationship.Cardinality == Many {
				args = fmt.Sprintf("(where: %s, options: %s)", WhereInputName(target), OptionsInputName(target))
			} else {
				args = fmt.Sprintf("(where: %s)", WhereInputName(target))
			}
		}
		fmt.Fprintf(b, "  %s%s: %s\n", f.Name, args, f.Type.String())
	}
	b.WriteString("}\n")
}

func filterInputType(f *Field, op FilterOperator) string {
	if f.Kind == RelationshipField {
		return WhereInputName(f.Relationship.Target)
	}
	switch op {
	case OpDistanceLT, OpDistanceLTE, OpDistanceGT, OpDistanceGTE:
		return "PointDistance"
	}
	scalar := string(f.Scalar)
	if f.Scalar == Point {
		scalar = "PointInput"
	}
	if op == OpIn || op == OpNotIn {
		return "[" + scalar + "!]"
	}
	return scalar
}

func writeWhere(b *strings.Builder, t *Type) {
	name := WhereInputName(t.Name)
	fmt.Fprintf(b, "\ninput %s {\n", name)
	for _, f := range t.Fields {
		for _, op := range FilterOperators(f) {
			fmt.Fprintf(b, "  %s%s: %s\n", f.Name, op, filterInputType(f, op))
		}
	}
	fmt.Fprintf(b, "  %s: [%s!]\n  %s: [%s!]\n}\n", FilterAnd, name, FilterOr, name)
}

func writeSort(b *strings.Builder, t *Type) {
	fmt.Fprintf(b, "\ninput %s {\n", SortInputName(t.Name))
	for _, f := range t.ScalarFields() {
		if f.Scalar.Sortable() {
			fmt.Fprintf(b, "  %s: SortDirection\n", f.Name)
		}
	}
	b.WriteString("}\n")
}

func writeOptions(b *strings.Builder, t *Type) {
	fmt.Fprintf(b, "\ninput %s {\n", OptionsInputName(t.Name))
	if sortable(t) {
		fmt.Fprintf(b, "  sort: [%s!]\n", SortInputName(t.Name))
	}
	b.WriteString("  limit: Int\n  offset: Int\n}\n")
}
