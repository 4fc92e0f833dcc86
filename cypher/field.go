// Package cypher translates GraphQL selections over a schema.Schema into Cypher.
//
// Every root field becomes one statement resolving the whole selection, nested
// relationship and computed fields included, in a single round trip.
package cypher

import (
	"github.com/vektah/gqlparser/v2/ast"
)

// Field is a merged, directive-free selection: fragments are already inlined and
// @skip/@include already applied.
type Field struct {
	Alias string
	Name  string
	// Arguments are the coerced argument values, variables substituted.
	Arguments map[string]interface{}
	// Definition is the API field definition, used to complete the result.
	Definition *ast.FieldDefinition
	Position   *ast.Position

	SelectionSet []*Field
}

// ResponseKey is the key of the field in the response object.
func (f *Field) ResponseKey() string {
	if f.Alias != "" {
		return f.Alias
	}
	return f.Name
}

// Statement is a Cypher query with its parameters.
type Statement struct {
	Query  string
	Params map[string]interface{}
}

// Result columns produced by Translate.
const (
	// ColumnThis holds one projected node per record.
	ColumnThis = "this"
	// ColumnCount holds the single count of a count root field.
	ColumnCount = "count"
)
