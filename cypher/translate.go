package cypher

import (
	"errors"
	"fmt"
	"strings"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
)

// ErrInvalidArgument marks translation failures caused by argument values, such as
// a negative limit. Callers report them as user input errors.
var ErrInvalidArgument = errors.New("invalid argument")

// Translate builds the statement resolving one root field of the query API.
//
// List entry points return one record per matched node under ColumnThis, each a map
// keyed by response key. Count entry points return a single record under ColumnCount.
func Translate(s *schema.Schema, root *Field) (*Statement, error) {
	entry, ok := s.Root(root.Name)
	if !ok {
		return nil, fmt.Errorf("no entry point named %s", root.Name)
	}

	tr := &translator{schema: s, params: make(map[string]interface{})}
	b := &block{}
	const node = "this"

	b.line("MATCH (%s:%s)", node, escape(entry.Type.Label()))
	where, err := tr.where(node, entry.Type, root.Arguments["where"])
	if err != nil {
		return nil, err
	}
	if where != "" {
		b.line("WHERE %s", where)
	}

	if entry.Count {
		b.line("RETURN count(%s) AS %s", node, ColumnCount)
		return &Statement{Query: b.String(), Params: tr.params}, nil
	}

	order, page, err := tr.options(node, entry.Type, root.Arguments["options"])
	if err != nil {
		return nil, err
	}
	if order != "" || page != "" {
		b.line("WITH *%s%s", order, page)
	}
	projection, err := tr.projection(b, node, entry.Type, root.SelectionSet)
	if err != nil {
		return nil, err
	}
	if order != "" {
		b.line("WITH *%s", order)
	}
	b.line("RETURN %s %s AS %s", node, projection, ColumnThis)

	return &Statement{Query: b.String(), Params: tr.params}, nil
}

type translator struct {
	schema *schema.Schema
	params map[string]interface{}
	vars   int
}

// param binds v to a fresh parameter and returns its reference.
func (tr *translator) param(v interface{}) string {
	name := fmt.Sprintf("param%d", len(tr.params))
	tr.params[name] = v
	return "$" + name
}

func (tr *translator) variable(prefix string) string {
	v := fmt.Sprintf("%s%d", prefix, tr.vars)
	tr.vars++
	return v
}

// projection emits the subqueries the selection needs and returns the map projection
// of node, e.g. `{ .title, topics: var1 }`.
func (tr *translator) projection(b *block, node string, t *schema.Type, selection []*Field) (string, error) {
	items := make([]string, 0, len(selection))
	for _, f := range selection {
		if f.Name == "__typename" {
			continue
		}
		fd := t.Field(f.Name)
		if fd == nil {
			return "", fmt.Errorf("%s has no field %s", t.Name, f.Name)
		}
		key := f.ResponseKey()

		switch fd.Kind {
		case schema.ScalarField:
			if key == fd.Name {
				items = append(items, "."+fd.Name)
			} else {
				items = append(items, fmt.Sprintf("%s: %s.%s", key, node, fd.Name))
			}
		case schema.RelationshipField:
			result, err := tr.relationship(b, node, fd, f)
			if err != nil {
				return "", err
			}
			items = append(items, fmt.Sprintf("%s: %s", key, result))
		case schema.ComputedField:
			result, err := tr.computed(b, node, fd, f)
			if err != nil {
				return "", err
			}
			items = append(items, fmt.Sprintf("%s: %s", key, result))
		}
	}
	if len(items) == 0 {
		return "{}", nil
	}
	return "{ " + strings.Join(items, ", ") + " }", nil
}

func (tr *translator) relationship(b *block, parent string, fd *schema.Field, f *Field) (string, error) {
	rel := fd.Relationship
	target := tr.schema.Type(rel.Target)
	child := tr.variable("this")
	result := tr.variable("var")

	b.line("CALL {")
	b.indent++
	b.line("WITH %s", parent)
	b.line("MATCH %s", pattern(parent, rel, child, target.Label()))

	where, err := tr.where(child, target, f.Arguments["where"])
	if err != nil {
		return "", err
	}
	if where != "" {
		b.line("WHERE %s", where)
	}

	var order, page string
	if rel.Cardinality == schema.Many {
		if order, page, err = tr.options(child, target, f.Arguments["options"]); err != nil {
			return "", err
		}
	}
	if order != "" || page != "" {
		b.line("WITH *%s%s", order, page)
	}

	projection, err := tr.projection(b, child, target, f.SelectionSet)
	if err != nil {
		return "", err
	}
	if order != "" {
		b.line("WITH *%s", order)
	}
	b.line("RETURN %s AS %s", collect(rel.Cardinality, child+" "+projection), result)
	b.indent--
	b.line("}")
	return result, nil
}

// computed runs the field's statement verbatim with parent bound as `this`.
// Ordering and limits come from the statement alone.
func (tr *translator) computed(b *block, parent string, fd *schema.Field, f *Field) (string, error) {
	c := fd.Computed
	child := tr.variable("this")
	result := tr.variable("var")

	b.line("CALL {")
	b.indent++
	b.line("WITH %s", parent)
	b.line("CALL {")
	b.indent++
	b.line("WITH %s", parent)
	b.line("WITH %s AS this", parent)
	for _, l := range strings.Split(strings.TrimSpace(c.Statement), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			b.line("%s", l)
		}
	}
	b.indent--
	b.line("}")
	b.line("WITH %s AS %s", escape(c.Column), child)

	value := child
	if c.Target != "" {
		nested := &block{indent: b.indent}
		projection, err := tr.projection(nested, child, tr.schema.Type(c.Target), f.SelectionSet)
		if err != nil {
			return "", err
		}
		value = child + " " + projection

		// Nested subqueries may reorder rows, so the statement's order is
		// recorded as an index and restored before collecting.
		if len(nested.lines) > 0 {
			rows := tr.variable("rows")
			index := tr.variable("index")
			b.line("WITH collect(%s) AS %s", child, rows)
			b.line("UNWIND range(0, size(%s) - 1) AS %s", rows, index)
			b.line("WITH %s[%s] AS %s, %s", rows, index, child, index)
			b.lines = append(b.lines, nested.lines...)
			b.line("WITH * ORDER BY %s", index)
		}
	}
	b.line("RETURN %s AS %s", collect(c.Cardinality, value), result)
	b.indent--
	b.line("}")
	return result, nil
}

// options renders the ORDER BY and SKIP/LIMIT clauses of an options argument.
// Both come back with a leading space, or empty.
func (tr *translator) options(node string, t *schema.Type, raw interface{}) (string, string, error) {
	if raw == nil {
		return "", "", nil
	}
	opts, ok := raw.(map[string]interface{})
	if !ok {
		return "", "", fmt.Errorf("%w: options must be an object", ErrInvalidArgument)
	}

	var order string
	if rawSort, ok := opts["sort"]; ok && rawSort != nil {
		var items []string
		for _, elem := range asList(rawSort) {
			m, ok := elem.(map[string]interface{})
			if !ok {
				return "", "", fmt.Errorf("%w: sort entries must be objects", ErrInvalidArgument)
			}
			for _, key := range sortedKeys(m) {
				if m[key] == nil {
					continue
				}
				fd := t.Field(key)
				if fd == nil || fd.Kind != schema.ScalarField || !fd.Scalar.Sortable() {
					return "", "", fmt.Errorf("%w: cannot sort %s by %s", ErrInvalidArgument, t.Name, key)
				}
				dir := fmt.Sprint(m[key])
				if dir != "ASC" && dir != "DESC" {
					return "", "", fmt.Errorf("%w: sort direction must be ASC or DESC, got %s", ErrInvalidArgument, dir)
				}
				items = append(items, fmt.Sprintf("%s.%s %s", node, fd.Name, dir))
			}
		}
		if len(items) > 0 {
			order = " ORDER BY " + strings.Join(items, ", ")
		}
	}

	var page string
	for _, clause := range []struct{ key, keyword string }{{"offset", "SKIP"}, {"limit", "LIMIT"}} {
		v, ok := opts[clause.key]
		if !ok || v == nil {
			continue
		}
		n, err := toInt64(v)
		if err != nil {
			return "", "", fmt.Errorf("%w: %s: %v", ErrInvalidArgument, clause.key, err)
		}
		if n < 0 {
			return "", "", fmt.Errorf("%w: %s must not be negative", ErrInvalidArgument, clause.key)
		}
		page += fmt.Sprintf(" %s %s", clause.keyword, tr.param(n))
	}
	return order, page, nil
}

func collect(c schema.Cardinality, expr string) string {
	if c == schema.Many {
		return "collect(" + expr + ")"
	}
	return "head(collect(" + expr + "))"
}

func pattern(parent string, rel *schema.Relationship, child, label string) string {
	if rel.Direction == schema.In {
		return fmt.Sprintf("(%s)<-[:%s]-(%s:%s)", parent, escape(rel.Label), child, escape(label))
	}
	return fmt.Sprintf("(%s)-[:%s]->(%s:%s)", parent, escape(rel.Label), child, escape(label))
}

func escape(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}

type block struct {
	lines  []string
	indent int
}

func (b *block) line(format string, args ...interface{}) {
	b.lines = append(b.lines, strings.Repeat("    ", b.indent)+fmt.Sprintf(format, args...))
}

func (b *block) String() string {
	return strings.Join(b.lines, "\n")
}
