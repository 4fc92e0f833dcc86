package newsgraph

import (
	"context"
	"errors"
	"fmt"
	"reflect"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// ErrNotFound is a sentinel error returned by Find operations when no record
// matching the criteria is found in the database.
var ErrNotFound = errors.New("record not found")

// Repository provides typed, read-only access to the nodes of one entity type T.
// It relies on `graph` struct tags to map struct fields to node properties.
type Repository[T any] struct {
	runner DBRunner
	meta   *entityMetadata
}

// NewRepository creates a new generic repository for the type T.
// It parses the struct tags of T to understand its mapping to a Neo4j node.
//
// Parameters:
//   - runner: An instance of DBRunner, used to execute all Cypher queries.
//
// Returns:
//
//	A new Repository instance or an error if the struct tags are invalid.
func NewRepository[T any](runner DBRunner) (*Repository[T], error) {
	meta, err := parseTags[T]()
	if err != nil {
		return nil, err
	}
	return &Repository[T]{
		runner: runner,
		meta:   meta,
	}, nil
}

// Label returns the node label the repository reads from.
func (r *Repository[T]) Label() string {
	return r.meta.Label
}

// KeyProperty returns the database property holding the lookup key.
func (r *Repository[T]) KeyProperty() string {
	return r.meta.PKProp
}

// FindByID retrieves a single entity from the database by its key property.
//
// Returns:
//
//	A pointer to the found entity, ErrNotFound if no record is found, or another
//	error if the query or mapping fails.
func (r *Repository[T]) FindByID(ctx context.Context, id interface{}) (*T, error) {
	props := map[string]interface{}{r.meta.PKProp: id}
	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(props)).
		Return("n")
	return r.FindOne(ctx, qb)
}

// FindByProperty retrieves every entity whose mapped property equals value.
// The property may be given either as the database property or as the struct field name.
func (r *Repository[T]) FindByProperty(ctx context.Context, property string, value interface{}) ([]*T, error) {
	prop, ok := r.meta.property(property)
	if !ok {
		return nil, fmt.Errorf("property %q is not mapped on %s", property, r.meta.Label)
	}
	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("n", r.meta.Label).WithProperties(map[string]interface{}{prop: value})).
		Return("n")
	return r.Find(ctx, qb)
}

// Count returns the number of nodes carrying the repository's label.
func (r *Repository[T]) Count(ctx context.Context) (int64, error) {
	query := fmt.Sprintf("MATCH (n:`%s`) RETURN count(n) AS total", r.meta.Label)
	return r.count(ctx, query, nil)
}

// CountByProperty returns the number of nodes whose mapped property equals value.
func (r *Repository[T]) CountByProperty(ctx context.Context, property string, value interface{}) (int64, error) {
	prop, ok := r.meta.property(property)
	if !ok {
		return 0, fmt.Errorf("property %q is not mapped on %s", property, r.meta.Label)
	}
	query := fmt.Sprintf("MATCH (n:`%s`) WHERE n.`%s` = $value RETURN count(n) AS total", r.meta.Label, prop)
	return r.count(ctx, query, map[string]interface{}{"value": value})
}

func (r *Repository[T]) count(ctx context.Context, query string, params map[string]interface{}) (int64, error) {
	eagerResult, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return 0, err
	}
	if len(eagerResult.Records) == 0 {
		return 0, nil
	}
	total, ok := eagerResult.Records[0].Get("total")
	if !ok {
		return 0, fmt.Errorf("could not find return value 'total' in query result")
	}
	n, ok := total.(int64)
	if !ok {
		return 0, fmt.Errorf("return value 'total' is %T, not an integer", total)
	}
	return n, nil
}

// Find executes a caller-built query that returns nodes under the alias "n" and
// maps every record to T. An empty result is not an error.
func (r *Repository[T]) Find(ctx context.Context, qb *gocypher.QueryBuilder) ([]*T, error) {
	query, params, err := qb.Build()
	if err != nil {
		return nil, fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := r.runner.Run(ctx, query, params)
	if err != nil {
		return nil, err
	}

	entities := make([]*T, 0, len(eagerResult.Records))
	for _, record := range eagerResult.Records {
		entity, err := r.entityFromRecord(record)
		if err != nil {
			return nil, err
		}
		entities = append(entities, entity)
	}
	return entities, nil
}

// FindOne is like Find for queries that must match exactly one node.
// Zero records yields ErrNotFound and more than one is reported as an integrity error.
func (r *Repository[T]) FindOne(ctx context.Context, qb *gocypher.QueryBuilder) (*T, error) {
	entities, err := r.Find(ctx, qb)
	if err != nil {
		return nil, err
	}
	switch len(entities) {
	case 0:
		return nil, ErrNotFound
	case 1:
		return entities[0], nil
	default:
		return nil, fmt.Errorf("expected 1 record but found %d", len(entities))
	}
}

func (r *Repository[T]) entityFromRecord(record *neo4j.Record) (*T, error) {
	nodeValue, ok := record.Get("n")
	if !ok {
		return nil, fmt.Errorf("could not find return value 'n' in query result")
	}

	node, ok := nodeValue.(neo4j.Node)
	if !ok {
		return nil, fmt.Errorf("return value 'n' is not a node")
	}

	entity := new(T)
	if err := mapNodeToStruct(node, entity, r.meta); err != nil {
		return nil, err
	}
	return entity, nil
}

// mapNodeToStruct populates a struct's fields from a neo4j.Node's properties,
// based on the parsed metadata. Driver values are converted to the field type
// when the types are convertible (int64 to int, neo4j.Date to time.Time, ...).
func mapNodeToStruct(node neo4j.Node, entity any, meta *entityMetadata) error {
	val := reflect.ValueOf(entity).Elem()

	for fieldName, propName := range meta.Mappings {
		field := val.FieldByName(fieldName)
		if !field.IsValid() || !field.CanSet() {
			continue
		}

		propValue, ok := node.Props[propName]
		if !ok || propValue == nil {
			continue
		}

		v := reflect.ValueOf(propValue)
		switch {
		case v.Type().AssignableTo(field.Type()):
			field.Set(v)
		case v.Type().ConvertibleTo(field.Type()) && v.Kind() != reflect.String && field.Kind() != reflect.String:
			field.Set(v.Convert(field.Type()))
		default:
			return fmt.Errorf("property %s of %s holds %T which does not fit field %s (%s)",
				propName, meta.Label, propValue, fieldName, field.Type())
		}
	}
	return nil
}
