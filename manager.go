package newsgraph

import (
	"context"
	"errors"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/models"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

// GraphManager is the entry point of the persistence layer for callers that work
// with raw graph shapes rather than GraphQL selections. It hands out typed
// repositories and retrieves node/edge neighbourhoods.
type GraphManager struct {
	runner DBRunner
}

// NewGraphManager creates a new instance of the GraphManager.
func NewGraphManager(runner DBRunner) *GraphManager {
	return &GraphManager{runner: runner}
}

// RepositoryFor is a generic function that creates and returns a repository
// for a specific struct type T, managed by the given GraphManager.
func RepositoryFor[T any](gm *GraphManager) (*Repository[T], error) {
	return NewRepository[T](gm.runner)
}

// Hop describes one outbound relationship type to expand from a root node.
type Hop struct {
	// Type is the relationship type, e.g. "HAS_TOPIC".
	Type string
	// Target is the label of the node at the other end, e.g. "Topic".
	Target string
}

// FindGraph executes a graph query defined by a gocypher.QueryBuilder and maps the result
// into a generic graph structure composed of nodes and edges.
//
// The caller is responsible for constructing a valid query via the QueryBuilder, including
// a RETURN clause that specifies which nodes and relationships should be included in the
// final graph. For example, `RETURN a, r, n`. Nodes and relationships returned in several
// rows appear once in the result.
//
// Returns:
//   - A pointer to a models.GraphResult containing the de-duplicated nodes and edges from the query.
//   - An ErrNotFound error if the query executes successfully but returns zero records.
//   - Any other error encountered during query building or execution.
func (gm *GraphManager) FindGraph(ctx context.Context, qb *gocypher.QueryBuilder) (*models.GraphResult, error) {
	builder := newGraphBuilder()
	if err := gm.collect(ctx, qb, builder); err != nil {
		return nil, err
	}
	return builder.graph, nil
}

// Neighbourhood returns the node labelled rootLabel whose properties match rootProps,
// together with every node reachable through one of the given outbound hops and the
// relationships leading there.
//
// Returns ErrNotFound when the root node does not exist. A root without neighbours
// yields a graph holding the root alone.
func (gm *GraphManager) Neighbourhood(ctx context.Context, rootLabel string, rootProps map[string]interface{}, hops []Hop) (*models.GraphResult, error) {
	builder := newGraphBuilder()

	rootQuery := gocypher.NewQueryBuilder().
		Match(gocypher.N("a", rootLabel).WithProperties(rootProps)).
		Return("a")
	if err := gm.collect(ctx, rootQuery, builder); err != nil {
		return nil, err
	}
	if len(builder.graph.Nodes) > 0 {
		builder.graph.Root = builder.graph.Nodes[0].ID
	}

	for _, hop := range hops {
		qb := gocypher.NewQueryBuilder().
			Match(gocypher.N("a", rootLabel).WithProperties(rootProps)).
			Match(
				gocypher.NRef("a"),
				gocypher.R("r", hop.Type).To(),
				gocypher.N("n", hop.Target),
			).
			Return("a", "r", "n")

		err := gm.collect(ctx, qb, builder)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("expanding %s: %w", hop.Type, err)
		}
	}

	return builder.graph, nil
}

// collect runs the query and folds every node and relationship of the result into b.
func (gm *GraphManager) collect(ctx context.Context, qb *gocypher.QueryBuilder, b *graphBuilder) error {
	query, params, err := qb.Build()
	if err != nil {
		return fmt.Errorf("could not build query: %w", err)
	}

	eagerResult, err := gm.runner.Run(ctx, query, params)
	if err != nil {
		return err
	}

	if len(eagerResult.Records) == 0 {
		return ErrNotFound
	}

	for _, record := range eagerResult.Records {
		for _, value := range record.Values {
			b.add(value)
		}
	}
	return nil
}

// graphBuilder accumulates a GraphResult while de-duplicating by element id.
type graphBuilder struct {
	graph       *models.GraphResult
	seenNodeIDs map[string]bool
	seenEdgeIDs map[string]bool
}

func newGraphBuilder() *graphBuilder {
	return &graphBuilder{
		graph: &models.GraphResult{
			Nodes: make([]*models.GraphNode, 0),
			Edges: make([]*models.Edge, 0),
		},
		seenNodeIDs: make(map[string]bool),
		seenEdgeIDs: make(map[string]bool),
	}
}

func (b *graphBuilder) add(value any) {
	switch v := value.(type) {
	case neo4j.Node:
		if !b.seenNodeIDs[v.ElementId] {
			b.graph.Nodes = append(b.graph.Nodes, &models.GraphNode{
				ID:         v.ElementId,
				Labels:     v.Labels,
				Properties: plainProperties(v.Props),
			})
			b.seenNodeIDs[v.ElementId] = true
		}

	case neo4j.Relationship:
		if !b.seenEdgeIDs[v.ElementId] {
			b.graph.Edges = append(b.graph.Edges, &models.Edge{
				ID:         v.ElementId,
				Source:     v.StartElementId,
				Target:     v.EndElementId,
				Type:       v.Type,
				Properties: plainProperties(v.Props),
			})
			b.seenEdgeIDs[v.ElementId] = true
		}
	}
}

// plainProperties converts temporal driver values, which carry no JSON encoding,
// into their ISO-8601 text form.
func plainProperties(props map[string]any) map[string]any {
	out := make(map[string]any, len(props))
	for k, v := range props {
		switch t := v.(type) {
		case neo4j.Date:
			out[k] = t.String()
		case neo4j.LocalDateTime:
			out[k] = t.String()
		case neo4j.LocalTime:
			out[k] = t.String()
		default:
			out[k] = v
		}
	}
	return out
}
