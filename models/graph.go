package models

// The structs in this file represent a generic graph structure, the shape served by the
// neighbourhood explorer endpoint to graph visualisation clients.

// GraphNode represents a generic node from a Neo4j graph.
// It is a domain-agnostic representation, capturing the essential components of any node:
// its unique internal ID, its labels, and its properties. This struct is designed to be
// easily serialized to JSON.
type GraphNode struct {
	// ID is the unique internal identifier assigned by Neo4j to the node (ElementId).
	ID string `json:"id"`

	// Labels is a slice of strings containing all the labels attached to the node (e.g., ["Article"]).
	Labels []string `json:"labels"`

	// Properties is a map containing the key-value properties of the node.
	Properties map[string]interface{} `json:"properties"`
}

// Edge represents a generic relationship (or edge) between two nodes in a Neo4j graph.
// It includes the relationship's unique ID, its type, its properties, and the unique
// ElementIds of the source and target nodes it connects.
type Edge struct {
	// ID is the unique internal identifier assigned by Neo4j to the relationship (ElementId).
	ID string `json:"id"`

	// Source is the ElementId of the node where the relationship starts.
	Source string `json:"source"`

	// Target is the ElementId of the node where the relationship ends.
	Target string `json:"target"`

	// Type is the relationship's type (e.g., "HAS_TOPIC", "BYLINE").
	Type string `json:"type"`

	// Properties is a map containing the key-value properties of the relationship.
	Properties map[string]interface{} `json:"properties"`
}

// GraphResult is the container for a graph query result: a list of nodes and a list of
// edges, the format consumed by most graph visualization libraries.
type GraphResult struct {
	// Root is the ElementId of the node the neighbourhood was expanded from.
	// It is empty for results of arbitrary graph queries.
	Root string `json:"root,omitempty"`

	// Nodes contains all the unique nodes retrieved by the query.
	Nodes []*GraphNode `json:"nodes"`

	// Edges contains all the unique relationships retrieved by the query.
	Edges []*Edge `json:"edges"`
}

// Node returns the node with the given ElementId, or nil.
func (g *GraphResult) Node(id string) *GraphNode {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n
		}
	}
	return nil
}
