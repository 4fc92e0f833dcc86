// Package models contains the domain entities and data transfer objects for the application.
// The entity structs use `graph` struct tags to describe their mapping to Neo4j nodes and
// are read through the typed repositories of the root package.
package models

import "time"

// Article is a news article, the centre of the graph. Every other entity hangs off it.
type Article struct {
	// URL is the canonical address of the article and its lookup key.
	URL string `graph:"pk,property:url"`

	Title    string `graph:"property:title"`
	Abstract string `graph:"property:abstract"`

	// Published is stored as a Neo4j Date.
	Published time.Time `graph:"property:published"`
}

// Topic is a subject an article is tagged with.
type Topic struct {
	Name string `graph:"pk,property:name"`
}

// Photo is the lead image of an article.
type Photo struct {
	URL     string `graph:"pk,property:url"`
	Caption string `graph:"property:caption"`
}
