package schema

import (
	_ "embed"
)

// NewsTypeDefs is the type-definition document of the news graph.
//
//go:embed news.graphql
var NewsTypeDefs string
