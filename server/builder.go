package server

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	newsgraph "github.com/saulfrancisco-ruizacevedo/go-newsgraph"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/config"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/models"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/resolve"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
)

// NewBuilder returns the production Builder: it reads the configuration, loads the
// type definitions and creates the Neo4j driver. The driver connects lazily, so a
// database outage surfaces per request rather than at initialization.
func NewBuilder(load func() (*config.Config, error), typeDefs string, log logrus.FieldLogger, metrics *Metrics) Builder {
	return func(ctx context.Context) (*Components, error) {
		cfg, err := load()
		if err != nil {
			return nil, err
		}

		s, err := schema.Load(typeDefs)
		if err != nil {
			return nil, err
		}

		executor, err := newsgraph.NewNeo4jExecutor(cfg.Neo4jURI, cfg.Neo4jUser, cfg.Neo4jPassword, cfg.Neo4jDatabase)
		if err != nil {
			return nil, err
		}
		executor.QueryTimeout = cfg.QueryTimeout

		components, err := Assemble(s, executor, cfg.MaxDepth, log, metrics)
		if err != nil {
			_ = executor.Close(ctx)
			return nil, err
		}
		log.WithFields(logrus.Fields{
			"neo4j_uri": cfg.Neo4jURI,
			"database":  cfg.Neo4jDatabase,
			"types":     len(s.Types()),
		}).Info("GraphQL pipeline assembled")
		return components, nil
	}
}

// Assemble wires the pipeline around an already created database. metrics may be nil.
func Assemble(s *schema.Schema, db Database, maxDepth int, log logrus.FieldLogger, metrics *Metrics) (*Components, error) {
	api, err := s.APISchema()
	if err != nil {
		return nil, err
	}

	opts := []resolve.Option{resolve.WithLogger(log), resolve.WithMaxDepth(maxDepth)}
	if metrics != nil {
		opts = append(opts, resolve.WithFieldObserver(metrics.ObserveField))
	}

	graph := newsgraph.NewGraphManager(db)
	// The explorer maps articles through the typed repository; fail early if the
	// model no longer fits.
	if _, err := newsgraph.RepositoryFor[models.Article](graph); err != nil {
		return nil, fmt.Errorf("article model: %w", err)
	}

	return &Components{
		Schema:      s,
		Resolver:    resolve.NewResolver(s, api, db, opts...),
		Graph:       graph,
		DB:          db,
		ArticleHops: outboundHops(s.Type("Article")),
	}, nil
}

// outboundHops lists the outbound relationships of t as explorer hops.
func outboundHops(t *schema.Type) []newsgraph.Hop {
	if t == nil {
		return nil
	}
	var hops []newsgraph.Hop
	for _, f := range t.Fields {
		if f.Kind != schema.RelationshipField || f.Relationship.Direction != schema.Out {
			continue
		}
		hops = append(hops, newsgraph.Hop{Type: f.Relationship.Label, Target: f.Relationship.Target})
	}
	return hops
}
