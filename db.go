// Package newsgraph provides the Neo4j access layer of the news graph API.
// It wraps the official Neo4j Go driver behind a small runner interface, and
// offers typed read-only lookups and graph neighbourhood retrieval on top of it.
package newsgraph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// DBRunner defines the interface for a generic query executor.
// It abstracts the execution of a Cypher query, allowing for different implementations
// or mocking in tests.
type DBRunner interface {
	// Run executes a given Cypher query with parameters and returns a fully-buffered result.
	Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error)
}

//---

// Neo4jExecutor is a concrete implementation of the DBRunner interface that uses the
// official Neo4j Go driver. It owns the driver (and therefore the connection pool)
// and the target database name.
type Neo4jExecutor struct {
	Driver neo4j.DriverWithContext
	DBName string
	// QueryTimeout bounds every transaction on the server side. Zero keeps the
	// server default.
	QueryTimeout time.Duration
}

// NewNeo4jExecutor creates and initializes a new Neo4jExecutor.
// The driver connects lazily: no network round trip happens until the first query
// or an explicit Verify call.
//
// Parameters:
//   - uri: The connection URI for the Neo4j instance (e.g., "neo4j://localhost:7687").
//   - username: The username for authentication.
//   - password: The password for authentication.
//   - dbName: The name of the database to query. Empty selects the server default.
//
// Returns:
//
//	A pointer to the newly created Neo4jExecutor or an error if the driver creation fails.
func NewNeo4jExecutor(uri, username, password, dbName string) (*Neo4jExecutor, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(username, password, ""))
	if err != nil {
		return nil, fmt.Errorf("could not create Neo4j driver: %w", err)
	}
	return &Neo4jExecutor{Driver: driver, DBName: dbName}, nil
}

// Verify checks the connectivity to the Neo4j server.
func (e *Neo4jExecutor) Verify(ctx context.Context) error {
	return e.Driver.VerifyConnectivity(ctx)
}

// Close releases the driver and every pooled connection.
func (e *Neo4jExecutor) Close(ctx context.Context) error {
	return e.Driver.Close(ctx)
}

// Run executes a Cypher query inside a managed read transaction.
//
// A read session is borrowed from the driver's pool for the duration of the call
// and is closed on every exit path, including query and decoding failures.
// All records are buffered before the session is released.
//
// Parameters:
//   - ctx: The context for the query execution. Cancelling it aborts the transaction.
//   - query: The Cypher query string to execute.
//   - params: A map of parameters to be used in the query.
//
// Returns:
//
//	An EagerResult containing all buffered records from the query, or an error if
//	the execution fails.
func (e *Neo4jExecutor) Run(ctx context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	session := e.Driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeRead,
		DatabaseName: e.DBName,
	})
	defer session.Close(ctx)

	var txConfig []func(*neo4j.TransactionConfig)
	if e.QueryTimeout > 0 {
		txConfig = append(txConfig, neo4j.WithTxTimeout(e.QueryTimeout))
	}

	result, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, query, params)
		if err != nil {
			return nil, err
		}
		keys, err := res.Keys()
		if err != nil {
			return nil, err
		}
		records, err := res.Collect(ctx)
		if err != nil {
			return nil, err
		}
		summary, err := res.Consume(ctx)
		if err != nil {
			return nil, err
		}
		return &neo4j.EagerResult{Keys: keys, Records: records, Summary: summary}, nil
	}, txConfig...)
	if err != nil {
		return nil, fmt.Errorf("error executing neo4j query: %w", err)
	}

	return result.(*neo4j.EagerResult), nil
}
