// Package config reads the service configuration from the process environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
)

// ErrMissingConfig is returned by Load when required variables are unset.
var ErrMissingConfig = errors.New("missing required configuration")

// Environment variable names.
const (
	EnvNeo4jURI          = "NEO4J_URI"
	EnvNeo4jUser         = "NEO4J_USER"
	EnvNeo4jPassword     = "NEO4J_PASSWORD"
	EnvNeo4jDatabase     = "NEO4J_DATABASE"
	EnvNeo4jQueryTimeout = "NEO4J_QUERY_TIMEOUT"
	EnvPort              = "PORT"
	EnvGraphQLPath       = "GRAPHQL_PATH"
	EnvPlayground        = "GRAPHQL_PLAYGROUND"
	EnvMaxDepth          = "GRAPHQL_MAX_DEPTH"
	EnvRequestTimeout    = "REQUEST_TIMEOUT"
)

// Config is the complete service configuration.
type Config struct {
	Neo4jURI      string
	Neo4jUser     string
	Neo4jPassword string
	// Neo4jDatabase selects the database; empty uses the server default.
	Neo4jDatabase string
	// QueryTimeout bounds each transaction on the server. Zero keeps the server default.
	QueryTimeout time.Duration

	Port string
	// MaxDepth limits selection nesting. Zero disables the limit.
	MaxDepth int

	HTTP
}

// HTTP holds the transport settings. None of them is required, so they can be
// read before the rest of the configuration is known to be valid.
type HTTP struct {
	GraphQLPath string
	Playground  bool
	// RequestTimeout bounds the handling of one request. Zero disables it.
	RequestTimeout time.Duration
}

// LoadHTTP reads the transport settings, applying defaults.
func LoadHTTP() HTTP {
	return HTTP{
		GraphQLPath:    GetEnv(EnvGraphQLPath, "/api/graphql"),
		Playground:     GetEnvBool(EnvPlayground, true),
		RequestTimeout: GetDuration(EnvRequestTimeout, 30*time.Second),
	}
}

// Load reads the configuration. Every missing required variable is named in the
// returned error, which wraps ErrMissingConfig.
func Load() (*Config, error) {
	var missing []string
	require := func(key string) string {
		value := strings.TrimSpace(os.Getenv(key))
		if value == "" {
			missing = append(missing, key)
		}
		return value
	}

	cfg := &Config{
		Neo4jURI:      require(EnvNeo4jURI),
		Neo4jUser:     require(EnvNeo4jUser),
		Neo4jPassword: require(EnvNeo4jPassword),
		Neo4jDatabase: GetEnv(EnvNeo4jDatabase, ""),
		QueryTimeout:  GetDuration(EnvNeo4jQueryTimeout, 0),
		Port:          GetEnv(EnvPort, "8080"),
		MaxDepth:      GetEnvInt(EnvMaxDepth, 10),
		HTTP:          LoadHTTP(),
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}
	return cfg, nil
}
