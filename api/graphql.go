// Package api is the serverless entry point of the GraphQL API. Hosting platforms
// call Handler once per request; the router and the execution pipeline behind it
// are created on the first call and reused by every later call in the process.
package api

import (
	"net/http"
	"sync"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/config"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/logging"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/server"
)

const serviceName = "newsgraph"

var (
	setup   sync.Once
	handler http.Handler
)

// Handler serves one request. Configuration errors are not fatal here: they put
// the pipeline in the failed state and every request gets a 503.
func Handler(w http.ResponseWriter, r *http.Request) {
	setup.Do(func() {
		logger := logging.NewLoggerWithService(serviceName)
		config.LoadEnv(logger)

		metrics := server.NewMetrics(serviceName)
		app := server.NewApp(server.NewBuilder(config.Load, schema.NewsTypeDefs, logger, metrics), logger, metrics.SetState)
		handler = server.NewRouter(app, server.RouterConfigFromEnv(serviceName), logger, metrics)
	})
	handler.ServeHTTP(w, r)
}
