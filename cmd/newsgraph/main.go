// Command newsgraph serves the news graph GraphQL API as a long-running HTTP server.
package main

import (
	"context"
	"time"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/config"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/logging"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/server"
)

const serviceName = "newsgraph"

func main() {
	logger := logging.NewLoggerWithService(serviceName)
	config.LoadEnv(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("Invalid configuration")
	}

	metrics := server.NewMetrics(serviceName)
	load := func() (*config.Config, error) { return cfg, nil }
	app := server.NewApp(server.NewBuilder(load, schema.NewsTypeDefs, logger, metrics), logger, metrics.SetState)

	// Build eagerly so that a broken schema stops the process at startup.
	initCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	components, err := app.Init(initCtx)
	cancel()
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize")
	}

	verifyCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := components.DB.Verify(verifyCtx); err != nil {
		logger.WithError(err).Warn("Neo4j is not reachable yet; requests will fail until it is")
	}
	cancel()

	router := server.NewRouter(app, server.NewRouterConfig(serviceName, cfg.HTTP), logger, metrics)

	if err := server.Start(server.DefaultServeConfig(serviceName, cfg.Port), router, logger, app.Close); err != nil {
		logger.WithError(err).Fatal("Server error")
	}
}
