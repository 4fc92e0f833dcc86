package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/99designs/gqlgen/graphql/playground"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/gqlerror"

	newsgraph "github.com/saulfrancisco-ruizacevedo/go-newsgraph"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/config"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/models"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/resolve"
	"github.com/saulfrancisco-ruizacevedo/gocypher"
)

const (
	operationKey   = "graphql_operation"
	maxRequestBody = 1 << 20
)

// RouterConfig holds the HTTP settings that are needed before the pipeline exists.
type RouterConfig struct {
	ServiceName string
	GraphQLPath string
	Playground  bool
	// RequestTimeout bounds one request. Zero disables it.
	RequestTimeout time.Duration
}

// NewRouterConfig builds the router settings from the loaded transport configuration.
func NewRouterConfig(serviceName string, transport config.HTTP) RouterConfig {
	return RouterConfig{
		ServiceName:    serviceName,
		GraphQLPath:    transport.GraphQLPath,
		Playground:     transport.Playground,
		RequestTimeout: transport.RequestTimeout,
	}
}

// RouterConfigFromEnv reads only the router settings, for callers that must serve
// before the full configuration has been validated.
func RouterConfigFromEnv(serviceName string) RouterConfig {
	return NewRouterConfig(serviceName, config.LoadHTTP())
}

type handlers struct {
	app *App
	cfg RouterConfig
	log logrus.FieldLogger
}

// NewRouter creates the gin engine serving the API. metrics may be nil.
func NewRouter(app *App, cfg RouterConfig, logger logrus.FieldLogger, metrics *Metrics) *gin.Engine {
	if config.GetEnv("GIN_MODE", "debug") == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(RecoveryMiddleware(logger))
	if metrics != nil {
		router.Use(metrics.Middleware())
		router.GET("/metrics", metrics.Handler())
	}

	h := &handlers{app: app, cfg: cfg, log: logger}
	router.POST(cfg.GraphQLPath, h.graphqlPost)
	router.GET(cfg.GraphQLPath, h.graphqlGet)
	router.GET("/api/graph", h.graph)
	router.GET("/api/topic", h.topicGraph)
	router.GET("/api/stats", h.stats)
	router.GET("/health", h.health)

	return router
}

func (h *handlers) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	if h.cfg.RequestTimeout > 0 {
		return context.WithTimeout(c.Request.Context(), h.cfg.RequestTimeout)
	}
	return context.WithCancel(c.Request.Context())
}

func (h *handlers) graphqlPost(c *gin.Context) {
	req, err := decodeRequest(c.Request)
	if err != nil {
		writeErrors(c, http.StatusBadRequest, resolve.RequestError(resolve.CodeBadRequest, "%s", err.Error()))
		return
	}
	h.execute(c, req)
}

func (h *handlers) graphqlGet(c *gin.Context) {
	query := c.Query("query")
	if query == "" {
		if !h.cfg.Playground {
			writeErrors(c, http.StatusBadRequest, resolve.RequestError(resolve.CodeBadRequest, "no query provided"))
			return
		}
		playground.Handler(h.cfg.ServiceName, h.cfg.GraphQLPath).ServeHTTP(c.Writer, c.Request)
		return
	}

	req := &resolve.Request{Query: query, OperationName: c.Query("operationName")}
	if raw := c.Query("variables"); raw != "" {
		if err := unmarshalNumbers([]byte(raw), &req.Variables); err != nil {
			writeErrors(c, http.StatusBadRequest, resolve.RequestError(resolve.CodeBadRequest, "variables must be a JSON object"))
			return
		}
	}
	h.execute(c, req)
}

func (h *handlers) execute(c *gin.Context, req *resolve.Request) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	if req.OperationName != "" {
		c.Set(operationKey, req.OperationName)
	}

	components, err := h.app.Init(ctx)
	if err != nil {
		writeErrors(c, http.StatusServiceUnavailable, resolve.RequestError(resolve.CodeServiceUnavailable, "service not ready"))
		return
	}

	resp := components.Resolver.Resolve(ctx, req)
	status := http.StatusOK
	if resp.Data == nil {
		status = http.StatusBadRequest
	}
	c.JSON(status, resp)
}

// decodeRequest reads a POST body: a JSON request object, or the bare query
// text with Content-Type application/graphql.
func decodeRequest(r *http.Request) (*resolve.Request, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody+1))
	if err != nil {
		return nil, fmt.Errorf("reading body: %w", err)
	}
	if len(body) > maxRequestBody {
		return nil, errors.New("request body too large")
	}

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/graphql" {
		return &resolve.Request{Query: string(body)}, nil
	}

	var req resolve.Request
	if err := unmarshalNumbers(body, &req); err != nil {
		return nil, errors.New("body must be a JSON object with a query")
	}
	return &req, nil
}

// unmarshalNumbers decodes JSON keeping numbers as json.Number, so integer
// variables keep their precision.
func unmarshalNumbers(data []byte, v interface{}) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

func writeErrors(c *gin.Context, status int, errs ...*gqlerror.Error) {
	c.JSON(status, &graphql.Response{Errors: errs})
}

type articleView struct {
	URL       string `json:"url"`
	Title     string `json:"title,omitempty"`
	Abstract  string `json:"abstract,omitempty"`
	Published string `json:"published,omitempty"`
}

// graph serves the neighbourhood of one article for graph visualisation.
func (h *handlers) graph(c *gin.Context) {
	url := c.Query("url")
	if url == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "url query parameter is required"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	components, err := h.app.Init(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not ready"})
		return
	}

	repo, err := newsgraph.RepositoryFor[models.Article](components.Graph)
	if err != nil {
		h.log.WithError(err).Error("Article repository")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	article, err := repo.FindByID(ctx, url)
	if errors.Is(err, newsgraph.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "article not found"})
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("url", url).Warn("Article lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "graph database query failed"})
		return
	}

	graph, err := components.Graph.Neighbourhood(ctx, repo.Label(),
		map[string]interface{}{repo.KeyProperty(): url}, components.ArticleHops)
	if err != nil {
		h.log.WithError(err).WithField("url", url).Warn("Neighbourhood lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "graph database query failed"})
		return
	}

	view := articleView{URL: article.URL, Title: article.Title, Abstract: article.Abstract}
	if !article.Published.IsZero() {
		view.Published = article.Published.Format(time.DateOnly)
	}
	c.JSON(http.StatusOK, gin.H{"article": view, "graph": graph})
}

// topicGraph serves a topic together with the articles tagged with it.
func (h *handlers) topicGraph(c *gin.Context) {
	name := c.Query("name")
	if name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name query parameter is required"})
		return
	}

	ctx, cancel := h.requestContext(c)
	defer cancel()

	components, err := h.app.Init(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not ready"})
		return
	}

	topics, err := newsgraph.RepositoryFor[models.Topic](components.Graph)
	if err != nil {
		h.log.WithError(err).Error("Topic repository")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}
	articles, err := newsgraph.RepositoryFor[models.Article](components.Graph)
	if err != nil {
		h.log.WithError(err).Error("Article repository")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
		return
	}

	var hop *newsgraph.Hop
	for i := range components.ArticleHops {
		if components.ArticleHops[i].Target == topics.Label() {
			hop = &components.ArticleHops[i]
			break
		}
	}
	if hop == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "articles have no topics"})
		return
	}

	n, err := topics.CountByProperty(ctx, topics.KeyProperty(), name)
	if err != nil {
		h.log.WithError(err).WithField("topic", name).Warn("Topic lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "graph database query failed"})
		return
	}
	if n == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "topic not found"})
		return
	}

	qb := gocypher.NewQueryBuilder().
		Match(gocypher.N("t", topics.Label()).WithProperties(map[string]interface{}{topics.KeyProperty(): name})).
		Match(gocypher.NRef("t"), gocypher.R("r", hop.Type).From(), gocypher.N("a", articles.Label())).
		Return("t", "r", "a")
	graph, err := components.Graph.FindGraph(ctx, qb)
	if errors.Is(err, newsgraph.ErrNotFound) {
		graph = &models.GraphResult{Nodes: []*models.GraphNode{}, Edges: []*models.Edge{}}
		err = nil
	}
	if err != nil {
		h.log.WithError(err).WithField("topic", name).Warn("Topic graph lookup failed")
		c.JSON(http.StatusBadGateway, gin.H{"error": "graph database query failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"topic": name, "articles": len(graph.Edges), "graph": graph})
}

// stats reports how many articles, topics and photos the graph holds.
func (h *handlers) stats(c *gin.Context) {
	ctx, cancel := h.requestContext(c)
	defer cancel()

	components, err := h.app.Init(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "service not ready"})
		return
	}

	counts := make(gin.H, 3)
	for key, count := range map[string]func(context.Context) (int64, error){
		"articles": counter[models.Article](components.Graph),
		"topics":   counter[models.Topic](components.Graph),
		"photos":   counter[models.Photo](components.Graph),
	} {
		n, err := count(ctx)
		if err != nil {
			h.log.WithError(err).WithField("entity", key).Warn("Count failed")
			c.JSON(http.StatusBadGateway, gin.H{"error": "graph database query failed"})
			return
		}
		counts[key] = n
	}
	c.JSON(http.StatusOK, counts)
}

func counter[T any](gm *newsgraph.GraphManager) func(context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		repo, err := newsgraph.RepositoryFor[T](gm)
		if err != nil {
			return 0, err
		}
		return repo.Count(ctx)
	}
}

func (h *handlers) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	components, err := h.app.Init(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":  "unhealthy",
			"service": h.cfg.ServiceName,
			"state":   h.app.State().String(),
		})
		return
	}
	if err := components.DB.Verify(ctx); err != nil {
		h.log.WithError(err).Warn("Health check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":   "unhealthy",
			"service":  h.cfg.ServiceName,
			"state":    h.app.State().String(),
			"database": "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":   "healthy",
		"service":  h.cfg.ServiceName,
		"state":    h.app.State().String(),
		"database": "reachable",
	})
}
