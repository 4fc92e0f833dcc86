// Package resolve executes GraphQL operations against the graph database.
//
// A Resolver validates an operation against the generated query API, rejects
// anything that is not a query before the database is touched, translates every
// root field into one Cypher statement and runs the root fields concurrently.
// Results are completed into response objects that keep the requested key order.
package resolve

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/sirupsen/logrus"
	"github.com/vektah/gqlparser/v2/ast"
	"github.com/vektah/gqlparser/v2/gqlerror"
	"github.com/vektah/gqlparser/v2/parser"
	"github.com/vektah/gqlparser/v2/validator"
	"golang.org/x/sync/errgroup"

	newsgraph "github.com/saulfrancisco-ruizacevedo/go-newsgraph"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/cypher"
	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
)

// Request is the body of a GraphQL request.
type Request struct {
	Query         string                 `json:"query"`
	OperationName string                 `json:"operationName,omitempty"`
	Variables     map[string]interface{} `json:"variables,omitempty"`
}

// FieldObserver is told about every resolved root field. outcome is "ok" or the
// error code of the field.
type FieldObserver func(field, outcome string, elapsed time.Duration)

// Resolver executes read-only GraphQL operations. It is safe for concurrent use.
type Resolver struct {
	schema   *schema.Schema
	api      *ast.Schema
	runner   newsgraph.DBRunner
	log      logrus.FieldLogger
	maxDepth int
	observe  FieldObserver
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the logger used for field failures.
func WithLogger(log logrus.FieldLogger) Option {
	return func(r *Resolver) { r.log = log }
}

// WithMaxDepth rejects operations selecting deeper than n levels. Zero disables the limit.
func WithMaxDepth(n int) Option {
	return func(r *Resolver) { r.maxDepth = n }
}

// WithFieldObserver registers a callback run after every root field.
func WithFieldObserver(fn FieldObserver) Option {
	return func(r *Resolver) { r.observe = fn }
}

// NewResolver creates a Resolver answering operations on api, the schema generated
// from s, with statements run by runner.
func NewResolver(s *schema.Schema, api *ast.Schema, runner newsgraph.DBRunner, opts ...Option) *Resolver {
	r := &Resolver{
		schema: s,
		api:    api,
		runner: runner,
		log:    logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Schema returns the API schema operations are validated against.
func (r *Resolver) Schema() *ast.Schema {
	return r.api
}

// Resolve executes one operation. It never returns nil; failures are reported in
// the Errors of the response. A response without Data means the request was
// rejected before execution.
func (r *Resolver) Resolve(ctx context.Context, req *Request) *graphql.Response {
	if req == nil || strings.TrimSpace(req.Query) == "" {
		return &graphql.Response{Errors: gqlerror.List{RequestError(CodeBadRequest, "no query provided")}}
	}

	doc, parseErr := parser.ParseQuery(&ast.Source{Name: "request", Input: req.Query})
	if parseErr != nil {
		return &graphql.Response{Errors: gqlerror.List{withCode(asGQLError(parseErr), CodeValidationFailed)}}
	}

	// The operation type is checked before validation: the API has no Mutation type,
	// so validation would report a write as a plain schema mismatch.
	op, err := selectOperation(doc, req.OperationName)
	if err != nil {
		return &graphql.Response{Errors: gqlerror.List{err}}
	}
	if op.Operation != ast.Query {
		return &graphql.Response{Errors: gqlerror.List{RequestError(CodeOperationNotSupported,
			"%s operations are not supported, the API is read-only", op.Operation)}}
	}

	if errs := validator.Validate(r.api, doc); len(errs) > 0 {
		for _, e := range errs {
			withCode(e, CodeValidationFailed)
		}
		return &graphql.Response{Errors: errs}
	}

	vars, varErr := validator.VariableValues(r.api, op, req.Variables)
	if varErr != nil {
		return &graphql.Response{Errors: gqlerror.List{withCode(asGQLError(varErr), CodeBadUserInput)}}
	}

	fields := collectFields(op.SelectionSet, "Query", vars)
	if r.maxDepth > 0 {
		if d := depth(fields); d > r.maxDepth {
			return &graphql.Response{Errors: gqlerror.List{RequestError(CodeValidationFailed,
				"operation depth %d exceeds the limit of %d", d, r.maxDepth)}}
		}
	}

	return r.execute(ctx, fields)
}

func asGQLError(err error) *gqlerror.Error {
	var gqlErr *gqlerror.Error
	if errors.As(err, &gqlErr) {
		return gqlErr
	}
	return gqlerror.Errorf("%s", err.Error())
}

func selectOperation(doc *ast.QueryDocument, name string) (*ast.OperationDefinition, *gqlerror.Error) {
	if name == "" && len(doc.Operations) > 1 {
		return nil, RequestError(CodeBadRequest, "operation name is required when the document holds several operations")
	}
	op := doc.Operations.ForName(name)
	if op == nil {
		return nil, RequestError(CodeBadRequest, "operation %q not found", name)
	}
	return op, nil
}

type rootResult struct {
	value interface{}
	errs  gqlerror.List
}

// execute resolves the root fields concurrently and assembles them in request order.
func (r *Resolver) execute(ctx context.Context, fields []*cypher.Field) *graphql.Response {
	results := make([]rootResult, len(fields))

	var g errgroup.Group
	for i, f := range fields {
		g.Go(func() error {
			results[i] = r.resolveRoot(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	data := newObject()
	var errs gqlerror.List
	for i, f := range fields {
		data.Set(f.ResponseKey(), results[i].value)
		errs = append(errs, results[i].errs...)
	}

	raw, err := json.Marshal(data)
	if err != nil {
		r.log.WithError(err).Error("encoding response data")
		return &graphql.Response{Errors: gqlerror.List{RequestError(CodeInternal, "internal error")}}
	}
	return &graphql.Response{Data: raw, Errors: errs}
}

// resolveRoot answers one root field. A panic is reported as a field error so
// that sibling fields still resolve.
func (r *Resolver) resolveRoot(ctx context.Context, f *cypher.Field) (res rootResult) {
	path := ast.Path{ast.PathName(f.ResponseKey())}
	start := time.Now()
	outcome := "ok"

	defer func() {
		if p := recover(); p != nil {
			r.log.WithField("field", f.Name).WithField("stack", string(debug.Stack())).Errorf("panic resolving field: %v", p)
			res = rootResult{errs: gqlerror.List{fieldError(path, f.Position, fmt.Errorf("panic: %v", p))}}
		}
		if len(res.errs) > 0 {
			if code, ok := res.errs[0].Extensions["code"].(string); ok {
				outcome = code
			}
		}
		if r.observe != nil && !strings.HasPrefix(f.Name, "__") {
			r.observe(f.Name, outcome, time.Since(start))
		}
	}()

	switch f.Name {
	case "__typename":
		return rootResult{value: "Query"}
	case "__schema":
		return rootResult{value: r.introspectSchema(f.SelectionSet)}
	case "__type":
		name, _ := f.Arguments["name"].(string)
		return rootResult{value: r.introspectNamedType(name, f.SelectionSet)}
	}

	entry, ok := r.schema.Root(f.Name)
	if !ok || f.Definition == nil {
		return rootResult{errs: gqlerror.List{fieldError(path, f.Position, fmt.Errorf("unknown root field %s", f.Name))}}
	}

	stmt, err := cypher.Translate(r.schema, f)
	if err != nil {
		return r.failed(path, f, err)
	}
	result, err := r.runner.Run(ctx, stmt.Query, stmt.Params)
	if err != nil {
		return r.failed(path, f, err)
	}

	var raw interface{}
	if entry.Count {
		if len(result.Records) > 0 {
			raw, _ = result.Records[0].Get(cypher.ColumnCount)
		}
	} else {
		rows := make([]interface{}, 0, len(result.Records))
		for _, record := range result.Records {
			v, _ := record.Get(cypher.ColumnThis)
			rows = append(rows, v)
		}
		raw = rows
	}

	c := &completer{api: r.api}
	value, errs, _ := c.complete(path, f.Definition.Type, raw, f)
	return rootResult{value: value, errs: errs}
}

func (r *Resolver) failed(path ast.Path, f *cypher.Field, err error) rootResult {
	gqlErr := fieldError(path, f.Position, err)
	r.log.WithError(err).
		WithField("field", f.Name).
		WithField("code", gqlErr.Extensions["code"]).
		Warn("root field failed")
	return rootResult{errs: gqlerror.List{gqlErr}}
}
