package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/99designs/gqlgen/graphql"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
)

// fakeRunner answers every statement through respond and records what it ran.
type fakeRunner struct {
	mu      sync.Mutex
	queries []string
	respond func(query string, params map[string]interface{}) (*neo4j.EagerResult, error)
}

func (f *fakeRunner) Run(_ context.Context, query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.respond == nil {
		return &neo4j.EagerResult{}, nil
	}
	return f.respond(query, params)
}

func (f *fakeRunner) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

func rows(column string, values ...interface{}) *neo4j.EagerResult {
	res := &neo4j.EagerResult{Keys: []string{column}}
	for _, v := range values {
		res.Records = append(res.Records, &neo4j.Record{Keys: []string{column}, Values: []any{v}})
	}
	return res
}

func newTestResolver(t *testing.T, runner *fakeRunner, opts ...Option) *Resolver {
	t.Helper()
	s, err := schema.Load(schema.NewsTypeDefs)
	require.NoError(t, err)
	api, err := s.APISchema()
	require.NoError(t, err)
	log := logrus.New()
	log.SetOutput(io.Discard)
	return NewResolver(s, api, runner, append([]Option{WithLogger(log)}, opts...)...)
}

func errorCode(t *testing.T, resp *graphql.Response) string {
	t.Helper()
	require.NotEmpty(t, resp.Errors)
	code, _ := resp.Errors[0].Extensions["code"].(string)
	return code
}

func TestResolve_ArticleByURL(t *testing.T) {
	runner := &fakeRunner{respond: func(query string, params map[string]interface{}) (*neo4j.EagerResult, error) {
		if params["param0"] != "https://news/1" {
			return rows("this"), nil
		}
		return rows("this", map[string]interface{}{
			"title": "Election results",
			"topics": []interface{}{
				map[string]interface{}{"name": "Politics"},
				map[string]interface{}{"name": "Elections"},
			},
		}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{
		Query: `{ articles(where: {url: "https://news/1"}) { title topics { name } } }`,
	})

	require.Empty(t, resp.Errors)
	assert.Equal(t,
		`{"articles":[{"title":"Election results","topics":[{"name":"Politics"},{"name":"Elections"}]}]}`,
		string(resp.Data))
	assert.Equal(t, 1, runner.calls())
}

func TestResolve_UnknownURLYieldsEmptyList(t *testing.T) {
	r := newTestResolver(t, &fakeRunner{})

	resp := r.Resolve(context.Background(), &Request{
		Query: `{ articles(where: {url: "https://news/none"}) { title } }`,
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"articles":[]}`, string(resp.Data))
}

func TestResolve_KeyOrderFollowsSelection(t *testing.T) {
	runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("this", map[string]interface{}{"url": "u", "title": "t", "headline": "t"}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{Query: `{ articles { url headline: title __typename title } }`})

	require.Empty(t, resp.Errors)
	assert.Equal(t, `{"articles":[{"url":"u","headline":"t","__typename":"Article","title":"t"}]}`, string(resp.Data))
}

func TestResolve_MissingSingleRelationshipIsNull(t *testing.T) {
	runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("this", map[string]interface{}{"caption": "Crowd", "article": nil}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{Query: `{ photos { caption article { title } } }`})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"photos":[{"caption":"Crowd","article":null}]}`, string(resp.Data))
}

func TestResolve_Similar(t *testing.T) {
	var similar []interface{}
	for i := 0; i < 10; i++ {
		similar = append(similar, map[string]interface{}{"url": fmt.Sprintf("https://news/%d", i+2)})
	}
	runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("this", map[string]interface{}{"similar": similar}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{
		Query: `{ articles(where: {url: "https://news/1"}) { similar { url } } }`,
	})
	require.Empty(t, resp.Errors)

	var out struct {
		Articles []struct {
			Similar []struct{ URL string } `json:"similar"`
		} `json:"articles"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))
	require.Len(t, out.Articles, 1)
	assert.LessOrEqual(t, len(out.Articles[0].Similar), 10)
	for _, a := range out.Articles[0].Similar {
		assert.NotEqual(t, "https://news/1", a.URL)
	}

	require.Len(t, runner.queries, 1)
	assert.Contains(t, runner.queries[0], "WHERE rec <> this")
	assert.Contains(t, runner.queries[0], "LIMIT 10")
}

func TestResolve_Count(t *testing.T) {
	runner := &fakeRunner{respond: func(query string, _ map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("count", int64(3)), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{Query: `{ topicsCount }`})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"topicsCount":3}`, string(resp.Data))
	assert.Contains(t, runner.queries[0], "RETURN count(this) AS count")
}

func TestResolve_WritesAreRejectedBeforeTheDatabase(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestResolver(t, runner)

	for _, query := range []string{
		`mutation { createArticles(input: [{url: "x"}]) { articles { url } } }`,
		`subscription { articles { url } }`,
	} {
		resp := r.Resolve(context.Background(), &Request{Query: query})
		assert.Nil(t, resp.Data)
		assert.Equal(t, CodeOperationNotSupported, errorCode(t, resp))
	}
	assert.Zero(t, runner.calls())
}

func TestResolve_RequestErrors(t *testing.T) {
	tests := []struct {
		name string
		req  *Request
		code string
	}{
		{name: "empty", req: &Request{Query: "  "}, code: CodeBadRequest},
		{name: "syntax", req: &Request{Query: `{ articles {`}, code: CodeValidationFailed},
		{name: "unknown field", req: &Request{Query: `{ articles { colour } }`}, code: CodeValidationFailed},
		{name: "unknown argument", req: &Request{Query: `{ articles(first: 3) { url } }`}, code: CodeValidationFailed},
		{name: "no operation name", req: &Request{Query: `query A { articles { url } } query B { topics { name } }`}, code: CodeBadRequest},
		{name: "unknown operation name", req: &Request{Query: `query A { articles { url } }`, OperationName: "B"}, code: CodeBadRequest},
		{
			name: "bad variable",
			req: &Request{
				Query:     `query($limit: Int) { articles(options: {limit: $limit}) { url } }`,
				Variables: map[string]interface{}{"limit": "ten"},
			},
			code: CodeBadUserInput,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := &fakeRunner{}
			resp := newTestResolver(t, runner).Resolve(context.Background(), tt.req)

			assert.Nil(t, resp.Data)
			assert.Equal(t, tt.code, errorCode(t, resp))
			assert.Zero(t, runner.calls())
		})
	}
}

func TestResolve_NamedOperation(t *testing.T) {
	runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("this", map[string]interface{}{"name": "Politics"}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{
		Query:         `query A { articles { url } } query B { topics { name } }`,
		OperationName: "B",
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{"topics":[{"name":"Politics"}]}`, string(resp.Data))
	assert.Contains(t, runner.queries[0], "`Topic`")
}

func TestResolve_DepthLimit(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestResolver(t, runner, WithMaxDepth(3))

	resp := r.Resolve(context.Background(), &Request{Query: `{ articles { topics { articles { url } } } }`})
	assert.Nil(t, resp.Data)
	assert.Equal(t, CodeValidationFailed, errorCode(t, resp))

	resp = r.Resolve(context.Background(), &Request{Query: `{ articles { topics { name } } }`})
	assert.Empty(t, resp.Errors)
	assert.Equal(t, 1, runner.calls())
}

func TestResolve_InvalidArgumentIsAFieldError(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{Query: `{ articles(options: {limit: -1}) { url } }`})

	assert.JSONEq(t, `{"articles":null}`, string(resp.Data))
	assert.Equal(t, CodeBadUserInput, errorCode(t, resp))
	assert.Equal(t, "articles", resp.Errors[0].Path.String())
	assert.Zero(t, runner.calls())
}

func TestResolve_PartialFailure(t *testing.T) {
	runner := &fakeRunner{respond: func(query string, _ map[string]interface{}) (*neo4j.EagerResult, error) {
		if strings.Contains(query, "`Topic`") {
			return nil, &neo4j.Neo4jError{Code: "Neo.ClientError.Statement.SyntaxError", Msg: "bad statement"}
		}
		return rows("this", map[string]interface{}{"url": "https://news/1"}), nil
	}}
	var mu sync.Mutex
	outcomes := map[string]string{}
	r := newTestResolver(t, runner, WithFieldObserver(func(field, outcome string, _ time.Duration) {
		mu.Lock()
		outcomes[field] = outcome
		mu.Unlock()
	}))

	resp := r.Resolve(context.Background(), &Request{Query: `{ articles { url } topics { name } }`})

	assert.JSONEq(t, `{"articles":[{"url":"https://news/1"}],"topics":null}`, string(resp.Data))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "topics", resp.Errors[0].Path.String())
	assert.Equal(t, CodeQueryError, resp.Errors[0].Extensions["code"])
	assert.Equal(t, "Neo.ClientError.Statement.SyntaxError", resp.Errors[0].Extensions["neo4jCode"])
	assert.Equal(t, map[string]string{"articles": "ok", "topics": CodeQueryError}, outcomes)
}

func TestResolve_DatabaseFailuresAreClassified(t *testing.T) {
	tests := map[string]struct {
		err     error
		code    string
		message string
	}{
		"unavailable": {err: &neo4j.ConnectivityError{}, code: CodeServiceUnavailable, message: "graph database unavailable"},
		"timeout":     {err: fmt.Errorf("run: %w", context.DeadlineExceeded), code: CodeTimeout, message: "query timed out"},
		"server timeout": {
			err:     &neo4j.Neo4jError{Code: "Neo.ClientError.Transaction.TransactionTimedOut", Msg: "timed out"},
			code:    CodeTimeout,
			message: "query timed out",
		},
		"unexpected": {err: fmt.Errorf("password=hunter2 rejected"), code: CodeInternal, message: "internal error"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
				return nil, tt.err
			}}
			resp := newTestResolver(t, runner).Resolve(context.Background(), &Request{Query: `{ articles { url } }`})

			assert.JSONEq(t, `{"articles":null}`, string(resp.Data))
			assert.Equal(t, tt.code, errorCode(t, resp))
			assert.Equal(t, tt.message, resp.Errors[0].Message)
		})
	}
}

func TestResolve_ConcurrentRequests(t *testing.T) {
	runner := &fakeRunner{respond: func(_ string, params map[string]interface{}) (*neo4j.EagerResult, error) {
		url := params["param0"].(string)
		return rows("this", map[string]interface{}{"url": url, "title": "Title of " + url}), nil
	}}
	r := newTestResolver(t, runner)

	const n = 32
	var wg sync.WaitGroup
	results := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			resp := r.Resolve(context.Background(), &Request{
				Query:     `query($url: String) { articles(where: {url: $url}) { url title } }`,
				Variables: map[string]interface{}{"url": fmt.Sprintf("https://news/%d", i)},
			})
			results[i] = string(resp.Data)
		}(i)
	}
	wg.Wait()

	for i, data := range results {
		url := fmt.Sprintf("https://news/%d", i)
		assert.JSONEq(t, fmt.Sprintf(`{"articles":[{"url":%q,"title":%q}]}`, url, "Title of "+url), data)
	}
}

func TestResolve_Idempotent(t *testing.T) {
	runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("this", map[string]interface{}{"title": "Same"}), nil
	}}
	r := newTestResolver(t, runner)
	req := &Request{Query: `{ articles(where: {title_CONTAINS: "a", published_GT: "2024-01-01"}) { title } }`}

	first := r.Resolve(context.Background(), req)
	second := r.Resolve(context.Background(), req)

	assert.Equal(t, string(first.Data), string(second.Data))
	require.Len(t, runner.queries, 2)
	assert.Equal(t, runner.queries[0], runner.queries[1])
}

func TestResolve_TemporalAndSpatialValues(t *testing.T) {
	runner := &fakeRunner{respond: func(query string, _ map[string]interface{}) (*neo4j.EagerResult, error) {
		if strings.Contains(query, "`Geo`") {
			return rows("this", map[string]interface{}{
				"name":     "London",
				"location": neo4j.Point2D{X: -0.12, Y: 51.5, SpatialRefId: 4326},
			}), nil
		}
		return rows("this", map[string]interface{}{
			"published": neo4j.DateOf(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)),
		}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{
		Query: `{ articles { published } geos { name location { longitude latitude height crs srid } } }`,
	})

	require.Empty(t, resp.Errors)
	assert.JSONEq(t, `{
		"articles": [{"published": "2024-03-01"}],
		"geos": [{"name": "London", "location": {"longitude": -0.12, "latitude": 51.5, "height": null, "crs": "wgs-84", "srid": 4326}}]
	}`, string(resp.Data))
}

func TestResolve_NonNullViolationNullsTheParent(t *testing.T) {
	runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("this", map[string]interface{}{"url": nil, "title": "No url"}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{Query: `{ articles { title url } }`})

	assert.JSONEq(t, `{"articles":null}`, string(resp.Data))
	require.Len(t, resp.Errors, 1)
	assert.Equal(t, "articles[0].url", resp.Errors[0].Path.String())
	assert.Equal(t, "Cannot return null for non-nullable field url", resp.Errors[0].Message)
}

func TestResolve_SkipAndFragments(t *testing.T) {
	runner := &fakeRunner{respond: func(string, map[string]interface{}) (*neo4j.EagerResult, error) {
		return rows("this", map[string]interface{}{"url": "u", "title": "t"}), nil
	}}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{
		Query: `query($withTitle: Boolean!) {
			articles { ...ArticleKey title @include(if: $withTitle) abstract @skip(if: true) }
		}
		fragment ArticleKey on Article { url }`,
		Variables: map[string]interface{}{"withTitle": false},
	})

	require.Empty(t, resp.Errors)
	assert.Equal(t, `{"articles":[{"url":"u"}]}`, string(resp.Data))
	assert.Contains(t, runner.queries[0], "RETURN this { .url } AS this")
}

func TestResolve_Introspection(t *testing.T) {
	runner := &fakeRunner{}
	r := newTestResolver(t, runner)

	resp := r.Resolve(context.Background(), &Request{
		Query: `{ __typename __type(name: "Article") { name kind fields { name } } __schema { queryType { name } mutationType { name } } }`,
	})
	require.Empty(t, resp.Errors)
	assert.Zero(t, runner.calls())

	var out struct {
		Typename string `json:"__typename"`
		Type     struct {
			Name   string
			Kind   string
			Fields []struct{ Name string }
		} `json:"__type"`
		Schema struct {
			QueryType    struct{ Name string } `json:"queryType"`
			MutationType *struct{ Name string } `json:"mutationType"`
		} `json:"__schema"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &out))

	assert.Equal(t, "Query", out.Typename)
	assert.Equal(t, "Article", out.Type.Name)
	assert.Equal(t, "OBJECT", out.Type.Kind)
	var names []string
	for _, f := range out.Type.Fields {
		names = append(names, f.Name)
	}
	assert.Contains(t, names, "similar")
	assert.Contains(t, names, "topics")
	assert.Equal(t, "Query", out.Schema.QueryType.Name)
	assert.Nil(t, out.Schema.MutationType)
}
