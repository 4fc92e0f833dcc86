package cypher

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saulfrancisco-ruizacevedo/go-newsgraph/schema"
)

var news = schema.MustLoad(schema.NewsTypeDefs)

func field(name string, args map[string]interface{}, selection ...*Field) *Field {
	return &Field{Name: name, Arguments: args, SelectionSet: selection}
}

func lines(ls ...string) string {
	return strings.Join(ls, "\n")
}

func TestTranslate_ArticleWithTopics(t *testing.T) {
	root := field("articles", map[string]interface{}{
		"where": map[string]interface{}{"url": "https://news/1"},
	},
		field("title", nil),
		field("topics", nil, field("name", nil)),
	)

	stmt, err := Translate(news, root)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (this:`Article`)",
		"WHERE this.url = $param0",
		"CALL {",
		"    WITH this",
		"    MATCH (this)-[:`HAS_TOPIC`]->(this0:`Topic`)",
		"    RETURN collect(this0 { .name }) AS var1",
		"}",
		"RETURN this { .title, topics: var1 } AS this",
	), stmt.Query)
	assert.Equal(t, map[string]interface{}{"param0": "https://news/1"}, stmt.Params)
}

func TestTranslate_Similar(t *testing.T) {
	root := field("articles", map[string]interface{}{
		"where": map[string]interface{}{"url": "https://news/1"},
	},
		field("similar", nil, field("url", nil), field("title", nil)),
	)

	stmt, err := Translate(news, root)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (this:`Article`)",
		"WHERE this.url = $param0",
		"CALL {",
		"    WITH this",
		"    CALL {",
		"        WITH this",
		"        WITH this AS this",
		"        MATCH (this)-[:HAS_TOPIC]->(:Topic)<-[:HAS_TOPIC]-(rec:Article)",
		"        WHERE rec <> this",
		"        WITH rec, COUNT(*) AS num",
		"        RETURN rec ORDER BY num DESC LIMIT 10",
		"    }",
		"    WITH `rec` AS this0",
		"    RETURN collect(this0 { .url, .title }) AS var1",
		"}",
		"RETURN this { similar: var1 } AS this",
	), stmt.Query)
}

func TestTranslate_SimilarKeepsOrderAcrossNestedSubqueries(t *testing.T) {
	root := field("articles", map[string]interface{}{
		"where": map[string]interface{}{"url": "https://news/1"},
	},
		field("similar", nil, field("topics", nil, field("name", nil))),
	)

	stmt, err := Translate(news, root)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (this:`Article`)",
		"WHERE this.url = $param0",
		"CALL {",
		"    WITH this",
		"    CALL {",
		"        WITH this",
		"        WITH this AS this",
		"        MATCH (this)-[:HAS_TOPIC]->(:Topic)<-[:HAS_TOPIC]-(rec:Article)",
		"        WHERE rec <> this",
		"        WITH rec, COUNT(*) AS num",
		"        RETURN rec ORDER BY num DESC LIMIT 10",
		"    }",
		"    WITH `rec` AS this0",
		"    WITH collect(this0) AS rows4",
		"    UNWIND range(0, size(rows4) - 1) AS index5",
		"    WITH rows4[index5] AS this0, index5",
		"    CALL {",
		"        WITH this0",
		"        MATCH (this0)-[:`HAS_TOPIC`]->(this2:`Topic`)",
		"        RETURN collect(this2 { .name }) AS var3",
		"    }",
		"    WITH * ORDER BY index5",
		"    RETURN collect(this0 { topics: var3 }) AS var1",
		"}",
		"RETURN this { similar: var1 } AS this",
	), stmt.Query)
}

func TestTranslate_IncomingSingleRelationship(t *testing.T) {
	root := field("photos", nil,
		field("caption", nil),
		field("article", nil, field("title", nil)),
	)

	stmt, err := Translate(news, root)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (this:`Photo`)",
		"CALL {",
		"    WITH this",
		"    MATCH (this)<-[:`HAS_PHOTO`]-(this0:`Article`)",
		"    RETURN head(collect(this0 { .title })) AS var1",
		"}",
		"RETURN this { .caption, article: var1 } AS this",
	), stmt.Query)
	assert.Empty(t, stmt.Params)
}

func TestTranslate_NestedRelationshipArguments(t *testing.T) {
	root := field("topics", nil,
		field("articles", map[string]interface{}{
			"where":   map[string]interface{}{"title_CONTAINS": "vote"},
			"options": map[string]interface{}{"limit": json.Number("2")},
		}, field("url", nil)),
	)

	stmt, err := Translate(news, root)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (this:`Topic`)",
		"CALL {",
		"    WITH this",
		"    MATCH (this)<-[:`HAS_TOPIC`]-(this0:`Article`)",
		"    WHERE this0.title CONTAINS $param0",
		"    WITH * LIMIT $param1",
		"    RETURN collect(this0 { .url }) AS var1",
		"}",
		"RETURN this { articles: var1 } AS this",
	), stmt.Query)
	assert.Equal(t, map[string]interface{}{"param0": "vote", "param1": int64(2)}, stmt.Params)
}

func TestTranslate_Count(t *testing.T) {
	root := field("articlesCount", map[string]interface{}{
		"where": map[string]interface{}{"title_CONTAINS": "election"},
	})

	stmt, err := Translate(news, root)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (this:`Article`)",
		"WHERE this.title CONTAINS $param0",
		"RETURN count(this) AS count",
	), stmt.Query)
}

func TestTranslate_Options(t *testing.T) {
	root := field("articles", map[string]interface{}{
		"options": map[string]interface{}{
			"sort":   []interface{}{map[string]interface{}{"published": "DESC"}},
			"limit":  int64(5),
			"offset": int64(10),
		},
	}, field("title", nil))

	stmt, err := Translate(news, root)
	require.NoError(t, err)

	assert.Equal(t, lines(
		"MATCH (this:`Article`)",
		"WITH * ORDER BY this.published DESC SKIP $param0 LIMIT $param1",
		"WITH * ORDER BY this.published DESC",
		"RETURN this { .title } AS this",
	), stmt.Query)
	assert.Equal(t, map[string]interface{}{"param0": int64(10), "param1": int64(5)}, stmt.Params)
}

func TestTranslate_AliasesAndTypename(t *testing.T) {
	root := field("articles", nil,
		&Field{Alias: "headline", Name: "title"},
		field("__typename", nil),
	)

	stmt, err := Translate(news, root)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (this:`Article`)\nRETURN this { headline: this.title } AS this", stmt.Query)

	root = field("articles", nil, field("__typename", nil))
	stmt, err = Translate(news, root)
	require.NoError(t, err)
	assert.Equal(t, "MATCH (this:`Article`)\nRETURN this {} AS this", stmt.Query)
}

func TestTranslate_InvalidArguments(t *testing.T) {
	tests := map[string]map[string]interface{}{
		"negative limit":  {"options": map[string]interface{}{"limit": int64(-1)}},
		"negative offset": {"options": map[string]interface{}{"offset": json.Number("-3")}},
		"unknown filter":  {"where": map[string]interface{}{"colour": "red"}},
		"sort by relationship": {"options": map[string]interface{}{
			"sort": []interface{}{map[string]interface{}{"topics": "ASC"}},
		}},
		"bad direction": {"options": map[string]interface{}{
			"sort": []interface{}{map[string]interface{}{"title": "UP"}},
		}},
		"wrong value type": {"where": map[string]interface{}{"title": int64(3)}},
	}
	for name, args := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Translate(news, field("articles", args, field("title", nil)))
			assert.ErrorIs(t, err, ErrInvalidArgument)
		})
	}
}

func TestTranslate_UnknownRoot(t *testing.T) {
	_, err := Translate(news, field("createArticles", nil))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidArgument)
}
