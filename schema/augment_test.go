package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPluralName(t *testing.T) {
	assert.Equal(t, "articles", PluralName("Article"))
	assert.Equal(t, "people", PluralName("Person"))
	assert.Equal(t, "geos", PluralName("Geo"))
	assert.Equal(t, "organizations", PluralName("Organization"))
	assert.Equal(t, "blogPosts", PluralName("BlogPost"))
}

func TestAPISchema(t *testing.T) {
	s := MustLoad(NewsTypeDefs)

	api, err := s.APISchema()
	require.NoError(t, err)
	require.NotNil(t, api.Query)
	assert.Nil(t, api.Mutation)
	assert.Nil(t, api.Subscription)

	articles := api.Query.Fields.ForName("articles")
	require.NotNil(t, articles)
	assert.Equal(t, "[Article!]", articles.Type.String())
	assert.NotNil(t, articles.Arguments.ForName("where"))
	assert.NotNil(t, articles.Arguments.ForName("options"))

	count := api.Query.Fields.ForName("articlesCount")
	require.NotNil(t, count)
	assert.Equal(t, "Int", count.Type.String())
	assert.Nil(t, count.Arguments.ForName("options"))

	article := api.Types["Article"]
	require.NotNil(t, article)
	topics := article.Fields.ForName("topics")
	require.NotNil(t, topics)
	assert.NotNil(t, topics.Arguments.ForName("options"))
	photo := article.Fields.ForName("photo")
	require.NotNil(t, photo)
	assert.NotNil(t, photo.Arguments.ForName("where"))
	assert.Nil(t, photo.Arguments.ForName("options"))
	assert.Empty(t, article.Fields.ForName("similar").Arguments)
	assert.Equal(t, "Articles sharing the most topics with this one, best match first.",
		article.Fields.ForName("similar").Description)

	where := api.Types["ArticleWhere"]
	require.NotNil(t, where)
	for _, name := range []string{"url", "url_IN", "title_CONTAINS", "published_LT", "topics_SOME", "photo", "AND", "OR"} {
		assert.NotNil(t, where.Fields.ForName(name), name)
	}
	assert.Nil(t, where.Fields.ForName("similar"))

	geoWhere := api.Types["GeoWhere"]
	require.NotNil(t, geoWhere)
	assert.Equal(t, "PointDistance", geoWhere.Fields.ForName("location_DISTANCE_LT").Type.Name())
	assert.Equal(t, "PointInput", geoWhere.Fields.ForName("location").Type.Name())

	sort := api.Types["GeoSort"]
	require.NotNil(t, sort)
	assert.NotNil(t, sort.Fields.ForName("name"))
	assert.Nil(t, sort.Fields.ForName("location"))
}

func TestAPISchema_NothingReadable(t *testing.T) {
	s, err := Load(`type A @exclude(operations: [READ]) { name: String }`)
	require.NoError(t, err)

	_, err = s.APISchema()
	assert.ErrorIs(t, err, ErrInvalidSchema)
}
