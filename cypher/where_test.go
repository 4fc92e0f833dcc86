package cypher

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWhere(t *testing.T) {
	article := news.Type("Article")

	tests := []struct {
		name   string
		where  map[string]interface{}
		want   string
		params map[string]interface{}
	}{
		{
			name:   "date list",
			where:  map[string]interface{}{"published_IN": []interface{}{"2024-01-01", "2024-01-02"}},
			want:   "this.published IN [x IN $param0 | date(x)]",
			params: map[string]interface{}{"param0": []interface{}{"2024-01-01", "2024-01-02"}},
		},
		{
			name:   "not null",
			where:  map[string]interface{}{"title_NOT": nil},
			want:   "this.title IS NOT NULL",
			params: map[string]interface{}{},
		},
		{
			name:   "is null",
			where:  map[string]interface{}{"abstract": nil},
			want:   "this.abstract IS NULL",
			params: map[string]interface{}{},
		},
		{
			name:   "sorted keys",
			where:  map[string]interface{}{"title": "T", "published_LT": "2024-01-01"},
			want:   "this.published < date($param0) AND this.title = $param1",
			params: map[string]interface{}{"param0": "2024-01-01", "param1": "T"},
		},
		{
			name:   "negated string operator",
			where:  map[string]interface{}{"url_NOT_CONTAINS": "ads"},
			want:   "NOT (this.url CONTAINS $param0)",
			params: map[string]interface{}{"param0": "ads"},
		},
		{
			name:   "not in",
			where:  map[string]interface{}{"url_NOT_IN": []interface{}{"a"}},
			want:   "NOT (this.url IN $param0)",
			params: map[string]interface{}{"param0": []interface{}{"a"}},
		},
		{
			name: "or",
			where: map[string]interface{}{"OR": []interface{}{
				map[string]interface{}{"title_STARTS_WITH": "A"},
				map[string]interface{}{"title_ENDS_WITH": "Z"},
			}},
			want:   "(this.title STARTS WITH $param0 OR this.title ENDS WITH $param1)",
			params: map[string]interface{}{"param0": "A", "param1": "Z"},
		},
		{
			name:   "missing photo",
			where:  map[string]interface{}{"photo": nil},
			want:   "NOT EXISTS { MATCH (this)-[:`HAS_PHOTO`]->(this0:`Photo`) }",
			params: map[string]interface{}{},
		},
		{
			name:   "photo caption",
			where:  map[string]interface{}{"photo_NOT": map[string]interface{}{"caption": "x"}},
			want:   "NOT EXISTS { MATCH (this)-[:`HAS_PHOTO`]->(this0:`Photo`) WHERE this0.caption = $param0 }",
			params: map[string]interface{}{"param0": "x"},
		},
		{
			name:   "some topic",
			where:  map[string]interface{}{"topics_SOME": map[string]interface{}{"name": "Politics"}},
			want:   "EXISTS { MATCH (this)-[:`HAS_TOPIC`]->(this0:`Topic`) WHERE this0.name = $param0 }",
			params: map[string]interface{}{"param0": "Politics"},
		},
		{
			name:   "no topic",
			where:  map[string]interface{}{"topics_NONE": map[string]interface{}{"name": "Sport"}},
			want:   "NOT EXISTS { MATCH (this)-[:`HAS_TOPIC`]->(this0:`Topic`) WHERE this0.name = $param0 }",
			params: map[string]interface{}{"param0": "Sport"},
		},
		{
			name:   "all topics",
			where:  map[string]interface{}{"topics_ALL": map[string]interface{}{"name_IN": []interface{}{"a", "b"}}},
			want:   "NOT EXISTS { MATCH (this)-[:`HAS_TOPIC`]->(this0:`Topic`) WHERE NOT (this0.name IN $param0) }",
			params: map[string]interface{}{"param0": []interface{}{"a", "b"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := &translator{schema: news, params: make(map[string]interface{})}
			got, err := tr.where("this", article, tt.where)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.params, tr.params)
		})
	}
}

func TestWhere_Points(t *testing.T) {
	geo := news.Type("Geo")

	tr := &translator{schema: news, params: make(map[string]interface{})}
	got, err := tr.where("this", geo, map[string]interface{}{
		"location_DISTANCE_LT": map[string]interface{}{
			"point":    map[string]interface{}{"longitude": json.Number("-0.12"), "latitude": 51.5},
			"distance": json.Number("1000"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "point.distance(this.location, point($param0)) < $param1", got)
	assert.Equal(t, map[string]interface{}{"longitude": -0.12, "latitude": 51.5}, tr.params["param0"])
	assert.Equal(t, 1000.0, tr.params["param1"])

	tr = &translator{schema: news, params: make(map[string]interface{})}
	got, err = tr.where("this", geo, map[string]interface{}{
		"location": map[string]interface{}{"longitude": 1.0, "latitude": 2.0, "height": 3.0},
	})
	require.NoError(t, err)
	assert.Equal(t, "this.location = point($param0)", got)
	assert.Equal(t, map[string]interface{}{"longitude": 1.0, "latitude": 2.0, "height": 3.0}, tr.params["param0"])

	tr = &translator{schema: news, params: make(map[string]interface{})}
	_, err = tr.where("this", geo, map[string]interface{}{
		"location_DISTANCE_GT": map[string]interface{}{"point": map[string]interface{}{"latitude": 1.0}, "distance": 1.0},
	})
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestWhere_EmptyInput(t *testing.T) {
	tr := &translator{schema: news, params: make(map[string]interface{})}

	got, err := tr.where("this", news.Type("Article"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = tr.where("this", news.Type("Article"), map[string]interface{}{"AND": []interface{}{}})
	require.NoError(t, err)
	assert.Empty(t, got)
}
