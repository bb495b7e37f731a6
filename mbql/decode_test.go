package mbql

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOuterQuery_SingleFieldProjection(t *testing.T) {
	doc := []byte(`{"database": 1, "query": {"source-table": 1, "fields": [["field-id", 10]]}}`)
	outer, err := ParseOuterQuery(doc)
	require.NoError(t, err)
	assert.Equal(t, 1, outer.Database)
	require.Len(t, outer.Query.Fields, 1)
	assert.Equal(t, FieldID{ID: 10}, outer.Query.Fields[0])
}

func TestParseOuterQuery_NestedAggregationAndFilter(t *testing.T) {
	doc := []byte(`{"query": {
		"source-table": 1,
		"aggregation": [["sum", ["field-id", 11]]],
		"filter": ["starts-with", ["field-id", 13], ["value", "A"], {"case-sensitive": false}]
	}}`)
	outer, err := ParseOuterQuery(doc)
	require.NoError(t, err)
	require.Len(t, outer.Query.Aggregation, 1)
	assert.Equal(t, Sum{Field: FieldID{ID: 11}}, outer.Query.Aggregation[0])

	pred, ok := outer.Query.Filter.(StringPredicate)
	require.True(t, ok)
	assert.Equal(t, KindStartsWith, pred.Op)
	assert.False(t, pred.CaseSensitive)
}

func TestParseClause_ShortArrayReturnsErrorNotPanic(t *testing.T) {
	for _, doc := range []string{
		`["field-id"]`,
		`["fk->", ["field-id", 1]]`,
		`["between", ["field-id", 1], ["value", 1]]`,
		`["named", ["field-id", 1]]`,
	} {
		_, err := parseClause([]byte(doc))
		assert.Error(t, err, doc)
	}
}

func TestParseClause_EmptyArrayErrors(t *testing.T) {
	_, err := parseClause([]byte(`[]`))
	assert.Error(t, err)
}

func TestParseClause_UnknownTagErrors(t *testing.T) {
	_, err := parseClause([]byte(`["bogus-tag", 1]`))
	assert.Error(t, err)
}
