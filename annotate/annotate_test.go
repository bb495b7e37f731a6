package annotate

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/foucault-labs/mbqlsql/mbql"
)

func TestAggregationName_Named(t *testing.T) {
	name := AggregationName(mbql.Named{Inner: mbql.Sum{Field: mbql.FieldID{ID: 1}}, Alias: "Revenue"})
	assert.Equal(t, "Revenue", name)
}

func TestAggregationName_Distinct(t *testing.T) {
	name := AggregationName(mbql.Distinct{Field: mbql.FieldID{ID: 1}})
	assert.Equal(t, "count", name)
}

func TestAggregationName_Count(t *testing.T) {
	assert.Equal(t, "count", AggregationName(mbql.Count{}))
}

func TestAggregationName_Arithmetic(t *testing.T) {
	name := AggregationName(mbql.Arithmetic{
		Op:   mbql.KindArithDiv,
		Args: []mbql.Clause{mbql.Sum{Field: mbql.FieldID{ID: 1}}, mbql.Value{Literal: 2}},
	})
	assert.Equal(t, "expression_sum_value", name)
}

func TestAggregationName_NestedArithmetic(t *testing.T) {
	name := AggregationName(mbql.Arithmetic{
		Op: mbql.KindArithPlus,
		Args: []mbql.Clause{
			mbql.Sum{Field: mbql.FieldID{ID: 1}},
			mbql.Arithmetic{Op: mbql.KindArithMul, Args: []mbql.Clause{mbql.Count{}, mbql.Value{Literal: 2}}},
		},
	})
	assert.Equal(t, "expression_sum_expression_count_value", name)
}
