package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foucault-labs/mbqlsql/dialect"
	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
)

func ordersStore() *metadata.MemStore {
	return metadata.NewMemStore().
		AddTable(metadata.Table{ID: 1, Name: "orders", Schema: "public"}).
		AddField(metadata.Field{ID: 10, Name: "id", TableID: 1}).
		AddField(metadata.Field{ID: 11, Name: "total", TableID: 1}).
		AddField(metadata.Field{ID: 12, Name: "status", TableID: 1}).
		AddField(metadata.Field{ID: 13, Name: "name", TableID: 1}).
		AddField(metadata.Field{ID: 14, Name: "created_at", TableID: 1})
}

func sqlDialect(t *testing.T) dialect.Dialect {
	t.Helper()
	reg := dialect.NewRegistry()
	d, err := reg.Resolve("sql")
	require.NoError(t, err)
	return d
}

// Scenario 1: source-table with a single field projection.
func TestCompile_Scenario1_SingleFieldProjection(t *testing.T) {
	outer := mbql.OuterQuery{
		Database: 1,
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			Fields:      []mbql.Clause{mbql.FieldID{ID: 10}},
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "public"."orders"."id" AS "id" FROM "public"."orders"`, out.SQL)
	assert.Empty(t, out.Params)
}

// Scenario 2: breakout + count, grouped.
func TestCompile_Scenario2_BreakoutAndCount(t *testing.T) {
	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			Aggregation: []mbql.Clause{mbql.Count{}},
			Breakout:    []mbql.Clause{mbql.FieldID{ID: 12}},
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT "public"."orders"."status", COUNT(*) AS "count" FROM "public"."orders" GROUP BY "public"."orders"."status"`,
		out.SQL)
}

// Scenario 3: case-insensitive starts-with filter.
func TestCompile_Scenario3_StartsWithFilter(t *testing.T) {
	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			Filter: mbql.StringPredicate{
				Op:            mbql.KindStartsWith,
				Field:         mbql.FieldID{ID: 13},
				Value:         mbql.Value{Literal: "A"},
				CaseSensitive: false,
			},
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `WHERE LOWER("public"."orders"."name") LIKE LOWER(?)`)
	assert.Equal(t, []any{"A%"}, out.Params)
}

// Scenario 4: division with an integer divisor, guarded and promoted.
func TestCompile_Scenario4_DivisionGuard(t *testing.T) {
	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			Aggregation: []mbql.Clause{
				mbql.Arithmetic{
					Op:   mbql.KindArithDiv,
					Args: []mbql.Clause{mbql.Sum{Field: mbql.FieldID{ID: 11}}, mbql.Value{Literal: 2}},
				},
			},
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT SUM("public"."orders"."total") / CASE WHEN 2.0 = 0 THEN NULL ELSE 2.0 END AS "expression_sum_value" FROM "public"."orders"`,
		out.SQL)
	assert.Empty(t, out.Params)
}

// Scenario 5: nested source-query, outer LIMIT.
func TestCompile_Scenario5_NestedSourceQuery(t *testing.T) {
	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceQuery: &mbql.InnerQuery{
				SourceTable: intPtr(1),
				Aggregation: []mbql.Clause{mbql.Count{}},
			},
			Limit: intPtr(10),
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Equal(t,
		`SELECT * FROM (SELECT COUNT(*) AS "count" FROM "public"."orders") "source" LIMIT 10`,
		out.SQL)
}

// Scenario 6: datetime-field projection, identity date rewrite on the
// default dialect.
func TestCompile_Scenario6_DatetimeField(t *testing.T) {
	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			Fields: []mbql.Clause{
				mbql.DatetimeField{Inner: mbql.FieldID{ID: 14}, Unit: "month"},
			},
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "public"."orders"."created_at" AS "created_at" FROM "public"."orders"`, out.SQL)
}

func TestCompile_InvalidInnerQuery(t *testing.T) {
	outer := mbql.OuterQuery{Query: mbql.InnerQuery{}}
	_, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.Error(t, err)
}

func TestCompile_BreakoutDedupedAgainstFields(t *testing.T) {
	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			Breakout:    []mbql.Clause{mbql.FieldID{ID: 12}},
			Fields:      []mbql.Clause{mbql.FieldID{ID: 12}},
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, countOccurrences(out.SQL, `"public"."orders"."status"`)-1)
}

func countOccurrences(s, substr string) int {
	count := 0
	for i := 0; i+len(substr) <= len(s); i++ {
		if s[i:i+len(substr)] == substr {
			count++
		}
	}
	return count
}

func TestCompile_PageSetsLimitAndOffset(t *testing.T) {
	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			Page:        &mbql.Page{Items: 25, Page: 3},
		},
	}
	out, err := Compile(sqlDialect(t), ordersStore(), outer, nil)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, "LIMIT 25")
	assert.Contains(t, out.SQL, "OFFSET 50")
}

func TestCompile_JoinTablesEmitsLeftJoinOnFKEquality(t *testing.T) {
	custStore := ordersStore()
	custStore.AddTable(metadata.Table{ID: 2, Name: "customers", Schema: "public"})
	custStore.AddField(metadata.Field{ID: 20, Name: "id", TableID: 2})

	outer := mbql.OuterQuery{
		Query: mbql.InnerQuery{
			SourceTable: intPtr(1),
			JoinTables: []mbql.JoinInfo{
				{Alias: "cust", SourceFKFieldID: 11, DestFieldID: 20, DestTableID: 2},
			},
			Fields: []mbql.Clause{
				mbql.FK{SourceFK: mbql.FieldID{ID: 11}, DestField: mbql.FieldID{ID: 20}},
			},
		},
	}
	out, err := Compile(sqlDialect(t), custStore, outer, nil)
	require.NoError(t, err)
	assert.Contains(t, out.SQL, `LEFT JOIN "public"."customers" "cust"`)
	assert.Contains(t, out.SQL, `ON "public"."orders"."total" = "cust"."id"`)
}

func intPtr(i int) *int { return &i }
