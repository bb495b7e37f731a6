package sqlast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ansiQuote(name string) string { return `"` + name + `"` }
func qMark(i int) string           { return "?" }

func TestFormat_SimpleSelect(t *testing.T) {
	q := &Query{
		Select: []Node{Ident{Schema: "public", Table: "orders", Column: "id"}},
		From:   Ident{Schema: "public", Table: "orders"},
	}
	sql, params, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "public"."orders"."id" FROM "public"."orders"`, sql)
	assert.Empty(t, params)
}

func TestFormat_StarWhenNoProjections(t *testing.T) {
	q := &Query{From: Ident{Table: "orders"}}
	sql, _, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM "orders"`, sql)
}

func TestFormat_GroupByAndAggregation(t *testing.T) {
	q := &Query{
		Select: []Node{
			Ident{Schema: "public", Table: "orders", Column: "status"},
			As{Expr: Call{Func: "COUNT", Args: []Node{Raw{SQL: "*"}}}, Alias: "count"},
		},
		From:    Ident{Schema: "public", Table: "orders"},
		GroupBy: []Node{Ident{Schema: "public", Table: "orders", Column: "status"}},
	}
	sql, _, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "public"."orders"."status", COUNT(*) AS "count" FROM "public"."orders" GROUP BY "public"."orders"."status"`, sql)
}

func TestFormat_LikeWithLowerAndParam(t *testing.T) {
	field := Ident{Schema: "public", Table: "orders", Column: "name"}
	q := &Query{
		From: Ident{Schema: "public", Table: "orders"},
		Where: Like{
			Expr:    Call{Func: "LOWER", Args: []Node{field}},
			Pattern: Call{Func: "LOWER", Args: []Node{Param{Value: "A%"}}},
		},
	}
	sql, params, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Contains(t, sql, `LOWER("public"."orders"."name") LIKE LOWER(?)`)
	assert.Equal(t, []any{"A%"}, params)
}

func TestFormat_ArithmeticDivideGuard(t *testing.T) {
	sum := Call{Func: "SUM", Args: []Node{Ident{Schema: "public", Table: "orders", Column: "total"}}}
	guard := Case{
		Whens: []CaseWhen{{Cond: BinOp{Op: "=", Left: Raw{SQL: "2.0"}, Right: Raw{SQL: "0"}}, Then: Null{}}},
		Else:  Raw{SQL: "2.0"},
	}
	q := &Query{
		Select: []Node{BinOp{Op: "/", Left: sum, Right: guard}},
		From:   Ident{Schema: "public", Table: "orders"},
	}
	sql, params, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Equal(t, `SELECT SUM("public"."orders"."total") / CASE WHEN 2.0 = 0 THEN NULL ELSE 2.0 END FROM "public"."orders"`, sql)
	assert.Empty(t, params)
}

func TestFormat_NestedSubqueryParamsShareCounter(t *testing.T) {
	inner := &Query{
		Select: []Node{Ident{Column: "id"}},
		From:   Ident{Table: "orders"},
		Where:  BinOp{Op: "=", Left: Ident{Column: "status"}, Right: Param{Value: "open"}},
	}
	outer := &Query{
		Select: []Node{Raw{SQL: "*"}},
		From:   As{Expr: inner, Alias: "source"},
		Where:  BinOp{Op: "=", Left: Ident{Column: "region"}, Right: Param{Value: "eu"}},
	}
	sql, params, err := Format(outer, ansiQuote, func(i int) string { return fmt.Sprintf("$%d", i) })
	require.NoError(t, err)
	assert.Contains(t, sql, "$1")
	assert.Contains(t, sql, "$2")
	assert.Equal(t, []any{"open", "eu"}, params)
}

func TestFormat_DotEscapedIdentifierUnescaped(t *testing.T) {
	q := &Query{
		Select: []Node{Ident{Column: EscapeDots("a.b")}},
		From:   Ident{Table: "orders"},
	}
	sql, _, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Equal(t, `SELECT "a.b" FROM "orders"`, sql)
}

func TestFormat_ModifierInsideCall(t *testing.T) {
	q := &Query{
		Select: []Node{Call{Func: "COUNT", Args: []Node{Modifier{Keyword: "DISTINCT", Expr: Ident{Column: "status"}}}}},
		From:   Ident{Table: "orders"},
	}
	sql, _, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Equal(t, `SELECT COUNT(DISTINCT "status") FROM "orders"`, sql)
}

func TestFormat_LimitAndOffset(t *testing.T) {
	limit, offset := 10, 20
	q := &Query{
		From:   As{Expr: &Query{Select: []Node{Call{Func: "COUNT", Args: []Node{Raw{SQL: "*"}}}}, From: Ident{Table: "orders"}}, Alias: "source"},
		Limit:  &limit,
		Offset: &offset,
	}
	sql, _, err := Format(q, ansiQuote, qMark)
	require.NoError(t, err)
	assert.Equal(t, `SELECT * FROM (SELECT COUNT(*) FROM "orders") "source" LIMIT 10 OFFSET 20`, sql)
}

func TestFormat_UnrenderableNode(t *testing.T) {
	q := &Query{Select: []Node{unrenderableNode{}}, From: Ident{Table: "orders"}}
	_, _, err := Format(q, ansiQuote, qMark)
	require.Error(t, err)
}

type unrenderableNode struct{}

func (unrenderableNode) isNode() {}
