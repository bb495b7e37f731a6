// Package compiler is the Clause Orchestrator and the mbql_to_native
// entry point (spec.md §4.4–§4.7, §6): it folds an mbql.InnerQuery's
// top-level clauses into a sqlast.Query in the fixed order spec.md §4.6
// names, handling nested source queries and FK-driven joins along the
// way, then hands the finished AST to the Formatter.
//
// Grounded on joaosoft-db-mcp/mcp/query_builder.go's shape: one
// accumulating builder value threaded through a sequence of small
// clause-specific methods, generalized here from "assemble a metadata
// query" to "fold MBQL clauses into a SQL-AST".
package compiler

import (
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/foucault-labs/mbqlsql/dialect"
	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
	"github.com/foucault-labs/mbqlsql/nativesql"
	"github.com/foucault-labs/mbqlsql/sqlast"
)

// Compiled is the result of mbql_to_native: the rendered SQL text plus its
// positional parameter vector.
type Compiled struct {
	SQL    string
	Params []any
}

// Compile is mbql_to_native(dialect, outer_query) (spec.md §6). store
// backs every field-id/table lookup; log, if non-nil, receives the
// assembled SQL-AST at debug level before formatting (spec.md §7) — purely
// observational, never altering control flow.
func Compile(d dialect.Dialect, store metadata.Store, outer mbql.OuterQuery, log *logrus.Logger) (*Compiled, error) {
	scoped := metadata.NewScoped(store)
	ctx := dialect.NewCtx(scoped, d, log)

	ast, err := compileInnerQuery(ctx, &outer.Query)
	if err != nil {
		return nil, err
	}

	if log != nil {
		log.WithField("ast", fmt.Sprintf("%+v", ast)).Debug("compiled sql ast")
	}

	sqlText, params, err := sqlast.Format(ast, d.QuoteIdentifier, d.Placeholder)
	if err != nil {
		return nil, err
	}
	return &Compiled{SQL: sqlText, Params: params}, nil
}

// compileInnerQuery builds the FROM clause (source-table, or a nested
// source-query per spec.md §4.5) and then folds this query's own
// top-level clauses on top, in the fixed order.
func compileInnerQuery(ctx *dialect.Ctx, iq *mbql.InnerQuery) (*sqlast.Query, error) {
	lvl := ctx.Level()
	lvl.Aggregations = iq.Aggregation
	lvl.JoinTables = iq.JoinTables
	if iq.Expressions != nil {
		lvl.Expressions = iq.Expressions
	}

	ast := &sqlast.Query{}

	switch {
	case iq.NativeSourceQuery != nil:
		stmt, err := guardNativeSourceQuery(*iq.NativeSourceQuery)
		if err != nil {
			return nil, err
		}
		ast.From = sqlast.As{Expr: sqlast.Raw{SQL: "(" + stmt + ")"}, Alias: "source"}
		return applyOuterClauses(ctx, iq, ast)

	case iq.SourceQuery != nil:
		nested, err := compileNestedLevel(ctx, iq.SourceQuery)
		if err != nil {
			return nil, err
		}
		ast.From = sqlast.As{Expr: nested, Alias: "source"}
		return applyOuterClauses(ctx, iq, ast)

	case iq.SourceTable != nil:
		table, ok := ctx.Store.Table(*iq.SourceTable)
		if !ok {
			return nil, metadata.ErrMetadataMiss.New("table", *iq.SourceTable)
		}
		ast.From = ctx.Dialect.FieldToIdentifier(metadata.Field{}, table)
		return applyKnownClauses(ctx, iq, ast)

	default:
		return nil, ErrInvalidInnerQuery.New(iq)
	}
}

// compileNestedLevel compiles a source-query at one nesting level deeper,
// isolating its Aggregations/Expressions/JoinTables from the enclosing
// level for the duration of the recursive compile (spec.md §5: "nested
// compilations do not observe each other's context").
func compileNestedLevel(ctx *dialect.Ctx, inner *mbql.InnerQuery) (*sqlast.Query, error) {
	var nested *sqlast.Query
	err := ctx.PushLevel(&dialect.Level{}, func() error {
		var e error
		nested, e = compileInnerQuery(ctx, inner)
		return e
	})
	return nested, err
}

// applyOuterClauses shadows SourceQueryTableID with the "source" alias
// (when present) for the duration of folding iq's own top-level clauses,
// so any field-id the outer query references against the nested result
// qualifies as source.<column> (spec.md §4.5).
func applyOuterClauses(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	if iq.SourceQueryTableID == nil {
		return applyKnownClauses(ctx, iq, ast)
	}
	var result *sqlast.Query
	err := ctx.Store.WithPushedTable(*iq.SourceQueryTableID, metadata.Table{ID: *iq.SourceQueryTableID, Name: "source", Alias: true}, func() error {
		var e error
		result, e = applyKnownClauses(ctx, iq, ast)
		return e
	})
	return result, err
}

// clause names for apply_top_level_clause (spec.md §4.6). The orchestrator
// pipes the AST through the dialect's hook after each known applier, so a
// dialect can post-process any clause's contribution (default: identity).
const (
	clauseBreakout    = "breakout"
	clauseAggregation = "aggregation"
	clauseFields      = "fields"
	clauseFilter      = "filter"
	clauseJoinTables  = "join-tables"
	clauseOrderBy     = "order-by"
	clausePage        = "page"
	clauseLimit       = "limit"
)

// applyKnownClauses folds breakout -> aggregation -> fields -> filter ->
// join-tables -> order-by -> page -> limit onto ast, the fixed order
// spec.md §4.6 mandates regardless of iq's own field ordering.
func applyKnownClauses(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	steps := []struct {
		kind  string
		apply func(*dialect.Ctx, *mbql.InnerQuery, *sqlast.Query) (*sqlast.Query, error)
	}{
		{clauseBreakout, applyBreakout},
		{clauseAggregation, applyAggregation},
		{clauseFields, applyFields},
		{clauseFilter, applyFilter},
		{clauseJoinTables, applyJoinTables},
		{clauseOrderBy, applyOrderBy},
		{clausePage, applyPage},
		{clauseLimit, applyLimit},
	}

	var err error
	for _, step := range steps {
		ast, err = step.apply(ctx, iq, ast)
		if err != nil {
			return nil, err
		}
		ast, err = ctx.Dialect.ApplyTopLevelClause(step.kind, ast, iq)
		if err != nil {
			return nil, err
		}
	}
	return ast, nil
}

func guardNativeSourceQuery(raw string) (string, error) {
	stmt := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(raw), ";"))
	if err := nativesql.Guard(stmt); err != nil {
		return "", err
	}
	return stmt, nil
}
