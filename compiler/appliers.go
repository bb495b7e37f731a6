package compiler

import (
	"reflect"
	"strings"

	"github.com/foucault-labs/mbqlsql/annotate"
	"github.com/foucault-labs/mbqlsql/dialect"
	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
	"github.com/foucault-labs/mbqlsql/sqlast"
)

// applyBreakout appends every breakout field not already present in
// `fields` (structural equality of the clause trees) to SELECT, and
// always appends it to GROUP BY (spec.md §4.4).
func applyBreakout(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	for _, b := range iq.Breakout {
		compiled, err := ctx.Dialect.ToSQLAST(ctx, b)
		if err != nil {
			return nil, err
		}
		if !containsClause(iq.Fields, b) {
			ast.Select = append(ast.Select, compiled)
		}
		ast.GroupBy = append(ast.GroupBy, compiled)
	}
	return ast, nil
}

// applyAggregation appends (to_sql_ast(ag), annotate.AggregationName(ag))
// for each aggregation (spec.md §4.4).
func applyAggregation(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	for _, ag := range iq.Aggregation {
		compiled, err := ctx.Dialect.ToSQLAST(ctx, ag)
		if err != nil {
			return nil, err
		}
		name := ctx.Dialect.FormatCustomFieldName(annotate.AggregationName(ag))
		ast.Select = append(ast.Select, sqlast.As{Expr: compiled, Alias: name})
	}
	return ast, nil
}

// applyFields appends each field as an AS-projection (spec.md §4.4, §4.3).
func applyFields(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	for _, f := range iq.Fields {
		compiled, err := ctx.Dialect.ToSQLAST(ctx, f)
		if err != nil {
			return nil, err
		}
		ast.Select = append(ast.Select, projectionFor(ctx, f, compiled))
	}
	return ast, nil
}

func applyFilter(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	if iq.Filter == nil {
		return ast, nil
	}
	compiled, err := ctx.Dialect.ToSQLAST(ctx, iq.Filter)
	if err != nil {
		return nil, err
	}
	ast.Where = compiled
	return ast, nil
}

// applyJoinTables emits one LEFT JOIN per join-info: `fk_field =
// alias.pk_field`, the join target either a table or — recursively — a
// nested subquery (spec.md §4.4).
func applyJoinTables(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	for _, ji := range iq.JoinTables {
		var tableNode sqlast.Node
		if ji.SourceQuery != nil {
			nested, err := compileNestedLevel(ctx, ji.SourceQuery)
			if err != nil {
				return nil, err
			}
			tableNode = nested
		} else {
			destTable, ok := ctx.Store.Table(ji.DestTableID)
			if !ok {
				return nil, metadata.ErrMetadataMiss.New("table", ji.DestTableID)
			}
			tableNode = ctx.Dialect.FieldToIdentifier(metadata.Field{}, destTable)
		}

		srcFieldNode, err := ctx.Dialect.ToSQLAST(ctx, mbql.FieldID{ID: ji.SourceFKFieldID})
		if err != nil {
			return nil, err
		}

		var destFieldNode sqlast.Node
		override := metadata.Table{ID: ji.DestTableID, Name: ji.Alias, Alias: true}
		err = ctx.Store.WithPushedTable(ji.DestTableID, override, func() error {
			var e error
			destFieldNode, e = ctx.Dialect.ToSQLAST(ctx, mbql.FieldID{ID: ji.DestFieldID})
			return e
		})
		if err != nil {
			return nil, err
		}

		ast.Joins = append(ast.Joins, sqlast.Join{
			Table: sqlast.As{Expr: tableNode, Alias: ji.Alias},
			On:    sqlast.BinOp{Op: "=", Left: srcFieldNode, Right: destFieldNode},
		})
	}
	return ast, nil
}

func applyOrderBy(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	for _, ob := range iq.OrderBy {
		compiled, err := ctx.Dialect.ToSQLAST(ctx, ob.Field)
		if err != nil {
			return nil, err
		}
		ast.OrderBy = append(ast.OrderBy, sqlast.OrderItem{Expr: compiled, Dir: strings.ToUpper(string(ob.Direction))})
	}
	return ast, nil
}

// applyPage sets LIMIT items, OFFSET items * (page - 1); page is
// 1-indexed (spec.md §4.4).
func applyPage(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	if iq.Page == nil {
		return ast, nil
	}
	limit := iq.Page.Items
	offset := iq.Page.Items * (iq.Page.Page - 1)
	ast.Limit = &limit
	ast.Offset = &offset
	return ast, nil
}

func applyLimit(ctx *dialect.Ctx, iq *mbql.InnerQuery, ast *sqlast.Query) (*sqlast.Query, error) {
	if iq.Limit == nil {
		return ast, nil
	}
	limit := *iq.Limit
	ast.Limit = &limit
	return ast, nil
}

// containsClause reports whether target is structurally equal (tree
// equality, not pointer identity) to any entry of fields — the dedup rule
// the breakout applier uses (spec.md §4.4).
func containsClause(fields []mbql.Clause, target mbql.Clause) bool {
	for _, f := range fields {
		if reflect.DeepEqual(f, target) {
			return true
		}
	}
	return false
}

// projectionFor wraps compiled in an AS-alias per field_clause_to_alias
// (spec.md §4.3): field-literal wrappers are not re-aliased, everything
// else gets a derived alias run through the dialect's custom-name
// formatting.
func projectionFor(ctx *dialect.Ctx, clause mbql.Clause, compiled sqlast.Node) sqlast.Node {
	alias, ok := fieldClauseAlias(ctx, clause)
	if !ok {
		return compiled
	}
	return sqlast.As{Expr: compiled, Alias: ctx.Dialect.FormatCustomFieldName(alias)}
}

// fieldClauseAlias derives field_clause_to_alias (spec.md §4.3), digging
// through the wrapper clauses (fk->, datetime-field, binning-strategy) to
// the underlying field reference.
func fieldClauseAlias(ctx *dialect.Ctx, clause mbql.Clause) (string, bool) {
	switch c := clause.(type) {
	case mbql.FieldLiteral:
		return "", false
	case mbql.ExpressionRef:
		return sqlast.EscapeDots(c.Name), true
	case mbql.FieldID:
		field, ok := ctx.Store.Field(c.ID)
		if !ok {
			return "", false
		}
		return ctx.Dialect.FieldToAlias(field)
	case mbql.FK:
		return fieldClauseAlias(ctx, c.DestField)
	case mbql.DatetimeField:
		return fieldClauseAlias(ctx, c.Inner)
	case mbql.BinningStrategy:
		return fieldClauseAlias(ctx, c.Inner)
	default:
		return "", false
	}
}
