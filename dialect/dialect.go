package dialect

import (
	"fmt"

	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
	"github.com/foucault-labs/mbqlsql/sqlast"
)

// Dialect is the resolved view of one registered entry: every override
// point, falling back through its parent chain, terminating at the "sql"
// root's defaults. This is what the Expression Compiler and the Clause
// Appliers hold onto; they never see the Registry itself.
type Dialect interface {
	Name() string
	CurrentDatetimeFn() sqlast.Node
	Date(unit string, expr sqlast.Node) sqlast.Node
	DateInterval(base sqlast.Node, unit string, amount int) sqlast.Node
	FieldToIdentifier(f metadata.Field, t metadata.Table) sqlast.Node
	FieldToAlias(f metadata.Field) (string, bool)
	QuoteIdentifier(name string) string
	Placeholder(index int) string
	UnixTimestampToTimestamp(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error)
	ApplyTopLevelClause(clauseKind string, ast *sqlast.Query, q *mbql.InnerQuery) (*sqlast.Query, error)
	FormatCustomFieldName(name string) string
	ToSQLAST(ctx *Ctx, node mbql.Clause) (sqlast.Node, error)
}

// resolved implements Dialect by walking reg.chain(name) for each override
// point and returning the first non-nil field found.
type resolved struct {
	reg  *Registry
	name string
}

func (r *resolved) Name() string { return r.name }

func (r *resolved) CurrentDatetimeFn() sqlast.Node {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.CurrentDatetimeFn != nil {
			return e.Overrides.CurrentDatetimeFn()
		}
	}
	return sqlast.Raw{SQL: "CURRENT_TIMESTAMP"}
}

func (r *resolved) Date(unit string, expr sqlast.Node) sqlast.Node {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.Date != nil {
			return e.Overrides.Date(unit, expr)
		}
	}
	return expr
}

func (r *resolved) DateInterval(base sqlast.Node, unit string, amount int) sqlast.Node {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.DateInterval != nil {
			return e.Overrides.DateInterval(base, unit, amount)
		}
	}
	return sqlast.BinOp{Op: "+", Left: base, Right: sqlast.Raw{SQL: fmt.Sprintf("INTERVAL '%d %s'", amount, unit)}}
}

func (r *resolved) FieldToIdentifier(f metadata.Field, t metadata.Table) sqlast.Node {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.FieldToIdentifier != nil {
			return e.Overrides.FieldToIdentifier(f, t)
		}
	}
	schema := t.Schema
	if t.Alias {
		schema = ""
	}
	return sqlast.Ident{Schema: schema, Table: t.Name, Column: f.Name}
}

func (r *resolved) FieldToAlias(f metadata.Field) (string, bool) {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.FieldToAlias != nil {
			return e.Overrides.FieldToAlias(f)
		}
	}
	return f.Name, true
}

func (r *resolved) QuoteIdentifier(name string) string {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.QuoteIdentifier != nil {
			return e.Overrides.QuoteIdentifier(name)
		}
	}
	return `"` + name + `"`
}

func (r *resolved) Placeholder(index int) string {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.Placeholder != nil {
			return e.Overrides.Placeholder(index)
		}
	}
	return "?"
}

func (r *resolved) UnixTimestampToTimestamp(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error) {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.UnixTimestampToTimestamp != nil {
			return e.Overrides.UnixTimestampToTimestamp(ctx, resolution, expr)
		}
	}
	if resolution == "milliseconds" {
		divided := sqlast.BinOp{Op: "/", Left: expr, Right: sqlast.Param{Value: 1000}}
		return r.UnixTimestampToTimestamp(ctx, "seconds", divided)
	}
	return sqlast.Call{Func: "TO_TIMESTAMP", Args: []sqlast.Node{expr}}, nil
}

func (r *resolved) ApplyTopLevelClause(clauseKind string, ast *sqlast.Query, q *mbql.InnerQuery) (*sqlast.Query, error) {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.ApplyTopLevelClause != nil {
			return e.Overrides.ApplyTopLevelClause(clauseKind, ast, q)
		}
	}
	return ast, nil
}

func (r *resolved) FormatCustomFieldName(name string) string {
	for _, e := range r.reg.chain(r.name) {
		if e.Overrides.FormatCustomFieldName != nil {
			return e.Overrides.FormatCustomFieldName(name)
		}
	}
	return name
}

func (r *resolved) ToSQLAST(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	for _, e := range r.reg.chain(r.name) {
		if h, ok := e.Overrides.ToSQLAST[node.Kind()]; ok {
			return h(ctx, node)
		}
	}
	return nil, ErrNoOverride.New(r.name, node.Kind())
}
