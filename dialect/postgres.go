package dialect

import (
	"fmt"

	"github.com/foucault-labs/mbqlsql/sqlast"
)

// RegisterPostgres adds the "postgres" dialect to r, parented on "sql".
// Grounded on joaosoft-db-mcp/mcp/dialect_postgres.go: double-quote
// identifiers, "$1"-style positional placeholders.
func RegisterPostgres(r *Registry) {
	r.Register("postgres", "sql", Overrides{
		QuoteIdentifier: func(name string) string { return fmt.Sprintf(`"%s"`, name) },
		Placeholder:     func(index int) string { return fmt.Sprintf("$%d", index) },
		Date: func(unit string, expr sqlast.Node) sqlast.Node {
			if unit == "default" {
				return expr
			}
			return sqlast.Call{Func: "DATE_TRUNC", Args: []sqlast.Node{sqlast.Param{Value: unit}, expr}}
		},
		DateInterval: func(base sqlast.Node, unit string, amount int) sqlast.Node {
			return sqlast.BinOp{Op: "+", Left: base, Right: sqlast.Raw{SQL: fmt.Sprintf("INTERVAL '%d %s'", amount, unit)}}
		},
		UnixTimestampToTimestamp: func(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error) {
			if resolution == "milliseconds" {
				divided := sqlast.BinOp{Op: "/", Left: expr, Right: sqlast.Param{Value: 1000}}
				return ctx.Dialect.UnixTimestampToTimestamp(ctx, "seconds", divided)
			}
			return sqlast.Call{Func: "TO_TIMESTAMP", Args: []sqlast.Node{expr}}, nil
		},
	})
}
