package dialect

import (
	"fmt"

	"github.com/foucault-labs/mbqlsql/sqlast"
)

// RegisterSQLServer adds the "sqlserver" dialect to r, parented on "sql".
// Grounded on joaosoft-db-mcp/mcp/dialect_sqlserver.go: bracket
// identifiers, "@pN" positional placeholders.
func RegisterSQLServer(r *Registry) {
	r.Register("sqlserver", "sql", Overrides{
		QuoteIdentifier: func(name string) string { return fmt.Sprintf("[%s]", name) },
		Placeholder:     func(index int) string { return fmt.Sprintf("@p%d", index) },
		CurrentDatetimeFn: func() sqlast.Node {
			return sqlast.Raw{SQL: "GETUTCDATE()"}
		},
		Date: func(unit string, expr sqlast.Node) sqlast.Node {
			if unit == "default" {
				return expr
			}
			return sqlast.Call{Func: "DATETRUNC", Args: []sqlast.Node{sqlast.Raw{SQL: unit}, expr}}
		},
		DateInterval: func(base sqlast.Node, unit string, amount int) sqlast.Node {
			return sqlast.Call{Func: "DATEADD", Args: []sqlast.Node{sqlast.Raw{SQL: unit}, sqlast.Param{Value: amount}, base}}
		},
		UnixTimestampToTimestamp: func(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error) {
			if resolution == "milliseconds" {
				divided := sqlast.BinOp{Op: "/", Left: expr, Right: sqlast.Param{Value: 1000}}
				return ctx.Dialect.UnixTimestampToTimestamp(ctx, "seconds", divided)
			}
			return sqlast.Call{Func: "DATEADD", Args: []sqlast.Node{
				sqlast.Raw{SQL: "SECOND"}, expr, sqlast.Raw{SQL: "'1970-01-01'"},
			}}, nil
		},
	})
}
