package dialect

import (
	"fmt"
	"strings"

	"github.com/foucault-labs/mbqlsql/metadata"
	"github.com/foucault-labs/mbqlsql/sqlast"
)

// RegisterOracle adds the "oracle" dialect to r, parented on "sql".
// Grounded on joaosoft-db-mcp/mcp/dialect_oracle.go: upper-cased
// double-quoted identifiers, ":N" positional placeholders.
func RegisterOracle(r *Registry) {
	r.Register("oracle", "sql", Overrides{
		QuoteIdentifier: func(name string) string { return fmt.Sprintf(`"%s"`, strings.ToUpper(name)) },
		Placeholder:     func(index int) string { return fmt.Sprintf(":%d", index) },
		CurrentDatetimeFn: func() sqlast.Node {
			return sqlast.Raw{SQL: "SYSTIMESTAMP"}
		},
		Date: func(unit string, expr sqlast.Node) sqlast.Node {
			if unit == "default" {
				return expr
			}
			return sqlast.Call{Func: "TRUNC", Args: []sqlast.Node{expr, sqlast.Param{Value: strings.ToUpper(unit)}}}
		},
		DateInterval: func(base sqlast.Node, unit string, amount int) sqlast.Node {
			return sqlast.BinOp{Op: "+", Left: base, Right: sqlast.Raw{SQL: fmt.Sprintf("NUMTODSINTERVAL(%d, '%s')", amount, strings.ToUpper(unit))}}
		},
		UnixTimestampToTimestamp: func(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error) {
			if resolution == "milliseconds" {
				divided := sqlast.BinOp{Op: "/", Left: expr, Right: sqlast.Param{Value: 1000}}
				return ctx.Dialect.UnixTimestampToTimestamp(ctx, "seconds", divided)
			}
			return sqlast.BinOp{Op: "+", Left: sqlast.Raw{SQL: "DATE '1970-01-01'"}, Right: sqlast.Call{Func: "NUMTODSINTERVAL", Args: []sqlast.Node{expr, sqlast.Param{Value: "SECOND"}}}}, nil
		},
		FieldToIdentifier: func(f metadata.Field, t metadata.Table) sqlast.Node {
			schema := t.Schema
			if t.Alias {
				schema = ""
			}
			return sqlast.Ident{Schema: strings.ToUpper(schema), Table: strings.ToUpper(t.Name), Column: strings.ToUpper(f.Name)}
		},
	})
}
