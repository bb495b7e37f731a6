package dialect

import (
	"fmt"

	"github.com/foucault-labs/mbqlsql/sqlast"
)

// RegisterSQLite adds the "sqlite" dialect to r, parented on "sql".
// Grounded on joaosoft-db-mcp/mcp/dialect_sqlite.go: double-quote
// identifiers, "?" positional placeholders regardless of index.
func RegisterSQLite(r *Registry) {
	r.Register("sqlite", "sql", Overrides{
		QuoteIdentifier: func(name string) string { return fmt.Sprintf(`"%s"`, name) },
		Placeholder:     func(int) string { return "?" },
		CurrentDatetimeFn: func() sqlast.Node {
			return sqlast.Call{Func: "datetime", Args: []sqlast.Node{sqlast.Raw{SQL: "'now'"}}}
		},
		Date: func(unit string, expr sqlast.Node) sqlast.Node {
			if unit == "default" {
				return expr
			}
			return sqlast.Call{Func: "strftime", Args: []sqlast.Node{sqlast.Param{Value: sqliteStrftimeFormat(unit)}, expr}}
		},
		DateInterval: func(base sqlast.Node, unit string, amount int) sqlast.Node {
			return sqlast.Call{Func: "datetime", Args: []sqlast.Node{base, sqlast.Param{Value: fmt.Sprintf("%+d %ss", amount, unit)}}}
		},
		UnixTimestampToTimestamp: func(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error) {
			if resolution == "milliseconds" {
				divided := sqlast.BinOp{Op: "/", Left: expr, Right: sqlast.Param{Value: 1000}}
				return ctx.Dialect.UnixTimestampToTimestamp(ctx, "seconds", divided)
			}
			return sqlast.Call{Func: "datetime", Args: []sqlast.Node{expr, sqlast.Param{Value: "unixepoch"}}}, nil
		},
	})
}

func sqliteStrftimeFormat(unit string) string {
	switch unit {
	case "year":
		return "%Y"
	case "month":
		return "%Y-%m"
	case "hour":
		return "%Y-%m-%d %H"
	default:
		return "%Y-%m-%d"
	}
}
