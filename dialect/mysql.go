package dialect

import (
	"fmt"

	"github.com/foucault-labs/mbqlsql/sqlast"
)

// RegisterMySQL adds the "mysql" dialect to r, parented on "sql". Grounded
// on joaosoft-db-mcp/mcp/dialect_mysql.go: backtick quoting, "?" positional
// placeholders regardless of index.
func RegisterMySQL(r *Registry) {
	r.Register("mysql", "sql", Overrides{
		QuoteIdentifier: func(name string) string { return fmt.Sprintf("`%s`", name) },
		Placeholder:     func(int) string { return "?" },
		Date: func(unit string, expr sqlast.Node) sqlast.Node {
			if unit == "default" {
				return expr
			}
			return sqlast.Call{Func: "DATE_FORMAT", Args: []sqlast.Node{expr, sqlast.Raw{SQL: mysqlDateFormat(unit)}}}
		},
		DateInterval: func(base sqlast.Node, unit string, amount int) sqlast.Node {
			return sqlast.BinOp{Op: "+", Left: base, Right: sqlast.Raw{SQL: fmt.Sprintf("INTERVAL %d %s", amount, mysqlUnit(unit))}}
		},
		UnixTimestampToTimestamp: func(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error) {
			if resolution == "milliseconds" {
				divided := sqlast.BinOp{Op: "/", Left: expr, Right: sqlast.Param{Value: 1000}}
				return ctx.Dialect.UnixTimestampToTimestamp(ctx, "seconds", divided)
			}
			return sqlast.Call{Func: "FROM_UNIXTIME", Args: []sqlast.Node{expr}}, nil
		},
	})
}

func mysqlUnit(unit string) string {
	switch unit {
	case "day", "month", "year", "hour", "minute", "second", "week":
		return unit
	default:
		return "day"
	}
}

func mysqlDateFormat(unit string) string {
	switch unit {
	case "year":
		return "'%Y'"
	case "month":
		return "'%Y-%m'"
	case "day":
		return "'%Y-%m-%d'"
	case "hour":
		return "'%Y-%m-%d %H'"
	default:
		return "'%Y-%m-%d'"
	}
}
