package sqlast

import (
	"fmt"
	"strings"

	"gopkg.in/src-d/go-errors.v1"
)

// ErrSQLFormat wraps any failure while rendering an AST; the message always
// carries the pretty-printed offending node for diagnostics (spec.md §7).
var ErrSQLFormat = errors.NewKind("failed to format SQL AST: %s\ncause: %v")

// QuoteFunc quotes a single identifier part per the dialect's quote style.
type QuoteFunc func(name string) string

// PlaceholderFunc returns the positional placeholder text for the given
// 1-based parameter index.
type PlaceholderFunc func(index int) string

// Format renders q to a SQL string and its positional parameter vector.
// Every Param encountered in left-to-right traversal order becomes one
// entry of the returned slice, in the order of first appearance — including
// params contributed by nested subqueries, which share the same running
// counter so placeholders stay globally positional.
func Format(q *Query, quote QuoteFunc, placeholder PlaceholderFunc) (string, []any, error) {
	var params []any
	sql, err := renderQuery(q, quote, placeholder, &params)
	if err != nil {
		return "", nil, ErrSQLFormat.New(pretty(q), err)
	}
	return sql, params, nil
}

func renderQuery(q *Query, quote QuoteFunc, placeholder PlaceholderFunc, params *[]any) (string, error) {
	if len(q.Select) == 0 {
		q = cloneWithStar(q)
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	for i, item := range q.Select {
		if i > 0 {
			b.WriteString(", ")
		}
		s, err := render(item, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}

	// A FROM or JOIN target's As is a table alias: rendered `expr "alias"`,
	// without the AS keyword the select list uses.
	tableRef := func(n Node) (string, error) {
		if a, ok := n.(As); ok && a.Alias != "" {
			s, err := render(a.Expr, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			return s + " " + quote(a.Alias), nil
		}
		return render(n, quote, placeholder, params)
	}

	if q.From != nil {
		s, err := tableRef(q.From)
		if err != nil {
			return "", err
		}
		b.WriteString(" FROM ")
		b.WriteString(s)
	}

	for _, j := range q.Joins {
		tableSQL, err := tableRef(j.Table)
		if err != nil {
			return "", err
		}
		onSQL, err := render(j.On, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		b.WriteString(" LEFT JOIN ")
		b.WriteString(tableSQL)
		b.WriteString(" ON ")
		b.WriteString(onSQL)
	}

	if q.Where != nil {
		s, err := render(q.Where, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		b.WriteString(" WHERE ")
		b.WriteString(s)
	}

	if len(q.GroupBy) > 0 {
		b.WriteString(" GROUP BY ")
		for i, item := range q.GroupBy {
			if i > 0 {
				b.WriteString(", ")
			}
			s, err := render(item, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
	}

	if len(q.OrderBy) > 0 {
		b.WriteString(" ORDER BY ")
		for i, item := range q.OrderBy {
			if i > 0 {
				b.WriteString(", ")
			}
			s, err := render(item.Expr, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
			if item.Dir != "" {
				b.WriteString(" ")
				b.WriteString(item.Dir)
			}
		}
	}

	if q.Limit != nil {
		fmt.Fprintf(&b, " LIMIT %d", *q.Limit)
	}
	if q.Offset != nil {
		fmt.Fprintf(&b, " OFFSET %d", *q.Offset)
	}

	return strings.ReplaceAll(b.String(), dotSentinel, "."), nil
}

func cloneWithStar(q *Query) *Query {
	clone := *q
	clone.Select = []Node{Raw{SQL: "*"}}
	return &clone
}

func render(n Node, quote QuoteFunc, placeholder PlaceholderFunc, params *[]any) (string, error) {
	switch v := n.(type) {
	case Ident:
		var parts []string
		if v.Schema != "" {
			parts = append(parts, quote(v.Schema))
		}
		if v.Table != "" {
			parts = append(parts, quote(v.Table))
		}
		if v.Column != "" {
			parts = append(parts, quote(v.Column))
		}
		return strings.Join(parts, "."), nil
	case Param:
		*params = append(*params, v.Value)
		return placeholder(len(*params)), nil
	case Null:
		return "NULL", nil
	case Raw:
		return v.SQL, nil
	case Call:
		args := make([]string, len(v.Args))
		for i, a := range v.Args {
			s, err := render(a, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return fmt.Sprintf("%s(%s)", v.Func, strings.Join(args, ", ")), nil
	case BinOp:
		l, err := render(v.Left, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		r, err := render(v.Right, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s %s", l, v.Op, r), nil
	case Logical:
		if v.Op == "NOT" {
			s, err := render(v.Args[0], quote, placeholder, params)
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("NOT (%s)", s), nil
		}
		parts := make([]string, len(v.Args))
		for i, a := range v.Args {
			s, err := render(a, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, fmt.Sprintf(" %s ", v.Op)) + ")", nil
	case Case:
		var b strings.Builder
		b.WriteString("CASE")
		for _, w := range v.Whens {
			cond, err := render(w.Cond, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			then, err := render(w.Then, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " WHEN %s THEN %s", cond, then)
		}
		if v.Else != nil {
			s, err := render(v.Else, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			fmt.Fprintf(&b, " ELSE %s", s)
		}
		b.WriteString(" END")
		return b.String(), nil
	case Between:
		expr, err := render(v.Expr, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		lo, err := render(v.Lo, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		hi, err := render(v.Hi, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s BETWEEN %s AND %s", expr, lo, hi), nil
	case Like:
		expr, err := render(v.Expr, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		pat, err := render(v.Pattern, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s LIKE %s", expr, pat), nil
	case List:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			s, err := render(item, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return "(" + strings.Join(parts, ", ") + ")", nil
	case Tuple:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			s, err := render(item, quote, placeholder, params)
			if err != nil {
				return "", err
			}
			parts[i] = s
		}
		return strings.Join(parts, ", "), nil
	case Modifier:
		s, err := render(v.Expr, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s", v.Keyword, s), nil
	case As:
		s, err := render(v.Expr, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		if v.Alias == "" {
			return s, nil
		}
		return fmt.Sprintf("%s AS %s", s, quote(v.Alias)), nil
	case *Query:
		sub, err := renderQuery(v, quote, placeholder, params)
		if err != nil {
			return "", err
		}
		return "(" + sub + ")", nil
	default:
		return "", fmt.Errorf("sqlast: unrenderable node %T", n)
	}
}

func pretty(q *Query) string {
	return fmt.Sprintf("%+v", *q)
}
