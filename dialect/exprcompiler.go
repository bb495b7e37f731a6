package dialect

import (
	"strconv"
	"strings"

	"github.com/foucault-labs/mbqlsql/annotate"
	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
	"github.com/foucault-labs/mbqlsql/sqlast"
)

// NewRegistry returns a Registry with the "sql" root entry seeded with
// ToSQLAST populated for every mbql.Kind; every other override point is
// left nil there and falls back to the resolved Dialect's built-in
// cross-database default. Every concrete dialect this
// module ships registers on top of it with Parent "sql", so the open set
// of target dialects spec.md §1 calls for (mysql, postgres, sqlserver,
// oracle, sqlite, alongside the "sql" root) is reachable through a single
// constructor call rather than something each entry point must remember
// to wire up itself.
func NewRegistry() *Registry {
	r := NewEmptyRegistry()
	r.Register("sql", "", Overrides{ToSQLAST: rootHandlers()})
	RegisterMySQL(r)
	RegisterPostgres(r)
	RegisterSQLServer(r)
	RegisterOracle(r)
	RegisterSQLite(r)
	return r
}

// rootHandlers is the Expression Compiler: the default to_sql_ast(kind)
// rule for every MBQL clause kind (spec.md §4.2). Dispatch happens purely
// by map lookup keyed on Kind(), so it recurses only through
// ctx.Dialect.ToSQLAST — never by calling a sibling handler directly —
// meaning any dialect override further down a chain is honored uniformly
// no matter how deep the node being compiled sits.
func rootHandlers() map[mbql.Kind]NodeHandler {
	return map[mbql.Kind]NodeHandler{
		mbql.KindValue:            compileValue,
		mbql.KindFieldID:          compileFieldID,
		mbql.KindFieldLiteral:     compileFieldLiteral,
		mbql.KindFK:               compileFK,
		mbql.KindDatetimeField:    compileDatetimeField,
		mbql.KindBinningStrategy:  compileBinningStrategy,
		mbql.KindExpressionRef:    compileExpressionRef,
		mbql.KindAbsoluteDatetime: compileAbsoluteDatetime,
		mbql.KindRelativeDatetime: compileRelativeDatetime,
		mbql.KindTime:             compileTimeValue,

		mbql.KindCount:    compileCount,
		mbql.KindAvg:      compileSimpleAgg("AVG"),
		mbql.KindSum:      compileSimpleAgg("SUM"),
		mbql.KindMin:      compileSimpleAgg("MIN"),
		mbql.KindMax:      compileSimpleAgg("MAX"),
		mbql.KindStdDev:   compileSimpleAgg("STDDEV"),
		mbql.KindDistinct: compileDistinct,

		mbql.KindArithPlus:  compileArithmetic,
		mbql.KindArithMinus: compileArithmetic,
		mbql.KindArithMul:   compileArithmetic,
		mbql.KindArithDiv:   compileArithmetic,

		mbql.KindSumWhere:      compileSumWhere,
		mbql.KindCountWhere:    compileCountWhere,
		mbql.KindShare:         compileShare,
		mbql.KindNamed:         compileNamed,
		mbql.KindAggregationRef: compileAggregationRef,

		mbql.KindEquals:      compileComparison,
		mbql.KindNotEquals:   compileComparison,
		mbql.KindLessThan:    compileComparison,
		mbql.KindLessEq:      compileComparison,
		mbql.KindGreaterThan: compileComparison,
		mbql.KindGreaterEq:   compileComparison,
		mbql.KindBetween:     compileBetween,
		mbql.KindStartsWith:  compileStringPredicate,
		mbql.KindContains:    compileStringPredicate,
		mbql.KindEndsWith:    compileStringPredicate,
		mbql.KindAnd:         compileLogical,
		mbql.KindOr:          compileLogical,
		mbql.KindNot:         compileNot,
	}
}

func compileValue(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	v := node.(mbql.Value)
	if v.Literal == nil {
		return sqlast.Null{}, nil
	}
	return sqlast.Param{Value: v.Literal}, nil
}

func compileFieldID(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	fc := node.(mbql.FieldID)
	field, ok := ctx.Store.Field(fc.ID)
	if !ok {
		return nil, metadata.ErrMetadataMiss.New("field", fc.ID)
	}
	table, ok := ctx.Store.Table(field.TableID)
	if !ok {
		return nil, metadata.ErrMetadataMiss.New("table", field.TableID)
	}
	ident := ctx.Dialect.FieldToIdentifier(field, table)
	switch field.SpecialType {
	case metadata.UNIXTimestampSeconds:
		return ctx.Dialect.UnixTimestampToTimestamp(ctx, "seconds", ident)
	case metadata.UNIXTimestampMilliseconds:
		return ctx.Dialect.UnixTimestampToTimestamp(ctx, "milliseconds", ident)
	}
	return ident, nil
}

func compileFieldLiteral(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	fc := node.(mbql.FieldLiteral)
	return sqlast.Ident{Column: sqlast.EscapeDots(fc.Name)}, nil
}

// compileFK resolves the destination table for SourceFK against the
// current level's JoinTables (matched by the FK column's field id), then
// shadows that destination table record for the duration of compiling
// DestField so a plain field-id underneath resolves against the join
// alias instead of its home table (spec.md §4.2 fk->, §4.5 join aliasing).
func compileFK(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	fk := node.(mbql.FK)
	srcFieldID, ok := fk.SourceFK.(mbql.FieldID)
	if !ok {
		return nil, ErrMissingJoinInfo.New(fk.SourceFK)
	}
	var match *mbql.JoinInfo
	for i := range ctx.Level().JoinTables {
		if ctx.Level().JoinTables[i].SourceFKFieldID == srcFieldID.ID {
			match = &ctx.Level().JoinTables[i]
			break
		}
	}
	if match == nil {
		return nil, ErrMissingJoinInfo.New(srcFieldID.ID)
	}

	var result sqlast.Node
	var err error
	pushID := match.DestTableID
	override := metadata.Table{ID: pushID, Name: match.Alias, Alias: true}
	pushErr := ctx.Store.WithPushedTable(pushID, override, func() error {
		result, err = ctx.Dialect.ToSQLAST(ctx, fk.DestField)
		return err
	})
	if pushErr != nil {
		return nil, pushErr
	}
	return result, err
}

func compileDatetimeField(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	df := node.(mbql.DatetimeField)
	inner, err := ctx.Dialect.ToSQLAST(ctx, df.Inner)
	if err != nil {
		return nil, err
	}
	return ctx.Dialect.Date(df.Unit, inner), nil
}

// compileBinningStrategy emits floor((inner - min) / width) * width + min
// (spec.md §4.2 binning-strategy).
func compileBinningStrategy(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	bs := node.(mbql.BinningStrategy)
	inner, err := ctx.Dialect.ToSQLAST(ctx, bs.Inner)
	if err != nil {
		return nil, err
	}
	diff := sqlast.BinOp{Op: "-", Left: inner, Right: sqlast.Param{Value: bs.MinValue}}
	div := sqlast.BinOp{Op: "/", Left: diff, Right: sqlast.Param{Value: bs.BinWidth}}
	floor := sqlast.Call{Func: "floor", Args: []sqlast.Node{div}}
	mul := sqlast.BinOp{Op: "*", Left: floor, Right: sqlast.Param{Value: bs.BinWidth}}
	return sqlast.BinOp{Op: "+", Left: mul, Right: sqlast.Param{Value: bs.MinValue}}, nil
}

func compileExpressionRef(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	ref := node.(mbql.ExpressionRef)
	found, ok := ctx.Level().Expressions[ref.Name]
	if !ok {
		return nil, ErrUnknownExpression.New(ref.Name)
	}
	return ctx.Dialect.ToSQLAST(ctx, found)
}

func compileAbsoluteDatetime(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	ad := node.(mbql.AbsoluteDatetime)
	return ctx.Dialect.Date(ad.Unit, sqlast.Param{Value: ad.Timestamp}), nil
}

func compileTimeValue(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	tv := node.(mbql.TimeValue)
	return ctx.Dialect.Date(tv.Unit, sqlast.Param{Value: tv.Value}), nil
}

// compileRelativeDatetime covers the three arities documented on
// mbql.RelativeDatetime.
func compileRelativeDatetime(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	rd := node.(mbql.RelativeDatetime)
	if rd.Field == nil && rd.Amount == 0 {
		return ctx.Dialect.Date(rd.Unit, ctx.Dialect.CurrentDatetimeFn()), nil
	}
	if rd.Field == nil {
		return ctx.Dialect.Date(rd.Unit, ctx.Dialect.DateInterval(ctx.Dialect.CurrentDatetimeFn(), rd.Unit, rd.Amount)), nil
	}
	fieldNode, err := ctx.Dialect.ToSQLAST(ctx, rd.Field)
	if err != nil {
		return nil, err
	}
	return ctx.Dialect.DateInterval(fieldNode, rd.Unit, rd.Amount), nil
}

func compileCount(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	c := node.(mbql.Count)
	if c.Field == nil {
		return sqlast.Call{Func: "COUNT", Args: []sqlast.Node{sqlast.Raw{SQL: "*"}}}, nil
	}
	field, err := ctx.Dialect.ToSQLAST(ctx, c.Field)
	if err != nil {
		return nil, err
	}
	return sqlast.Call{Func: "COUNT", Args: []sqlast.Node{field}}, nil
}

// compileSimpleAgg handles avg/sum/min/max/stddev, all of which are a bare
// SQL aggregate function wrapping the compiled field.
func compileSimpleAgg(fn string) NodeHandler {
	return func(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
		field := simpleAggField(node)
		compiled, err := ctx.Dialect.ToSQLAST(ctx, field)
		if err != nil {
			return nil, err
		}
		return sqlast.Call{Func: fn, Args: []sqlast.Node{compiled}}, nil
	}
}

func simpleAggField(node mbql.Clause) mbql.Clause {
	switch a := node.(type) {
	case mbql.Avg:
		return a.Field
	case mbql.Sum:
		return a.Field
	case mbql.Min:
		return a.Field
	case mbql.Max:
		return a.Field
	case mbql.StdDev:
		return a.Field
	}
	return nil
}

func compileDistinct(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	d := node.(mbql.Distinct)
	field, err := ctx.Dialect.ToSQLAST(ctx, d.Field)
	if err != nil {
		return nil, err
	}
	return sqlast.Call{Func: "COUNT", Args: []sqlast.Node{sqlast.Modifier{Keyword: "DISTINCT", Expr: field}}}, nil
}

// compileArithmetic implements spec.md §4.2's per-op arithmetic rules.
// `+ - *` are plain vararg folds: each operand compiles through the
// ordinary rule for its kind, so a literal operand goes through
// compileValue like any other value() and becomes a positional parameter.
// `/` alone promotes an integer-literal operand to its floating
// representation and inlines it as SQL text rather than a parameter, and
// guards every divisor after the first with CASE WHEN divisor = 0 THEN
// NULL ELSE divisor END (spec.md §8 scenario 4) — this inline/promote
// behavior is specific to the divide rewrite and must not leak into the
// other three ops.
func compileArithmetic(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	a := node.(mbql.Arithmetic)
	if len(a.Args) == 0 {
		return sqlast.Null{}, nil
	}

	operand := func(c mbql.Clause) (sqlast.Node, error) {
		return ctx.Dialect.ToSQLAST(ctx, c)
	}
	if a.Op == mbql.KindArithDiv {
		operand = func(c mbql.Clause) (sqlast.Node, error) {
			if v, ok := c.(mbql.Value); ok {
				if n, ok := arithLiteral(v.Literal); ok {
					return n, nil
				}
			}
			return ctx.Dialect.ToSQLAST(ctx, c)
		}
	}

	result, err := operand(a.Args[0])
	if err != nil {
		return nil, err
	}
	for _, arg := range a.Args[1:] {
		next, err := operand(arg)
		if err != nil {
			return nil, err
		}
		if a.Op == mbql.KindArithDiv {
			guardCond, err := operand(arg)
			if err != nil {
				return nil, err
			}
			guard := sqlast.Case{
				Whens: []sqlast.CaseWhen{{Cond: sqlast.BinOp{Op: "=", Left: guardCond, Right: sqlast.Raw{SQL: "0"}}, Then: sqlast.Null{}}},
				Else:  next,
			}
			result = sqlast.BinOp{Op: string(a.Op), Left: result, Right: guard}
		} else {
			result = sqlast.BinOp{Op: string(a.Op), Left: result, Right: next}
		}
	}
	return result, nil
}

// arithLiteral renders a numeric arithmetic operand as inline SQL text:
// an int literal promotes to its floating representation (2 -> "2.0"); a
// float64 literal renders with at least one fractional digit.
func arithLiteral(lit any) (sqlast.Node, bool) {
	switch v := lit.(type) {
	case int:
		return sqlast.Raw{SQL: formatFloatSQL(float64(v))}, true
	case float64:
		return sqlast.Raw{SQL: formatFloatSQL(v)}, true
	default:
		return nil, false
	}
}

func formatFloatSQL(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

func compileSumWhere(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	sw := node.(mbql.SumWhere)
	return buildSumWhere(ctx, sw.Arg, sw.Pred)
}

func buildSumWhere(ctx *Ctx, arg, pred mbql.Clause) (sqlast.Node, error) {
	argNode, err := ctx.Dialect.ToSQLAST(ctx, arg)
	if err != nil {
		return nil, err
	}
	predNode, err := ctx.Dialect.ToSQLAST(ctx, pred)
	if err != nil {
		return nil, err
	}
	return sqlast.Call{Func: "SUM", Args: []sqlast.Node{
		sqlast.Case{Whens: []sqlast.CaseWhen{{Cond: predNode, Then: argNode}}, Else: sqlast.Param{Value: 0.0}},
	}}, nil
}

// compileCountWhere is defined as sum-where(1, pred) (spec.md §8 round-trip
// law, preserved as an identity rather than a separate code path).
func compileCountWhere(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	cw := node.(mbql.CountWhere)
	return buildSumWhere(ctx, mbql.Value{Literal: 1}, cw.Pred)
}

func compileShare(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	s := node.(mbql.Share)
	countWhere, err := buildSumWhere(ctx, mbql.Value{Literal: 1}, s.Pred)
	if err != nil {
		return nil, err
	}
	countStar := sqlast.Call{Func: "COUNT", Args: []sqlast.Node{sqlast.Raw{SQL: "*"}}}
	return sqlast.BinOp{Op: "/", Left: countWhere, Right: countStar}, nil
}

func compileNamed(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	n := node.(mbql.Named)
	return ctx.Dialect.ToSQLAST(ctx, n.Inner)
}

// compileAggregationRef resolves aggregation(index) against the current
// level's Aggregations. distinct(...) is special-cased to the bare alias
// "count" (the SELECT-list applier names a COUNT(DISTINCT x) column
// "count", matching spec.md's worked example); a named(...) wrapper is
// unwrapped first, and arithmetic aggregations as well as any other
// named-wrapped aggregation inline their expression; everything else falls
// back to a bare reference
// to its own head name, the lossy-aliasing behavior spec.md §9 leaves as
// an open, not a fixed, question.
func compileAggregationRef(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	ref := node.(mbql.AggregationRef)
	aggs := ctx.Level().Aggregations
	if ref.Index < 0 || ref.Index >= len(aggs) {
		return nil, ErrUnknownAggregationIndex.New(ref.Index, len(aggs))
	}
	agg := aggs[ref.Index]
	named := false
	if n, ok := agg.(mbql.Named); ok {
		agg = n.Inner
		named = true
	}
	if _, ok := agg.(mbql.Distinct); ok {
		return sqlast.Ident{Column: "count"}, nil
	}
	if _, ok := agg.(mbql.Arithmetic); ok || named {
		return ctx.Dialect.ToSQLAST(ctx, agg)
	}
	return sqlast.Ident{Column: annotate.AggregationName(agg)}, nil
}

func compileComparison(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	c := node.(mbql.Comparison)
	l, err := ctx.Dialect.ToSQLAST(ctx, c.Field)
	if err != nil {
		return nil, err
	}
	r, err := ctx.Dialect.ToSQLAST(ctx, c.Value)
	if err != nil {
		return nil, err
	}
	return sqlast.BinOp{Op: string(c.Op), Left: l, Right: r}, nil
}

func compileBetween(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	b := node.(mbql.Between)
	f, err := ctx.Dialect.ToSQLAST(ctx, b.Field)
	if err != nil {
		return nil, err
	}
	lo, err := ctx.Dialect.ToSQLAST(ctx, b.Lo)
	if err != nil {
		return nil, err
	}
	hi, err := ctx.Dialect.ToSQLAST(ctx, b.Hi)
	if err != nil {
		return nil, err
	}
	return sqlast.Between{Expr: f, Lo: lo, Hi: hi}, nil
}

// compileStringPredicate builds the LIKE pattern per spec.md §4.2: the
// un-escaped literal with %/_ wildcards glued on per operator, and when
// CaseSensitive is false both sides wrapped in LOWER(...) — the pattern
// value itself is passed through unmodified, matching the worked example
// in spec.md §8 (LOWER applied in SQL on both sides, not pre-lowercased
// in the parameter).
func compileStringPredicate(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	sp := node.(mbql.StringPredicate)
	fieldNode, err := ctx.Dialect.ToSQLAST(ctx, sp.Field)
	if err != nil {
		return nil, err
	}
	v, ok := sp.Value.(mbql.Value)
	if !ok {
		return nil, ErrUnknownExpression.New("starts-with/contains/ends-with requires a literal value")
	}
	lit, ok := v.Literal.(string)
	if !ok {
		return nil, ErrUnknownExpression.New("starts-with/contains/ends-with requires a string literal value")
	}
	var pattern string
	switch sp.Op {
	case mbql.KindStartsWith:
		pattern = lit + "%"
	case mbql.KindContains:
		pattern = "%" + lit + "%"
	case mbql.KindEndsWith:
		pattern = "%" + lit
	}

	if !sp.CaseSensitive {
		fieldNode = sqlast.Call{Func: "LOWER", Args: []sqlast.Node{fieldNode}}
		return sqlast.Like{Expr: fieldNode, Pattern: sqlast.Call{Func: "LOWER", Args: []sqlast.Node{sqlast.Param{Value: pattern}}}}, nil
	}
	return sqlast.Like{Expr: fieldNode, Pattern: sqlast.Param{Value: pattern}}, nil
}

func compileLogical(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	var op string
	var args []mbql.Clause
	switch l := node.(type) {
	case mbql.And:
		op, args = strings.ToUpper(string(mbql.KindAnd)), l.Args
	case mbql.Or:
		op, args = strings.ToUpper(string(mbql.KindOr)), l.Args
	}
	compiled := make([]sqlast.Node, len(args))
	for i, a := range args {
		n, err := ctx.Dialect.ToSQLAST(ctx, a)
		if err != nil {
			return nil, err
		}
		compiled[i] = n
	}
	return sqlast.Logical{Op: op, Args: compiled}, nil
}

func compileNot(ctx *Ctx, node mbql.Clause) (sqlast.Node, error) {
	n := node.(mbql.Not)
	inner, err := ctx.Dialect.ToSQLAST(ctx, n.Arg)
	if err != nil {
		return nil, err
	}
	return sqlast.Logical{Op: "NOT", Args: []sqlast.Node{inner}}, nil
}
