package mbql

import (
	"encoding/json"
	"fmt"
)

// ParseOuterQuery decodes the wire form of an outer query: a JSON object
// with "database" and "query" keys, clauses represented the same way the
// spec's worked examples write them — a JSON array whose first element is
// the clause tag, e.g. ["field-id", 7] or ["sum", ["field-id", 7]]. This
// is the ambient JSON-envelope collaborator cmd/mbqlc and mcpserver share;
// it has no bearing on compilation itself.
func ParseOuterQuery(data []byte) (OuterQuery, error) {
	var raw struct {
		Database int             `json:"database"`
		Query    json.RawMessage `json:"query"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return OuterQuery{}, fmt.Errorf("mbql: decode outer query: %w", err)
	}
	inner, err := parseInnerQuery(raw.Query)
	if err != nil {
		return OuterQuery{}, err
	}
	return OuterQuery{Database: raw.Database, Query: inner}, nil
}

func parseInnerQuery(data json.RawMessage) (InnerQuery, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return InnerQuery{}, fmt.Errorf("mbql: decode inner query: %w", err)
	}

	var iq InnerQuery

	if v, ok := raw["source-table"]; ok {
		var id int
		if err := json.Unmarshal(v, &id); err != nil {
			return InnerQuery{}, err
		}
		iq.SourceTable = &id
	}
	if v, ok := raw["source-query"]; ok {
		nested, err := parseInnerQuery(v)
		if err != nil {
			return InnerQuery{}, err
		}
		iq.SourceQuery = &nested
	}
	if v, ok := raw["native-source-query"]; ok {
		var s string
		if err := json.Unmarshal(v, &s); err != nil {
			return InnerQuery{}, err
		}
		iq.NativeSourceQuery = &s
	}
	if v, ok := raw["source-query-table-id"]; ok {
		var id int
		if err := json.Unmarshal(v, &id); err != nil {
			return InnerQuery{}, err
		}
		iq.SourceQueryTableID = &id
	}
	if v, ok := raw["breakout"]; ok {
		clauses, err := parseClauseList(v)
		if err != nil {
			return InnerQuery{}, err
		}
		iq.Breakout = clauses
	}
	if v, ok := raw["aggregation"]; ok {
		clauses, err := parseClauseList(v)
		if err != nil {
			return InnerQuery{}, err
		}
		iq.Aggregation = clauses
	}
	if v, ok := raw["fields"]; ok {
		clauses, err := parseClauseList(v)
		if err != nil {
			return InnerQuery{}, err
		}
		iq.Fields = clauses
	}
	if v, ok := raw["filter"]; ok {
		c, err := parseClause(v)
		if err != nil {
			return InnerQuery{}, err
		}
		iq.Filter = c
	}
	if v, ok := raw["order-by"]; ok {
		obs, err := parseOrderBy(v)
		if err != nil {
			return InnerQuery{}, err
		}
		iq.OrderBy = obs
	}
	if v, ok := raw["join-tables"]; ok {
		joins, err := parseJoinTables(v)
		if err != nil {
			return InnerQuery{}, err
		}
		iq.JoinTables = joins
	}
	if v, ok := raw["limit"]; ok {
		var n int
		if err := json.Unmarshal(v, &n); err != nil {
			return InnerQuery{}, err
		}
		iq.Limit = &n
	}
	if v, ok := raw["page"]; ok {
		var p struct {
			Items int `json:"items"`
			Page  int `json:"page"`
		}
		if err := json.Unmarshal(v, &p); err != nil {
			return InnerQuery{}, err
		}
		iq.Page = &Page{Items: p.Items, Page: p.Page}
	}
	if v, ok := raw["expressions"]; ok {
		var rawExprs map[string]json.RawMessage
		if err := json.Unmarshal(v, &rawExprs); err != nil {
			return InnerQuery{}, err
		}
		iq.Expressions = map[string]Clause{}
		for name, exprData := range rawExprs {
			c, err := parseClause(exprData)
			if err != nil {
				return InnerQuery{}, err
			}
			iq.Expressions[name] = c
		}
	}

	return iq, nil
}

func parseOrderBy(data json.RawMessage) ([]OrderByClause, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]OrderByClause, len(raw))
	for i, item := range raw {
		var pair []json.RawMessage
		if err := json.Unmarshal(item, &pair); err != nil || len(pair) != 2 {
			return nil, fmt.Errorf("mbql: order-by entry %d: expected [direction, field]", i)
		}
		var dir string
		if err := json.Unmarshal(pair[0], &dir); err != nil {
			return nil, err
		}
		field, err := parseClause(pair[1])
		if err != nil {
			return nil, err
		}
		out[i] = OrderByClause{Direction: Direction(dir), Field: field}
	}
	return out, nil
}

func parseJoinTables(data json.RawMessage) ([]JoinInfo, error) {
	var raw []struct {
		Alias           string          `json:"alias"`
		SourceFKFieldID int             `json:"source-fk-field-id"`
		DestFieldID     int             `json:"dest-field-id"`
		DestTableID     int             `json:"dest-table-id"`
		SourceQuery     json.RawMessage `json:"source-query"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]JoinInfo, len(raw))
	for i, j := range raw {
		ji := JoinInfo{Alias: j.Alias, SourceFKFieldID: j.SourceFKFieldID, DestFieldID: j.DestFieldID, DestTableID: j.DestTableID}
		if len(j.SourceQuery) > 0 {
			nested, err := parseInnerQuery(j.SourceQuery)
			if err != nil {
				return nil, err
			}
			ji.SourceQuery = &nested
		}
		out[i] = ji
	}
	return out, nil
}

func parseClauseList(data json.RawMessage) ([]Clause, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}
	out := make([]Clause, len(raw))
	for i, item := range raw {
		c, err := parseClause(item)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

// parseClause decodes one clause from its tagged-array wire form.
func parseClause(data json.RawMessage) (Clause, error) {
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err != nil {
		return nil, fmt.Errorf("mbql: clause is not a tagged array: %w", err)
	}
	if len(arr) == 0 {
		return nil, fmt.Errorf("mbql: empty clause array")
	}
	var tag string
	if err := json.Unmarshal(arr[0], &tag); err != nil {
		return nil, fmt.Errorf("mbql: clause tag is not a string: %w", err)
	}
	args := arr[1:]

	switch Kind(tag) {
	case KindFieldID:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		var id int
		if err := json.Unmarshal(args[0], &id); err != nil {
			return nil, err
		}
		return FieldID{ID: id}, nil

	case KindFieldLiteral:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		var name, typ string
		if err := json.Unmarshal(args[0], &name); err != nil {
			return nil, err
		}
		if len(args) > 1 {
			json.Unmarshal(args[1], &typ)
		}
		return FieldLiteral{Name: name, Type: typ}, nil

	case KindFK:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		src, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		dest, err := parseClause(args[1])
		if err != nil {
			return nil, err
		}
		return FK{SourceFK: src, DestField: dest}, nil

	case KindDatetimeField:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		inner, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		var unit string
		json.Unmarshal(args[1], &unit)
		return DatetimeField{Inner: inner, Unit: unit}, nil

	case KindBinningStrategy:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		inner, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		var strategy string
		var opts struct {
			Resolution float64 `json:"resolution"`
			BinWidth   float64 `json:"bin-width"`
			MinValue   float64 `json:"min-value"`
			MaxValue   float64 `json:"max-value"`
		}
		json.Unmarshal(args[1], &strategy)
		if len(args) > 2 {
			json.Unmarshal(args[2], &opts)
		}
		return BinningStrategy{Inner: inner, Strategy: strategy, Resolution: opts.Resolution, BinWidth: opts.BinWidth, MinValue: opts.MinValue, MaxValue: opts.MaxValue}, nil

	case KindExpressionRef:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		var name string
		json.Unmarshal(args[0], &name)
		return ExpressionRef{Name: name}, nil

	case KindValue:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		var lit any
		json.Unmarshal(args[0], &lit)
		if f, ok := lit.(float64); ok && f == float64(int(f)) {
			lit = int(f)
		}
		var typeInfo string
		if len(args) > 1 {
			json.Unmarshal(args[1], &typeInfo)
		}
		return Value{Literal: lit, TypeInfo: typeInfo}, nil

	case KindAbsoluteDatetime:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		var ts, unit string
		json.Unmarshal(args[0], &ts)
		json.Unmarshal(args[1], &unit)
		return AbsoluteDatetime{Timestamp: ts, Unit: unit}, nil

	case KindRelativeDatetime:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		return parseRelativeDatetime(args)

	case KindTime:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		var v, unit string
		json.Unmarshal(args[0], &v)
		json.Unmarshal(args[1], &unit)
		return TimeValue{Value: v, Unit: unit}, nil

	case KindCount:
		if len(args) == 0 {
			return Count{}, nil
		}
		f, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		return Count{Field: f}, nil

	case KindAvg, KindSum, KindMin, KindMax, KindStdDev, KindDistinct:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		f, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		switch Kind(tag) {
		case KindAvg:
			return Avg{Field: f}, nil
		case KindSum:
			return Sum{Field: f}, nil
		case KindMin:
			return Min{Field: f}, nil
		case KindMax:
			return Max{Field: f}, nil
		case KindStdDev:
			return StdDev{Field: f}, nil
		default:
			return Distinct{Field: f}, nil
		}

	case KindArithPlus, KindArithMinus, KindArithMul, KindArithDiv:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		operands, err := parseArithArgs(args)
		if err != nil {
			return nil, err
		}
		return Arithmetic{Op: Kind(tag), Args: operands}, nil

	case KindSumWhere:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		arg, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		pred, err := parseClause(args[1])
		if err != nil {
			return nil, err
		}
		return SumWhere{Arg: arg, Pred: pred}, nil

	case KindCountWhere:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		pred, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		return CountWhere{Pred: pred}, nil

	case KindShare:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		pred, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		return Share{Pred: pred}, nil

	case KindNamed:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		inner, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		var alias string
		json.Unmarshal(args[1], &alias)
		return Named{Inner: inner, Alias: alias}, nil

	case KindAggregationRef:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		var idx int
		json.Unmarshal(args[0], &idx)
		return AggregationRef{Index: idx}, nil

	case KindEquals, KindNotEquals, KindLessThan, KindLessEq, KindGreaterThan, KindGreaterEq:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		field, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		value, err := parseClause(args[1])
		if err != nil {
			return nil, err
		}
		return Comparison{Op: Kind(tag), Field: field, Value: value}, nil

	case KindBetween:
		if err := requireArgs(tag, args, 3); err != nil {
			return nil, err
		}
		field, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		lo, err := parseClause(args[1])
		if err != nil {
			return nil, err
		}
		hi, err := parseClause(args[2])
		if err != nil {
			return nil, err
		}
		return Between{Field: field, Lo: lo, Hi: hi}, nil

	case KindStartsWith, KindContains, KindEndsWith:
		if err := requireArgs(tag, args, 2); err != nil {
			return nil, err
		}
		field, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		value, err := parseClause(args[1])
		if err != nil {
			return nil, err
		}
		caseSensitive := true
		if len(args) > 2 {
			var opts struct {
				CaseSensitive *bool `json:"case-sensitive"`
			}
			json.Unmarshal(args[2], &opts)
			if opts.CaseSensitive != nil {
				caseSensitive = *opts.CaseSensitive
			}
		}
		return StringPredicate{Op: Kind(tag), Field: field, Value: value, CaseSensitive: caseSensitive}, nil

	case KindAnd, KindOr:
		operands := make([]Clause, len(args))
		for i, a := range args {
			c, err := parseClause(a)
			if err != nil {
				return nil, err
			}
			operands[i] = c
		}
		if Kind(tag) == KindAnd {
			return And{Args: operands}, nil
		}
		return Or{Args: operands}, nil

	case KindNot:
		if err := requireArgs(tag, args, 1); err != nil {
			return nil, err
		}
		inner, err := parseClause(args[0])
		if err != nil {
			return nil, err
		}
		return Not{Arg: inner}, nil
	}

	return nil, fmt.Errorf("mbql: unknown clause tag %q", tag)
}

// requireArgs reports an error naming tag instead of letting a short args
// slice panic a direct index further down, so a malformed or truncated
// wire clause comes back as a decode error rather than crashing the
// caller (compile_query/run_query feed this directly from request JSON).
func requireArgs(tag string, args []json.RawMessage, n int) error {
	if len(args) < n {
		return fmt.Errorf("mbql: clause %q expects at least %d argument(s), got %d", tag, n, len(args))
	}
	return nil
}

func parseArithArgs(args []json.RawMessage) ([]Clause, error) {
	out := make([]Clause, len(args))
	for i, a := range args {
		c, err := parseClause(a)
		if err != nil {
			return nil, err
		}
		out[i] = c
	}
	return out, nil
}

func parseRelativeDatetime(args []json.RawMessage) (Clause, error) {
	if len(args) == 2 {
		var amount int
		var unit string
		json.Unmarshal(args[0], &amount)
		json.Unmarshal(args[1], &unit)
		return RelativeDatetime{Amount: amount, Unit: unit}, nil
	}
	field, err := parseClause(args[0])
	if err != nil {
		return nil, err
	}
	var amount int
	var unit string
	json.Unmarshal(args[1], &amount)
	json.Unmarshal(args[2], &unit)
	return RelativeDatetime{Field: field, Amount: amount, Unit: unit}, nil
}
