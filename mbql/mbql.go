// Package mbql defines the MBQL data model: the nested tree representation
// of a SELECT-style query the compiler consumes.
//
// Every node that the Expression Compiler can recurse into implements
// Clause. Dispatch in the dialect registry keys off Kind(), never off the
// concrete Go type, so a new clause variant only needs a Kind constant and
// a registry entry to be recognized by every dialect.
package mbql

// Kind discriminates a Clause for dispatch purposes.
type Kind string

const (
	KindFieldID          Kind = "field-id"
	KindFieldLiteral      Kind = "field-literal"
	KindFK                Kind = "fk->"
	KindDatetimeField      Kind = "datetime-field"
	KindBinningStrategy    Kind = "binning-strategy"
	KindExpressionRef      Kind = "expression"

	KindValue             Kind = "value"
	KindAbsoluteDatetime   Kind = "absolute-datetime"
	KindRelativeDatetime   Kind = "relative-datetime"
	KindTime               Kind = "time"

	KindCount     Kind = "count"
	KindAvg       Kind = "avg"
	KindSum       Kind = "sum"
	KindMin       Kind = "min"
	KindMax       Kind = "max"
	KindStdDev    Kind = "stddev"
	KindDistinct  Kind = "distinct"
	KindArithPlus Kind = "+"
	KindArithMinus Kind = "-"
	KindArithMul  Kind = "*"
	KindArithDiv  Kind = "/"
	KindSumWhere  Kind = "sum-where"
	KindCountWhere Kind = "count-where"
	KindShare     Kind = "share"
	KindNamed     Kind = "named"
	KindAggregationRef Kind = "aggregation"

	KindEquals       Kind = "="
	KindNotEquals    Kind = "!="
	KindLessThan     Kind = "<"
	KindLessEq       Kind = "<="
	KindGreaterThan  Kind = ">"
	KindGreaterEq    Kind = ">="
	KindBetween      Kind = "between"
	KindStartsWith   Kind = "starts-with"
	KindContains     Kind = "contains"
	KindEndsWith     Kind = "ends-with"
	KindAnd          Kind = "and"
	KindOr           Kind = "or"
	KindNot          Kind = "not"
)

// Clause is any MBQL node the Expression Compiler can recurse into: field
// clauses, value clauses, aggregation clauses, and filter clauses are all
// Clause implementations sharing the same open-recursion dispatch.
type Clause interface {
	Kind() Kind
}

// --- Field clauses ---

type FieldID struct{ ID int }

func (FieldID) Kind() Kind { return KindFieldID }

// FieldLiteral is an unresolved column reference by name, used for columns
// produced by a source-query that have no backing Field record.
type FieldLiteral struct {
	Name string
	Type string
}

func (FieldLiteral) Kind() Kind { return KindFieldLiteral }

// FK navigates a foreign key: SourceFK identifies the FK column on the
// current table, DestField is resolved against the destination table.
type FK struct {
	SourceFK  Clause
	DestField Clause
}

func (FK) Kind() Kind { return KindFK }

type DatetimeField struct {
	Inner Clause
	Unit  string
}

func (DatetimeField) Kind() Kind { return KindDatetimeField }

type BinningStrategy struct {
	Inner      Clause
	Strategy   string
	Resolution float64
	BinWidth   float64
	MinValue   float64
	MaxValue   float64
}

func (BinningStrategy) Kind() Kind { return KindBinningStrategy }

// ExpressionRef looks up Name in the enclosing query's Expressions map.
type ExpressionRef struct{ Name string }

func (ExpressionRef) Kind() Kind { return KindExpressionRef }

// --- Value clauses ---

type Value struct {
	Literal  any
	TypeInfo string
}

func (Value) Kind() Kind { return KindValue }

type AbsoluteDatetime struct {
	Timestamp string
	Unit      string
}

func (AbsoluteDatetime) Kind() Kind { return KindAbsoluteDatetime }

// RelativeDatetime has three arities distinguished by which fields are set:
// Field == nil && Amount == 0  -> (0, unit)
// Field == nil && Amount != 0  -> (amount, unit)
// Field != nil                -> (field, amount, unit)
type RelativeDatetime struct {
	Field  Clause
	Amount int
	Unit   string
}

func (RelativeDatetime) Kind() Kind { return KindRelativeDatetime }

type TimeValue struct {
	Value string
	Unit  string
}

func (TimeValue) Kind() Kind { return KindTime }

// --- Aggregation clauses ---

// Count's Field is nil for COUNT(*).
type Count struct{ Field Clause }

func (Count) Kind() Kind { return KindCount }

type Avg struct{ Field Clause }

func (Avg) Kind() Kind { return KindAvg }

type Sum struct{ Field Clause }

func (Sum) Kind() Kind { return KindSum }

type Min struct{ Field Clause }

func (Min) Kind() Kind { return KindMin }

type Max struct{ Field Clause }

func (Max) Kind() Kind { return KindMax }

type StdDev struct{ Field Clause }

func (StdDev) Kind() Kind { return KindStdDev }

type Distinct struct{ Field Clause }

func (Distinct) Kind() Kind { return KindDistinct }

// Arithmetic is vararg: op is one of + - * /.
type Arithmetic struct {
	Op   Kind
	Args []Clause
}

func (a Arithmetic) Kind() Kind { return a.Op }

type SumWhere struct {
	Arg  Clause
	Pred Clause
}

func (SumWhere) Kind() Kind { return KindSumWhere }

type CountWhere struct{ Pred Clause }

func (CountWhere) Kind() Kind { return KindCountWhere }

type Share struct{ Pred Clause }

func (Share) Kind() Kind { return KindShare }

type Named struct {
	Inner Clause
	Alias string
}

func (Named) Kind() Kind { return KindNamed }

// AggregationRef references the Index-th aggregation at the current
// nesting level.
type AggregationRef struct{ Index int }

func (AggregationRef) Kind() Kind { return KindAggregationRef }

// --- Filter clauses ---

type Comparison struct {
	Op    Kind // = != < <= > >=
	Field Clause
	Value Clause
}

func (c Comparison) Kind() Kind { return c.Op }

type Between struct {
	Field  Clause
	Lo, Hi Clause
}

func (Between) Kind() Kind { return KindBetween }

// StringPredicate covers starts-with, contains, ends-with.
type StringPredicate struct {
	Op            Kind
	Field         Clause
	Value         Clause
	CaseSensitive bool // defaults to true; set explicitly by the parser
}

func (s StringPredicate) Kind() Kind { return s.Op }

type And struct{ Args []Clause }

func (And) Kind() Kind { return KindAnd }

type Or struct{ Args []Clause }

func (Or) Kind() Kind { return KindOr }

type Not struct{ Arg Clause }

func (Not) Kind() Kind { return KindNot }

// --- Query envelope ---

// Direction of an order-by entry.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

type OrderByClause struct {
	Direction Direction
	Field     Clause
}

type Page struct {
	Items int
	Page  int // 1-indexed
}

// JoinInfo describes one entry of join-tables: a LEFT JOIN driven by a
// foreign-key column on the current table against a primary key column on
// the destination table (or nested query).
type JoinInfo struct {
	Alias          string
	SourceFKFieldID int
	DestFieldID    int
	DestTableID    int
	SourceQuery    *InnerQuery // set instead of DestTableID when joining a subquery
}

// InnerQuery is the recognized-keys mapping described in spec.md §3. Only
// one of SourceTable, SourceQuery, NativeSourceQuery should be set.
//
// SourceQueryTableID is the virtual table id outer field-id clauses use to
// reference a column produced by SourceQuery/NativeSourceQuery — the id
// upstream metadata registers for the nested query's result shape. The
// compiler shadows this id with the "source" alias while applying this
// query's own top-level clauses (spec.md §4.5). Nil when no source-query
// is set, or when no outer field-id needs to resolve against it.
type InnerQuery struct {
	SourceTable        *int
	SourceQuery        *InnerQuery
	NativeSourceQuery  *string
	SourceQueryTableID *int

	Breakout    []Clause
	Aggregation []Clause
	Fields      []Clause
	Filter      Clause
	JoinTables  []JoinInfo
	OrderBy     []OrderByClause
	Limit       *int
	Page        *Page
	Expressions map[string]Clause
}

// OuterQuery is the envelope mbql_to_native receives.
type OuterQuery struct {
	Database int
	Query    InnerQuery
}
