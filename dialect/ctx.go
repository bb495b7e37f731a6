package dialect

import (
	"github.com/sirupsen/logrus"

	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
)

// Level holds the per-nesting-level state the Expression Compiler needs to
// resolve aggregation(index), expression refs, and fk-> joins without a
// global lookup (spec.md §4.3, "field references are resolved against the
// query level they appear in, never the outermost one").
type Level struct {
	Aggregations []mbql.Clause
	Expressions  map[string]mbql.Clause
	JoinTables   []mbql.JoinInfo
}

// Ctx threads the compiler's explicit, stack-shaped state top-down: no
// globals, no goroutine-locals (spec.md §5). A fresh Ctx is built once per
// top-level Compile call; nested source-query compilation pushes a new
// Level rather than mutating a shared one.
type Ctx struct {
	Store   *metadata.Scoped
	Dialect Dialect
	Log     *logrus.Logger
	levels  []*Level
}

// NewCtx starts a Ctx with one (outermost) level.
func NewCtx(store *metadata.Scoped, d Dialect, log *logrus.Logger) *Ctx {
	return &Ctx{Store: store, Dialect: d, Log: log, levels: []*Level{{Expressions: map[string]mbql.Clause{}}}}
}

// Level returns the innermost (current) level.
func (c *Ctx) Level() *Level { return c.levels[len(c.levels)-1] }

// NestingLevel is 0 at the outermost query, incrementing with each pushed
// source-query.
func (c *Ctx) NestingLevel() int { return len(c.levels) - 1 }

// PushLevel enters a nested source-query's scope for the duration of fn.
func (c *Ctx) PushLevel(l *Level, fn func() error) error {
	if l.Expressions == nil {
		l.Expressions = map[string]mbql.Clause{}
	}
	c.levels = append(c.levels, l)
	defer func() { c.levels = c.levels[:len(c.levels)-1] }()
	return fn()
}
