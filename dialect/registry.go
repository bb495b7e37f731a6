// Package dialect is the Dialect Registry & Dispatch (spec.md §4.1) plus the
// Expression Compiler defaults registered as the "sql" root's ToSQLAST
// table. Concrete dialects only override the handful of rendering rules
// that actually differ between databases (spec.md's "most expression
// compilation is dialect-independent").
//
// Grounded on joaosoft-db-mcp/mcp/dialect.go: the single Dialect interface
// with one concrete struct per database, generalized here from "assemble a
// metadata SQL string" to "override a SQL-AST emission rule", and
// registered through a single-parent inheritance chain rather than Go
// struct embedding, so a missing override is a nil map entry the registry
// can detect at Register time instead of a silently-inherited method.
package dialect

import (
	"gopkg.in/src-d/go-errors.v1"

	"github.com/foucault-labs/mbqlsql/mbql"
	"github.com/foucault-labs/mbqlsql/metadata"
	"github.com/foucault-labs/mbqlsql/sqlast"
)

// ErrUnknownDialect is returned by Resolve for an unregistered name.
var ErrUnknownDialect = errors.NewKind("unknown dialect: %s")

// ErrNoOverride is returned when a chain has no entry at all for an
// override point with no built-in fallback (only ToSQLAST hits this; every
// other override point has a built-in default in the resolved Dialect, used
// when no entry in the chain sets it).
var ErrNoOverride = errors.NewKind("dialect %q: no handler registered for node kind %q")

// NodeHandler compiles one mbql.Clause kind to its SQL-AST rendering.
type NodeHandler func(ctx *Ctx, node mbql.Clause) (sqlast.Node, error)

// Overrides is one dialect's set of rule overrides. A nil field means
// "inherit from parent"; a field left nil on every entry of the chain falls
// back to the resolved Dialect's built-in default. NewRegistry's root "sql"
// entry sets only ToSQLAST, populated for every mbql.Kind.
type Overrides struct {
	CurrentDatetimeFn        func() sqlast.Node
	Date                     func(unit string, expr sqlast.Node) sqlast.Node
	DateInterval             func(base sqlast.Node, unit string, amount int) sqlast.Node
	FieldToIdentifier        func(f metadata.Field, t metadata.Table) sqlast.Node
	FieldToAlias             func(f metadata.Field) (string, bool)
	QuoteIdentifier          func(name string) string
	Placeholder              func(index int) string
	UnixTimestampToTimestamp func(ctx *Ctx, resolution string, expr sqlast.Node) (sqlast.Node, error)
	ApplyTopLevelClause      func(clauseKind string, ast *sqlast.Query, q *mbql.InnerQuery) (*sqlast.Query, error)
	FormatCustomFieldName    func(name string) string
	ToSQLAST                 map[mbql.Kind]NodeHandler
}

// Entry is one registered dialect: its name, its parent (empty for the
// root), and its own overrides.
type Entry struct {
	Name      string
	Parent    string
	Overrides Overrides
}

// Registry holds the single-parent inheritance chains. The zero value is
// not usable; construct via NewRegistry, which seeds the "sql" root.
type Registry struct {
	entries map[string]*Entry
}

// NewEmptyRegistry returns a Registry with no entries registered — callers
// that want full control over the root's overrides should start here and
// Register "sql" themselves. Most callers want NewRegistry instead.
func NewEmptyRegistry() *Registry {
	return &Registry{entries: map[string]*Entry{}}
}

// Register adds or replaces the entry for name. parent may be empty only
// for the root entry; a non-root entry with an unregistered parent is
// allowed at Register time (resolved lazily by Resolve/chain) so dialects
// can be registered in any order.
func (r *Registry) Register(name, parent string, overrides Overrides) {
	r.entries[name] = &Entry{Name: name, Parent: parent, Overrides: overrides}
}

// chain walks from name up through Parent links, root last. A cycle (which
// would only happen from a Register bug) is broken rather than looped
// forever.
func (r *Registry) chain(name string) []*Entry {
	var out []*Entry
	seen := map[string]bool{}
	cur := name
	for cur != "" && !seen[cur] {
		seen[cur] = true
		e, ok := r.entries[cur]
		if !ok {
			break
		}
		out = append(out, e)
		cur = e.Parent
	}
	return out
}

// Resolve returns the Dialect for a registered name, walking its
// inheritance chain for every override point.
func (r *Registry) Resolve(name string) (Dialect, error) {
	if _, ok := r.entries[name]; !ok {
		return nil, ErrUnknownDialect.New(name)
	}
	return &resolved{reg: r, name: name}, nil
}
