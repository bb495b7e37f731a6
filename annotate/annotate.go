// Package annotate derives the deterministic alias the aggregation
// applier attaches to a projected aggregation column, before the
// dialect's format_custom_field_name override has a chance to adjust it
// (spec.md §4.4, "the alias derivation... is delegated to an external
// annotate.aggregation_name whose contract is deterministic given the
// aggregation tree").
package annotate

import (
	"strings"

	"github.com/foucault-labs/mbqlsql/mbql"
)

// AggregationName returns the alias for agg. A named(...) wrapper's alias
// always wins; distinct(...) is named "count"; an arithmetic aggregation is
// named "expression" joined by underscores with the names of its operands;
// otherwise the name is the aggregation's own head with hyphens replaced by
// underscores — the same "bare head name" rule aggregation(index) uses to
// reference it, lossy collisions and all (spec.md §9 Open Questions).
func AggregationName(agg mbql.Clause) string {
	if n, ok := agg.(mbql.Named); ok {
		return n.Alias
	}
	if _, ok := agg.(mbql.Distinct); ok {
		return "count"
	}
	if a, ok := agg.(mbql.Arithmetic); ok {
		return arithmeticName(a)
	}
	return strings.ReplaceAll(string(agg.Kind()), "-", "_")
}

func arithmeticName(a mbql.Arithmetic) string {
	parts := make([]string, 0, len(a.Args)+1)
	parts = append(parts, "expression")
	for _, arg := range a.Args {
		switch c := arg.(type) {
		case mbql.Arithmetic:
			parts = append(parts, arithmeticName(c))
		default:
			parts = append(parts, strings.ReplaceAll(string(arg.Kind()), "-", "_"))
		}
	}
	return strings.Join(parts, "_")
}
