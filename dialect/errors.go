package dialect

import "gopkg.in/src-d/go-errors.v1"

// Error kinds raised while compiling expressions (spec.md §7). Each is a
// parameterized errors.Kind so callers can branch on identity with Is
// rather than string matching.
var (
	ErrUnknownExpression       = errors.NewKind("unknown expression reference: %s")
	ErrUnknownAggregationIndex = errors.NewKind("aggregation index %d out of range (have %d)")
	ErrMissingJoinInfo         = errors.NewKind("no join-tables entry for fk-> source field %v")
)
